package kibana

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"appointments-backend/lib/telemetry"
	"appointments-backend/lib/timezone"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

// the report fields requested from the reporting api, mirroring the
// columns of the saved discover view
var exportFields = []string{
	"utcCreatedDateTime",
	"bookingId",
	"location.businessName",
	"location.businessId",
	"client.lastName",
	"isGoogleBooking",
	"offering.name",
	"client.firstName",
	"client.email",
	"bookingStatus.label",
	"startDateTime",
}

type ExportClientOptions struct {
	BaseUrl string
	// session cookie takes precedence over the bearer token
	SessionCookie string
	AuthToken     string
}

// ExportClient fetches report data through the cluster's CSV reporting
// api instead of the browser. It is the fast path when a session cookie
// or token is available, the browser pipeline is the fallback when only
// interactive login works.
type ExportClient struct {
	http    *resty.Client
	baseUrl *url.URL
}

func NewExportClient(opts ExportClientOptions) (*ExportClient, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetTimeout(time.Second * 60)
	if opts.SessionCookie != "" {
		client.SetCookie(&http.Cookie{
			Name:   "sid",
			Value:  opts.SessionCookie,
			Domain: baseUrl.Hostname(),
		})
	} else if opts.AuthToken != "" {
		client.SetAuthToken(opts.AuthToken)
	}

	telemetry.InstrumentResty(client, "scrapers/kibana/export")

	return &ExportClient{
		http:    client,
		baseUrl: baseUrl,
	}, nil
}

// FetchDay downloads the CSV export for the day containing target and
// parses it into the same Table shape the browser harvester produces,
// so both ingestion paths share one normalizer.
func (c *ExportClient) FetchDay(ctx context.Context, target time.Time) (Table, error) {
	ctx, span := tracer.Start(ctx, "exportClient:FetchDay")
	defer span.End()

	start, next := timezone.DayBounds(target)

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("jobParams", exportJobParams(start, next)).
		Get("/api/reporting/generate/csv")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch csv export")
		return Table{}, err
	}
	if res.IsError() {
		err := fmt.Errorf("csv export returned %s", res.Status())
		span.SetStatus(codes.Error, err.Error())
		return Table{}, err
	}

	return parseExportCsv(res.Body())
}

func exportJobParams(start, next time.Time) string {
	const stamp = "2006-01-02T15:04:05.000Z"
	fields := strings.Join(exportFields, ",")
	return fmt.Sprintf(
		"(browserTimezone:%s,fields:!(%s),objectType:search,"+
			"searchRequest:(body:(query:(bool:(filter:!((range:(utcCreatedDateTime:"+
			"(format:strict_date_optional_time,gte:'%s',lte:'%s')))))),"+
			"sort:!((utcCreatedDateTime:(order:asc)))),index:booking),"+
			"title:'Daily Appointments - %s')",
		timezone.Location.String(),
		fields,
		start.UTC().Format(stamp),
		next.UTC().Format(stamp),
		start.Format("2006-01-02"),
	)
}

func parseExportCsv(body []byte) (Table, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	// the export pads ragged rows, accept them and let zipTable filter
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("parse csv export: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	var cells [][]string
	for len(cells) < MaxHarvestRows {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("parse csv export: %w", err)
		}
		for i, cell := range row {
			row[i] = strings.TrimSpace(cell)
		}
		cells = append(cells, row)
	}

	return zipTable(header, cells), nil
}
