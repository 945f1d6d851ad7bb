package kibana

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"appointments-backend/lib/selector"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ReportView parameterizes the saved discover view to open: either an
// explicit [From, To) range or a rolling window of the last WindowDays
// days. The rolling window is preferred in production, relative ranges
// survive timezone drift between the job host and the cluster.
type ReportView struct {
	// saved-view identifier in the discover app
	ViewId string
	// explicit range, used when both are non-zero
	From time.Time
	To   time.Time
	// rolling window size in days, used when From/To are zero
	WindowDays int
}

// LastDays returns a rolling-window view of the trailing n days.
func LastDays(viewId string, n int) ReportView {
	return ReportView{ViewId: viewId, WindowDays: n}
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func (v ReportView) timeFragment() string {
	if !v.From.IsZero() && !v.To.IsZero() {
		return fmt.Sprintf(
			"(from:'%s',to:'%s')",
			v.From.UTC().Format(isoMillis),
			v.To.UTC().Format(isoMillis),
		)
	}
	days := v.WindowDays
	if days <= 0 {
		days = 15
	}
	return fmt.Sprintf("(from:now-%dd,to:now)", days)
}

func (c *Client) reportUrl(view ReportView) string {
	return fmt.Sprintf(
		"%s/app/discover#/view/%s?_g=(filters:!(),refreshInterval:(pause:!t,value:0),time:%s)",
		strings.TrimRight(c.baseUrl.String(), "/"),
		view.ViewId,
		view.timeFragment(),
	)
}

const (
	navigationTimeout = time.Second * 45
	tableWaitTimeout  = time.Second * 15
	// discover renders the table shell before the data arrives
	dataSettleInterval = time.Second * 8
)

// OpenReport navigates to the report view and blocks until a results
// table is present and populated. A missing table is fatal for the run
// and the returned error carries page diagnostics.
func (c *Client) OpenReport(ctx context.Context, view ReportView) error {
	ctx, span := tracer.Start(ctx, "client:OpenReport")
	defer span.End()

	link := c.reportUrl(view)
	span.SetAttributes(attribute.String("url", link))
	slog.InfoContext(ctx, "navigating to report view", "url", link)

	if err := c.page.Goto(link, navigationTimeout); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		return fmt.Errorf("open report view: %w", err)
	}
	if err := c.page.WaitForLoad(time.Second * 30); err != nil {
		slog.DebugContext(ctx, "load state did not settle on report view", "err", err)
	}

	// an expired session bounces the deep link back to login
	if onAuthSurface(c.page.URL()) {
		err := fmt.Errorf("%w: report view bounced to login: %s", ErrSessionRejected, c.page.URL())
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if _, ok := selector.Resolve(ctx, c.page, c.sel.ResultsTable, tableWaitTimeout); !ok {
		diag := c.Diagnostics(ctx)
		err := fmt.Errorf(
			"%w: url=%s title=%q callouts=%s",
			ErrNoResultsSurface, diag.Url, diag.Title, strings.Join(diag.Callouts, "; "),
		)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	slog.DebugContext(ctx, "results table present, waiting for data population")
	c.page.Sleep(dataSettleInterval)
	return nil
}

// PageDiagnostics is a best-effort snapshot of the page state for
// offline debugging, captured when a stage fails.
type PageDiagnostics struct {
	Url      string
	Title    string
	Callouts []string
}

// css classes the ui uses for visible error callouts
const calloutSelector = `.euiCallOut--danger, .error, .alert-danger, [data-test-subj="discoverNoResults"]`

func (c *Client) Diagnostics(ctx context.Context) PageDiagnostics {
	diag := PageDiagnostics{Url: c.page.URL()}

	title, err := c.page.Title()
	if err == nil {
		diag.Title = title
	}

	content, err := c.page.Content()
	if err != nil {
		slog.WarnContext(ctx, "failed to read page content for diagnostics", "err", err)
		return diag
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		slog.WarnContext(ctx, "failed to parse page content for diagnostics", "err", err)
		return diag
	}
	doc.Find(calloutSelector).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			diag.Callouts = append(diag.Callouts, text)
		}
	})
	return diag
}
