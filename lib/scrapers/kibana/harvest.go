package kibana

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"appointments-backend/lib/browser"
	"appointments-backend/lib/selector"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RawRecord maps a harvested column label, exactly as shown in the UI,
// to its displayed text. The schema is discovered per run from the
// table's own header row, never declared in advance.
type RawRecord map[string]string

// Table is the raw harvest output: the discovered column order plus the
// surviving rows.
type Table struct {
	Columns []string
	Rows    []RawRecord
}

// bounds worst-case run time against pathologically large result sets;
// hitting the cap is a normal termination of harvesting, not a failure
const MaxHarvestRows = 100

// the column whose value keys deduplication; rows without it are noise
// from partial renders
const identifierColumn = "bookingId"

// Harvest locates the results table and extracts header labels and row
// values. An empty table is a valid, non-error outcome.
func (c *Client) Harvest(ctx context.Context) (Table, error) {
	ctx, span := tracer.Start(ctx, "client:Harvest")
	defer span.End()

	tableEl, ok := selector.Resolve(ctx, c.page, c.sel.ResultsTable, c.perTry)
	if !ok {
		// the table may have re-rendered since navigation, grab
		// whatever generic table the page has before giving up
		tables, err := c.page.QuerySelectorAll("table")
		if err != nil || len(tables) == 0 {
			diag := c.Diagnostics(ctx)
			outErr := fmt.Errorf("%w: url=%s title=%q", ErrNoResultsSurface, diag.Url, diag.Title)
			span.SetStatus(codes.Error, outErr.Error())
			return Table{}, outErr
		}
		slog.WarnContext(ctx, "results table candidates stale, using first generic table")
		tableEl = tables[0]
	}

	rowEls, err := tableEl.QuerySelectorAll("tr")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query table rows")
		return Table{}, err
	}
	span.SetAttributes(attribute.Int("row_count", len(rowEls)))
	slog.DebugContext(ctx, "found table rows", "count", len(rowEls))

	if len(rowEls) < 2 {
		slog.WarnContext(ctx, "table present but no data rows")
		return Table{}, nil
	}

	headers, err := readCells(rowEls[0], "th, td")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read header row")
		return Table{}, err
	}

	cells := make([][]string, 0, len(rowEls)-1)
	for i, rowEl := range rowEls[1:] {
		if len(cells) >= MaxHarvestRows {
			slog.InfoContext(ctx, "row cap reached, stopping harvest", "cap", MaxHarvestRows)
			break
		}
		row, err := readCells(rowEl, "td, th")
		if err != nil {
			slog.WarnContext(ctx, "failed to read row, skipping", "row", i+1, "err", err)
			continue
		}
		cells = append(cells, row)
	}

	out := zipTable(headers, cells)
	span.SetAttributes(attribute.Int("record_count", len(out.Rows)))
	return out, nil
}

func readCells(row browser.Element, cellSelector string) ([]string, error) {
	cellEls, err := row.QuerySelectorAll(cellSelector)
	if err != nil {
		return nil, err
	}
	cells := make([]string, 0, len(cellEls))
	for _, cellEl := range cellEls {
		text, err := cellEl.InnerText()
		if err != nil {
			return nil, err
		}
		cells = append(cells, strings.TrimSpace(text))
	}
	return cells, nil
}

// zipTable builds raw records by positionally zipping headers to cells.
// Rows with fewer cells than headers are malformed partial renders and
// are skipped; extra cells beyond the header count are truncated. Rows
// whose identifier cell is absent or a sentinel placeholder are
// discarded.
func zipTable(headers []string, rows [][]string) Table {
	out := Table{Columns: headers}
	for _, cells := range rows {
		if len(cells) < len(headers) {
			continue
		}
		record := RawRecord{}
		for i, header := range headers {
			record[header] = cells[i]
		}
		id := record[identifierColumn]
		if id == "" || id == "-" {
			continue
		}
		out.Rows = append(out.Rows, record)
	}
	return out
}

// HarvestContent is the fallback harvest path: when element-level reads
// fail it parses the serialized page html for the first table instead.
// The output shape and filtering are identical to Harvest.
func (c *Client) HarvestContent(ctx context.Context) (Table, error) {
	ctx, span := tracer.Start(ctx, "client:HarvestContent")
	defer span.End()

	content, err := c.page.Content()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read page content")
		return Table{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse page content")
		return Table{}, err
	}

	tableSel := doc.Find("table").First()
	if tableSel.Length() == 0 {
		diag := c.Diagnostics(ctx)
		outErr := fmt.Errorf("%w: url=%s title=%q", ErrNoResultsSurface, diag.Url, diag.Title)
		span.SetStatus(codes.Error, outErr.Error())
		return Table{}, outErr
	}

	var headers []string
	var cells [][]string
	tableSel.Find("tr").EachWithBreak(func(i int, rowSel *goquery.Selection) bool {
		var row []string
		rowSel.Find("th, td").Each(func(_ int, cellSel *goquery.Selection) {
			row = append(row, strings.TrimSpace(cellSel.Text()))
		})
		if i == 0 {
			headers = row
			return true
		}
		cells = append(cells, row)
		return len(cells) < MaxHarvestRows
	})
	if len(headers) == 0 || len(cells) == 0 {
		slog.WarnContext(ctx, "content table present but no data rows")
		return Table{}, nil
	}

	out := zipTable(headers, cells)
	span.SetAttributes(attribute.Int("record_count", len(out.Rows)))
	return out, nil
}
