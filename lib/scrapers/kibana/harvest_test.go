package kibana

import (
	"context"
	"fmt"
	"testing"

	"appointments-backend/lib/browser/browsertest"

	"github.com/stretchr/testify/require"
)

func TestHarvest(t *testing.T) {
	page := browsertest.NewPage()
	page.Address = testBaseUrl + "/app/discover"
	page.Elements["table"] = browsertest.NewTable([][]string{
		{"bookingId", "client.firstName", "client.lastName", "startDateTime"},
		{"48213", "Jane", "Doe", "2024-01-05T10:00:00.000Z"},
		// partial render, fewer cells than headers: skipped
		{"48214", "John"},
		// sentinel identifier: discarded
		{"-", "Ghost", "Row", "2024-01-05T11:00:00.000Z"},
		// extra cell beyond the header count: truncated
		{"48215", "Mary", "Major", "2024-01-05T12:00:00.000Z", "overflow"},
	})
	client := newTestClient(t, page)

	table, err := client.Harvest(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"bookingId", "client.firstName", "client.lastName", "startDateTime"}, table.Columns)
	require.Len(t, table.Rows, 2)

	require.Equal(t, RawRecord{
		"bookingId":        "48213",
		"client.firstName": "Jane",
		"client.lastName":  "Doe",
		"startDateTime":    "2024-01-05T10:00:00.000Z",
	}, table.Rows[0])
	require.Equal(t, "48215", table.Rows[1]["bookingId"])
	_, hasOverflow := table.Rows[1]["overflow"]
	require.False(t, hasOverflow)
}

func TestHarvestTrimsWhitespace(t *testing.T) {
	page := browsertest.NewPage()
	page.Elements["table"] = browsertest.NewTable([][]string{
		{"  bookingId ", " status "},
		{" 48213 ", " Confirmed "},
	})
	client := newTestClient(t, page)

	table, err := client.Harvest(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"bookingId", "status"}, table.Columns)
	require.Equal(t, "Confirmed", table.Rows[0]["status"])
}

func TestHarvestEmptyTable(t *testing.T) {
	page := browsertest.NewPage()
	page.Elements["table"] = browsertest.NewTable([][]string{
		{"bookingId", "status"},
	})
	client := newTestClient(t, page)

	table, err := client.Harvest(context.Background())
	require.NoError(t, err)
	require.Empty(t, table.Rows)
}

func TestHarvestRowCap(t *testing.T) {
	rows := [][]string{{"bookingId", "status"}}
	for i := 0; i < MaxHarvestRows+50; i++ {
		rows = append(rows, []string{fmt.Sprintf("%d", 10000+i), "Confirmed"})
	}
	page := browsertest.NewPage()
	page.Elements["table"] = browsertest.NewTable(rows)
	client := newTestClient(t, page)

	table, err := client.Harvest(context.Background())
	require.NoError(t, err)
	// reaching the cap is a normal termination, not an error
	require.Len(t, table.Rows, MaxHarvestRows)
}

func TestHarvestNoTable(t *testing.T) {
	page := browsertest.NewPage()
	page.Address = testBaseUrl + "/app/discover"
	page.PageTitle = "Discover"
	client := newTestClient(t, page)

	_, err := client.Harvest(context.Background())
	require.ErrorIs(t, err, ErrNoResultsSurface)
}

func TestHarvestContentFallback(t *testing.T) {
	page := browsertest.NewPage()
	page.Html = `
		<html><body>
		<table>
			<tr><th>bookingId</th><th>status</th></tr>
			<tr><td>48213</td><td>Confirmed</td></tr>
			<tr><td>-</td><td>Canceled</td></tr>
		</table>
		</body></html>`
	client := newTestClient(t, page)

	table, err := client.HarvestContent(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"bookingId", "status"}, table.Columns)
	require.Len(t, table.Rows, 1)
	require.Equal(t, "48213", table.Rows[0]["bookingId"])
}
