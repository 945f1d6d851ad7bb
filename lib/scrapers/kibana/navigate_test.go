package kibana

import (
	"context"
	"testing"
	"time"

	"appointments-backend/lib/browser/browsertest"

	"github.com/stretchr/testify/require"
)

func TestReportUrlRollingWindow(t *testing.T) {
	page := browsertest.NewPage()
	client := newTestClient(t, page)

	link := client.reportUrl(LastDays("84b881a0", 15))
	require.Equal(
		t,
		testBaseUrl+"/app/discover#/view/84b881a0?_g=(filters:!(),refreshInterval:(pause:!t,value:0),time:(from:now-15d,to:now))",
		link,
	)
}

func TestReportUrlExplicitRange(t *testing.T) {
	page := browsertest.NewPage()
	client := newTestClient(t, page)

	link := client.reportUrl(ReportView{
		ViewId: "84b881a0",
		From:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
	})
	require.Contains(t, link, "time:(from:'2024-01-05T00:00:00.000Z',to:'2024-01-06T00:00:00.000Z')")
}

func TestOpenReportWaitsForTable(t *testing.T) {
	page := browsertest.NewPage()
	page.Elements["table"] = browsertest.NewTable([][]string{
		{"bookingId"},
		{"48213"},
	})
	client := newTestClient(t, page)

	err := client.OpenReport(context.Background(), LastDays("view-1", 15))
	require.NoError(t, err)
	// the settle interval for asynchronous data population ran
	require.Contains(t, page.Slept, dataSettleInterval)
}

func TestOpenReportRejectedSession(t *testing.T) {
	page := browsertest.NewPage()
	page.OnGoto = func(url string) string {
		return testBaseUrl + "/login?expired=1"
	}
	client := newTestClient(t, page)

	err := client.OpenReport(context.Background(), LastDays("view-1", 15))
	require.ErrorIs(t, err, ErrSessionRejected)
}

func TestOpenReportNoResultsSurface(t *testing.T) {
	page := browsertest.NewPage()
	page.PageTitle = "Discover - Kibana"
	page.Html = `<html><body>
		<div class="euiCallOut--danger">Search session expired</div>
	</body></html>`
	client := newTestClient(t, page)

	err := client.OpenReport(context.Background(), LastDays("view-1", 15))
	require.ErrorIs(t, err, ErrNoResultsSurface)
	require.ErrorContains(t, err, "Search session expired")
}
