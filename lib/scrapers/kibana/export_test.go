package kibana

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchDay(t *testing.T) {
	var gotPath, gotJobParams string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotJobParams = r.URL.Query().Get("jobParams")
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(
			"bookingId,client.firstName,client.lastName,startDateTime\n" +
				"48213,Jane,Doe,2024-01-05T10:00:00.000Z\n" +
				"-,Ghost,Row,2024-01-05T11:00:00.000Z\n",
		))
	}))
	defer server.Close()

	client, err := NewExportClient(ExportClientOptions{
		BaseUrl:   server.URL,
		AuthToken: "token",
	})
	require.NoError(t, err)

	table, err := client.FetchDay(context.Background(), time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Equal(t, "/api/reporting/generate/csv", gotPath)
	require.Contains(t, gotJobParams, "gte:'2024-01-05T08:00:00.000Z'")
	require.Contains(t, gotJobParams, "bookingId")

	require.Len(t, table.Rows, 1)
	require.Equal(t, "48213", table.Rows[0]["bookingId"])
	require.Equal(t, "Jane", table.Rows[0]["client.firstName"])
}

func TestParseExportCsvEmpty(t *testing.T) {
	table, err := parseExportCsv(nil)
	require.NoError(t, err)
	require.Empty(t, table.Rows)
}
