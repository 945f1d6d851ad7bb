package reststore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"appointments-backend/services/appointments"

	"github.com/stretchr/testify/require"
)

func TestUpsert(t *testing.T) {
	var gotPath, gotConflict, gotPrefer, gotApiKey string
	var gotRaw []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotConflict = r.URL.Query().Get("on_conflict")
		gotPrefer = r.Header.Get("Prefer")
		gotApiKey = r.Header.Get("apikey")
		gotRaw, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	store := New(Options{BaseUrl: server.URL, ApiKey: "secret"})

	start := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	written, err := store.Upsert(context.Background(), []appointments.Appointment{
		{
			BookingID:    "48213",
			DataDate:     "2024-01-05",
			CustomerName: "Jane Doe",
			StartTime:    &start,
			ExtractedAt:  start,
		},
		{
			BookingID:   "57110",
			DataDate:    "2024-01-05",
			ExtractedAt: start,
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, written)

	require.Equal(t, "/rest/v1/daily_appointments", gotPath)
	require.Equal(t, "booking_id,data_date", gotConflict)
	require.Equal(t, "resolution=merge-duplicates", gotPrefer)
	require.Equal(t, "secret", gotApiKey)

	var gotBody []map[string]any
	require.NoError(t, json.Unmarshal(gotRaw, &gotBody))
	require.Len(t, gotBody, 2)
	require.Equal(t, "48213", gotBody[0]["booking_id"])
	require.Equal(t, "2024-01-05T10:00:00Z", gotBody[0]["start_time"])
	// absent values travel as explicit nulls
	require.Nil(t, gotBody[1]["start_time"])
	require.Nil(t, gotBody[1]["customer_name"])
}

func TestUpsertEmptyBatch(t *testing.T) {
	store := New(Options{BaseUrl: "http://unreachable.invalid", ApiKey: "secret"})

	written, err := store.Upsert(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, written)
}

func TestUpsertServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"permission denied"}`, http.StatusForbidden)
	}))
	defer server.Close()

	store := New(Options{BaseUrl: server.URL, ApiKey: "secret"})

	_, err := store.Upsert(context.Background(), []appointments.Appointment{
		{BookingID: "48213", DataDate: "2024-01-05"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "permission denied")
}
