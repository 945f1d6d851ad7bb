// Package reststore persists appointment records through a PostgREST
// endpoint, matching the hosted-postgres deployment of the pipeline.
package reststore

import (
	"context"
	"fmt"
	"time"

	"appointments-backend/lib/telemetry"
	"appointments-backend/services/appointments"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/appointments/reststore")

const table = "daily_appointments"

type Options struct {
	// BaseUrl is the REST root, e.g. "https://<project>.supabase.co"
	BaseUrl string
	ApiKey  string
}

type Store struct {
	http *resty.Client
}

func New(opts Options) Store {
	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetTimeout(time.Second * 30)
	client.SetHeader("apikey", opts.ApiKey)
	client.SetAuthToken(opts.ApiKey)

	telemetry.InstrumentResty(client, "services/appointments/reststore")

	return Store{http: client}
}

// row is the wire shape of one record. Pointer fields serialize to
// explicit json nulls so an upsert clears stale values.
type row struct {
	BookingID          string  `json:"booking_id"`
	DataDate           string  `json:"data_date"`
	CustomerName       *string `json:"customer_name"`
	Email              *string `json:"email"`
	ServiceType        *string `json:"service_type"`
	LocationName       *string `json:"location_name"`
	LocationID         *string `json:"location_id"`
	Status             *string `json:"status"`
	StartTime          *string `json:"start_time"`
	AppointmentDate    *string `json:"appointment_date"`
	AppointmentTime    *string `json:"appointment_time"`
	AppointmentTime12h *string `json:"appointment_time_12h"`
	IsGoogleBooking    bool    `json:"is_google_booking"`
	ExtractedAt        string  `json:"extracted_at"`
}

func (s Store) Upsert(ctx context.Context, records []appointments.Appointment) (int, error) {
	ctx, span := tracer.Start(ctx, "Upsert")
	defer span.End()

	span.SetAttributes(attribute.Int("records", len(records)))

	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]row, len(records))
	for i, record := range records {
		rows[i] = toRow(record)
	}

	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParam("on_conflict", "booking_id,data_date").
		SetHeader("Prefer", "resolution=merge-duplicates").
		SetBody(rows).
		Post("/rest/v1/" + table)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert request failed")
		return 0, err
	}
	if res.IsError() {
		err := fmt.Errorf("upsert returned %s: %s", res.Status(), res.String())
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return len(records), nil
}

func toRow(record appointments.Appointment) row {
	out := row{
		BookingID:          record.BookingID,
		DataDate:           record.DataDate,
		CustomerName:       optional(record.CustomerName),
		Email:              optional(record.Email),
		ServiceType:        optional(record.ServiceType),
		LocationName:       optional(record.LocationName),
		LocationID:         optional(record.LocationID),
		Status:             optional(record.Status),
		AppointmentDate:    optional(record.AppointmentDate),
		AppointmentTime:    optional(record.AppointmentTime),
		AppointmentTime12h: optional(record.AppointmentTime12h),
		IsGoogleBooking:    record.IsGoogleBooking,
		ExtractedAt:        record.ExtractedAt.Format(time.RFC3339),
	}
	if record.StartTime != nil {
		stamp := record.StartTime.Format(time.RFC3339)
		out.StartTime = &stamp
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
