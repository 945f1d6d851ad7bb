package appointments

import (
	"context"
	"database/sql"
	"time"

	"appointments-backend/services/appointments/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Store persists canonical records. Upsert replaces any existing record
// with the same booking id and data date and reports how many records
// were written.
type Store interface {
	Upsert(ctx context.Context, records []Appointment) (int, error)
}

// SqlStore writes records through the daily_appointments table, one
// transaction per batch.
type SqlStore struct {
	db  *sql.DB
	qry *db.Queries
}

func NewSqlStore(database *sql.DB) SqlStore {
	return SqlStore{
		db:  database,
		qry: db.New(database),
	}
}

func (s SqlStore) Upsert(ctx context.Context, records []Appointment) (int, error) {
	ctx, span := tracer.Start(ctx, "SqlStore:Upsert")
	defer span.End()

	span.SetAttributes(attribute.Int("records", len(records)))

	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	for _, record := range records {
		err := txqry.UpsertAppointment(ctx, upsertParams(record))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return len(records), nil
}

func upsertParams(record Appointment) db.UpsertAppointmentParams {
	return db.UpsertAppointmentParams{
		BookingID:          record.BookingID,
		DataDate:           record.DataDate,
		CustomerName:       nullable(record.CustomerName),
		Email:              nullable(record.Email),
		ServiceType:        nullable(record.ServiceType),
		LocationName:       nullable(record.LocationName),
		LocationID:         nullable(record.LocationID),
		Status:             nullable(record.Status),
		StartTime:          nullableTime(record.StartTime),
		AppointmentDate:    nullable(record.AppointmentDate),
		AppointmentTime:    nullable(record.AppointmentTime),
		AppointmentTime12h: nullable(record.AppointmentTime12h),
		IsGoogleBooking:    boolToInt(record.IsGoogleBooking),
		ExtractedAt:        record.ExtractedAt.Format(time.RFC3339),
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
