// Package appointments turns a harvested report table into canonical
// appointment records and persists them keyed by booking id and report day.
package appointments

import (
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/appointments")

// Appointment is one canonical record for a single report day. Temporal
// fields are pointers so an unparsable timestamp stays null instead of
// dropping the record.
type Appointment struct {
	BookingID    string
	CustomerName string
	FirstName    string
	LastName     string
	Email        string
	ServiceType  string
	LocationName string
	LocationID   string
	Status       string

	StartTime          *time.Time
	AppointmentDate    string
	AppointmentTime    string
	AppointmentTime12h string

	IsGoogleBooking bool
	ExtractedAt     time.Time
	// DataDate partitions records by report day, "2006-01-02".
	DataDate string
}

type Status int

const (
	StatusSuccess Status = iota
	StatusWarning
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Outcome summarizes one pipeline invocation.
type Outcome struct {
	Status           Status
	RawRecordsFound  int
	RecordsProcessed int
	Date             string
	URL              string
	Err              error
}
