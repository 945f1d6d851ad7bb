package appointments

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"appointments-backend/lib/scrapers/kibana"
	"appointments-backend/lib/timezone"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
)

type field int

const (
	fieldUnknown field = iota
	fieldBookingId
	fieldFirstName
	fieldLastName
	fieldEmail
	fieldServiceType
	fieldStartTime
	fieldLocationName
	fieldLocationId
	fieldStatus
	fieldIsGoogleBooking
)

// raw report labels to canonical fields. when a report exposes several
// labels for one field the rightmost column in the table wins.
var canonicalLabels = map[string]field{
	"bookingId":             fieldBookingId,
	"client.firstName":      fieldFirstName,
	"client.lastName":       fieldLastName,
	"client.email":          fieldEmail,
	"offering.name":         fieldServiceType,
	"startDateTime":         fieldStartTime,
	"utcCreatedDateTime":    fieldStartTime,
	"location.businessName": fieldLocationName,
	"location.businessId":   fieldLocationId,
	"bookingStatus.label":   fieldStatus,
	"isGoogleBooking":       fieldIsGoogleBooking,
}

// known labels in sorted order so similarity ties resolve the same way
// on every run
var knownLabels = func() []string {
	out := make([]string, 0, len(canonicalLabels))
	for label := range canonicalLabels {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}()

// timestamp layouts the report has been seen rendering, including the
// " @ " decorator form the discover table uses for date columns
var timeLayouts = []string{
	"Jan 2, 2006 @ 15:04:05.000",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type NormalizeOptions struct {
	// Now is the extraction timestamp, zero value means timezone.Now()
	Now time.Time
	// DataDate partitions the output, empty means derived from Now
	DataDate string
	// FuzzyThreshold gates label matching when a raw column is not in
	// the mapping table, zero value means 0.88
	FuzzyThreshold float64
}

// Normalize maps a harvested table onto canonical appointment records.
// Rows without a numeric booking id are dropped, rows whose timestamp
// fails every known layout keep null temporal fields.
func Normalize(ctx context.Context, table kibana.Table, opts NormalizeOptions) []Appointment {
	ctx, span := tracer.Start(ctx, "Normalize")
	defer span.End()

	if opts.Now.IsZero() {
		opts.Now = timezone.Now()
	}
	if opts.DataDate == "" {
		opts.DataDate = timezone.DataDate(opts.Now)
	}
	if opts.FuzzyThreshold == 0 {
		opts.FuzzyThreshold = 0.88
	}

	columns := resolveColumns(ctx, table.Columns, opts.FuzzyThreshold)

	var out []Appointment
	for _, row := range table.Rows {
		record, ok := normalizeRow(row, table.Columns, columns, opts)
		if !ok {
			continue
		}
		out = append(out, record)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StartTime != nil && b.StartTime != nil && !a.StartTime.Equal(*b.StartTime) {
			return a.StartTime.Before(*b.StartTime)
		}
		if (a.StartTime != nil) != (b.StartTime != nil) {
			return a.StartTime != nil
		}
		return a.BookingID < b.BookingID
	})

	span.SetAttributes(
		attribute.Int("raw_rows", len(table.Rows)),
		attribute.Int("canonical_records", len(out)),
	)
	return out
}

// resolveColumns maps each raw column label to a canonical field, first
// exactly, then by similarity against the known labels so renamed or
// decorated headers still land on the right field.
func resolveColumns(ctx context.Context, labels []string, threshold float64) map[string]field {
	out := make(map[string]field, len(labels))
	for _, label := range labels {
		if f, ok := canonicalLabels[label]; ok {
			out[label] = f
			continue
		}

		var mostSimilarity float64
		var mostSimilar field
		for _, known := range knownLabels {
			sim := matchr.JaroWinkler(label, known, false)
			if sim > mostSimilarity {
				mostSimilarity = sim
				mostSimilar = canonicalLabels[known]
			}
		}
		if mostSimilarity >= threshold {
			slog.DebugContext(
				ctx, "fuzzy matched report column",
				"label", label,
				"similarity", mostSimilarity,
			)
			out[label] = mostSimilar
			continue
		}
		out[label] = fieldUnknown
	}
	return out
}

func normalizeRow(row kibana.RawRecord, order []string, columns map[string]field, opts NormalizeOptions) (Appointment, bool) {
	record := Appointment{
		ExtractedAt: opts.Now,
		DataDate:    opts.DataDate,
	}

	empty := true
	for _, label := range order {
		value := row[label]
		if value == "" || value == "-" {
			continue
		}
		switch columns[label] {
		case fieldBookingId:
			record.BookingID = value
		case fieldFirstName:
			record.FirstName = value
		case fieldLastName:
			record.LastName = value
		case fieldEmail:
			record.Email = value
		case fieldServiceType:
			record.ServiceType = value
		case fieldStartTime:
			record.StartTime = parseTimestamp(value)
		case fieldLocationName:
			record.LocationName = value
		case fieldLocationId:
			record.LocationID = value
		case fieldStatus:
			record.Status = value
		case fieldIsGoogleBooking:
			record.IsGoogleBooking = strings.EqualFold(value, "true")
		default:
			continue
		}
		empty = false
	}
	if empty {
		return Appointment{}, false
	}
	if !isDigits(record.BookingID) {
		return Appointment{}, false
	}

	record.CustomerName = strings.TrimSpace(record.FirstName + " " + record.LastName)
	if record.StartTime != nil {
		record.AppointmentDate = record.StartTime.Format("2006-01-02")
		record.AppointmentTime = record.StartTime.Format("15:04")
		record.AppointmentTime12h = record.StartTime.Format("03:04 PM")
	}
	return record, true
}

func parseTimestamp(value string) *time.Time {
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, value, timezone.Location)
		if err == nil {
			return &t
		}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
