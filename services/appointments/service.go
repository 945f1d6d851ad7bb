package appointments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"appointments-backend/lib/browser"
	"appointments-backend/lib/scrapers/kibana"
	"appointments-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Credentials struct {
	Username string
	Password string
	// SessionCookie skips the login form when set
	SessionCookie string
}

type ServiceOptions struct {
	Client      *kibana.Client
	Page        browser.Page
	Store       Store
	Credentials Credentials
	Diagnostics DiagnosticsSink
	// Now overrides the extraction clock, nil means timezone.Now
	Now func() time.Time
}

// Service drives one extraction run, login through persistence. Each
// stage runs at most once, a stage failure captures diagnostics and
// ends the run.
type Service struct {
	client      *kibana.Client
	page        browser.Page
	store       Store
	credentials Credentials
	diagnostics DiagnosticsSink
	now         func() time.Time
}

func NewService(opts ServiceOptions) Service {
	now := opts.Now
	if now == nil {
		now = timezone.Now
	}
	return Service{
		client:      opts.Client,
		page:        opts.Page,
		store:       opts.Store,
		credentials: opts.Credentials,
		diagnostics: opts.Diagnostics,
		now:         now,
	}
}

func (s Service) Run(ctx context.Context, view kibana.ReportView) Outcome {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	now := s.now()
	outcome := Outcome{
		Status: StatusSuccess,
		Date:   timezone.DataDate(now),
	}

	state, err := s.login(ctx)
	outcome.URL = s.page.URL()
	if err != nil {
		s.diagnostics.Capture(ctx, s.client, s.page, "login")
		return fail(ctx, span, outcome, fmt.Errorf("login: %w", err))
	}
	if state == kibana.SessionAmbiguous {
		slog.WarnContext(ctx, "proceeding on ambiguous session verification")
		outcome.Status = StatusWarning
	}

	err = s.client.OpenReport(ctx, view)
	outcome.URL = s.page.URL()
	if err != nil {
		s.diagnostics.Capture(ctx, s.client, s.page, "navigate")
		return fail(ctx, span, outcome, fmt.Errorf("open report: %w", err))
	}

	table, err := s.client.Harvest(ctx)
	if err != nil {
		slog.WarnContext(ctx, "element harvest failed, reparsing serialized content", "err", err)
		table, err = s.client.HarvestContent(ctx)
	}
	if err != nil {
		s.diagnostics.Capture(ctx, s.client, s.page, "harvest")
		return fail(ctx, span, outcome, fmt.Errorf("harvest: %w", err))
	}
	outcome.RawRecordsFound = len(table.Rows)

	return finishRun(ctx, span, s.store, outcome, table, now, func(failCtx context.Context) {
		s.diagnostics.Capture(failCtx, s.client, s.page, "persist")
	})
}

func (s Service) login(ctx context.Context) (kibana.SessionState, error) {
	if s.credentials.SessionCookie != "" {
		return s.client.LoginWithCookie(ctx, s.credentials.SessionCookie)
	}
	return s.client.Login(ctx, s.credentials.Username, s.credentials.Password)
}

type ExportRunOptions struct {
	Client *kibana.ExportClient
	Store  Store
	// Now overrides the extraction clock, zero means timezone.Now()
	Now time.Time
}

// RunExport ingests one day of records through the CSV reporting api
// instead of the browser, feeding the same normalize and persist tail
// as Run. It is the preferred path when a session cookie or api token
// is available.
func RunExport(ctx context.Context, opts ExportRunOptions) Outcome {
	ctx, span := tracer.Start(ctx, "RunExport")
	defer span.End()

	now := opts.Now
	if now.IsZero() {
		now = timezone.Now()
	}
	outcome := Outcome{
		Status: StatusSuccess,
		Date:   timezone.DataDate(now),
	}

	table, err := opts.Client.FetchDay(ctx, now)
	if err != nil {
		return fail(ctx, span, outcome, fmt.Errorf("fetch export: %w", err))
	}
	outcome.RawRecordsFound = len(table.Rows)

	return finishRun(ctx, span, opts.Store, outcome, table, now, nil)
}

// finishRun is the shared tail of both ingestion paths: normalize the
// harvested table, short-circuit on an empty canonical set, persist.
// onPersistErr, when non-nil, runs before the failure outcome is built.
func finishRun(
	ctx context.Context,
	span trace.Span,
	store Store,
	outcome Outcome,
	table kibana.Table,
	now time.Time,
	onPersistErr func(ctx context.Context),
) Outcome {
	records := Normalize(ctx, table, NormalizeOptions{Now: now})
	outcome.RecordsProcessed = len(records)

	if len(records) == 0 {
		if outcome.RawRecordsFound > 0 {
			slog.WarnContext(
				ctx, "all harvested rows were filtered out",
				"raw", outcome.RawRecordsFound,
			)
			outcome.Status = StatusWarning
		} else {
			slog.InfoContext(ctx, "no appointments found for today")
		}
		return outcome
	}

	written, err := store.Upsert(ctx, records)
	if err != nil {
		if onPersistErr != nil {
			onPersistErr(ctx)
		}
		return fail(ctx, span, outcome, fmt.Errorf("persist: %w", err))
	}
	outcome.RecordsProcessed = written

	span.SetAttributes(
		attribute.Int("raw_records", outcome.RawRecordsFound),
		attribute.Int("records_processed", outcome.RecordsProcessed),
		attribute.String("status", outcome.Status.String()),
	)
	slog.InfoContext(
		ctx, "extraction run finished",
		"status", outcome.Status.String(),
		"raw", outcome.RawRecordsFound,
		"processed", outcome.RecordsProcessed,
		"date", outcome.Date,
	)
	return outcome
}

func fail(ctx context.Context, span trace.Span, outcome Outcome, err error) Outcome {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	slog.ErrorContext(ctx, "extraction run failed", "err", err)
	outcome.Status = StatusError
	outcome.Err = err
	return outcome
}
