package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"appointments-backend/lib/browser"
	"appointments-backend/lib/configutil"
	"appointments-backend/lib/configutil/configsqlite"
	"appointments-backend/lib/scrapers/kibana"
	"appointments-backend/lib/telemetry"
	"appointments-backend/lib/util/serviceutil"
	"appointments-backend/services/appointments"
	"appointments-backend/services/appointments/db"
	"appointments-backend/services/appointments/reststore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lmittmann/tint"
)

type RestConfig struct {
	BaseUrl string `json:"baseUrl"`
	ApiKey  string `json:"apiKey"`
}

type Config struct {
	Database configsqlite.Struct `json:"database"`
	// Rest takes precedence over Database when set
	Rest *RestConfig `json:"rest"`

	BaseUrl       string `json:"baseUrl"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	SessionCookie string `json:"sessionCookie"`
	AuthToken     string `json:"authToken"`

	ViewId     string `json:"viewId"`
	WindowDays int    `json:"windowDays"`

	// UseExportApi forces the CSV reporting api path. Setting AuthToken
	// implies it.
	UseExportApi bool `json:"useExportApi"`

	Headless       *bool  `json:"headless"`
	DiagnosticsDir string `json:"diagnosticsDir"`
}

func openStore(cfg Config) (appointments.Store, error) {
	if cfg.Rest != nil {
		return reststore.New(reststore.Options{
			BaseUrl: cfg.Rest.BaseUrl,
			ApiKey:  cfg.Rest.ApiKey,
		}), nil
	}
	database, err := cfg.Database.OpenDB(db.Schema)
	if err != nil {
		return nil, err
	}
	return appointments.NewSqlStore(database), nil
}

func runBrowser(ctx context.Context, cfg Config, store appointments.Store) appointments.Outcome {
	headless := true
	if cfg.Headless != nil {
		headless = *cfg.Headless
	}
	session, err := browser.Launch(browser.SessionOptions{Headless: headless})
	if err != nil {
		serviceutil.Fatal("failed to launch browser", err)
	}
	defer session.Close()

	client, err := kibana.NewClient(kibana.ClientOptions{
		BaseUrl: cfg.BaseUrl,
		Page:    session.Page(),
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize report client", err)
	}

	diagnosticsDir := cfg.DiagnosticsDir
	if diagnosticsDir == "" {
		diagnosticsDir = "diagnostics"
	}

	service := appointments.NewService(appointments.ServiceOptions{
		Client: client,
		Page:   session.Page(),
		Store:  store,
		Credentials: appointments.Credentials{
			Username:      cfg.Username,
			Password:      cfg.Password,
			SessionCookie: cfg.SessionCookie,
		},
		Diagnostics: appointments.DiagnosticsSink{Dir: diagnosticsDir},
	})
	return service.Run(ctx, kibana.LastDays(cfg.ViewId, cfg.WindowDays))
}

func runExport(ctx context.Context, cfg Config, store appointments.Store) appointments.Outcome {
	client, err := kibana.NewExportClient(kibana.ExportClientOptions{
		BaseUrl:       cfg.BaseUrl,
		SessionCookie: cfg.SessionCookie,
		AuthToken:     cfg.AuthToken,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize export client", err)
	}
	return appointments.RunExport(ctx, appointments.ExportRunOptions{
		Client: client,
		Store:  store,
	})
}

func printOutcome(outcome appointments.Outcome) {
	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	w.AppendHeader(table.Row{"status", "date", "raw rows", "processed", "url"})
	w.AppendRow(table.Row{
		outcome.Status.String(),
		outcome.Date,
		outcome.RawRecordsFound,
		outcome.RecordsProcessed,
		outcome.URL,
	})
	if outcome.Err != nil {
		w.AppendFooter(table.Row{"error", outcome.Err.Error()})
	}
	w.Render()
}

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "appointments-scraper")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	telemetry.InstrumentPerfStats(ctx)

	store, err := openStore(cfg)
	if err != nil {
		serviceutil.Fatal("failed to open store", err)
	}

	t1 := time.Now()
	var outcome appointments.Outcome
	if cfg.UseExportApi || cfg.AuthToken != "" {
		outcome = runExport(ctx, cfg, store)
	} else {
		outcome = runBrowser(ctx, cfg, store)
	}
	slog.Info("extraction time", "seconds", time.Since(t1).Seconds())

	printOutcome(outcome)

	tel.Shutdown(context.Background())
	if outcome.Status == appointments.StatusError {
		os.Exit(1)
	}
}
