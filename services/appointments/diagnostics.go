package appointments

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"appointments-backend/lib/browser"
	"appointments-backend/lib/scrapers/kibana"
	"appointments-backend/lib/timezone"
)

// DiagnosticsSink captures a screenshot and a raw content dump when a
// pipeline stage fails. It is a write-only side channel, capture
// failures are logged and never affect the run outcome.
type DiagnosticsSink struct {
	Dir string
}

func (d DiagnosticsSink) Capture(ctx context.Context, client *kibana.Client, page browser.Page, stage string) {
	if d.Dir == "" {
		return
	}
	err := os.MkdirAll(d.Dir, 0o755)
	if err != nil {
		slog.WarnContext(ctx, "failed to create diagnostics dir", "err", err)
		return
	}

	stamp := timezone.Now().Format("20060102_150405")
	prefix := fmt.Sprintf("%s_%s", stage, stamp)

	err = page.Screenshot(filepath.Join(d.Dir, prefix+".png"))
	if err != nil {
		slog.WarnContext(ctx, "failed to capture screenshot", "stage", stage, "err", err)
	}

	content, err := page.Content()
	if err != nil {
		slog.WarnContext(ctx, "failed to dump page content", "stage", stage, "err", err)
	} else {
		err = os.WriteFile(filepath.Join(d.Dir, prefix+".html"), []byte(content), 0o644)
		if err != nil {
			slog.WarnContext(ctx, "failed to write content dump", "stage", stage, "err", err)
		}
	}

	info := client.Diagnostics(ctx)
	slog.ErrorContext(
		ctx, "stage failed",
		"stage", stage,
		"url", info.Url,
		"title", info.Title,
		"callouts", info.Callouts,
	)
}
