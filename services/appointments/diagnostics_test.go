package appointments

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"appointments-backend/lib/browser/browsertest"
	"appointments-backend/lib/scrapers/kibana"
	"appointments-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestDiagnosticsCaptureWritesArtifacts(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "appointments")
	t.Cleanup(cleanup)

	page := browsertest.NewPage()
	page.Address = testBaseUrl + "/app/discover"
	page.PageTitle = "Discover"
	page.Html = "<html><body>report view</body></html>"

	client, err := kibana.NewClient(kibana.ClientOptions{
		BaseUrl: testBaseUrl,
		Page:    page,
	})
	require.NoError(t, err)

	dir := t.TempDir()
	sink := DiagnosticsSink{Dir: dir}
	sink.Capture(context.Background(), client, page, "harvest")

	require.Len(t, page.Screenshots, 1)
	require.Contains(t, page.Screenshots[0], filepath.Join(dir, "harvest_"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var dumps []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".html") {
			dumps = append(dumps, entry.Name())
		}
	}
	require.Len(t, dumps, 1)
	require.True(t, strings.HasPrefix(dumps[0], "harvest_"))

	content, err := os.ReadFile(filepath.Join(dir, dumps[0]))
	require.NoError(t, err)
	require.Equal(t, page.Html, string(content))
}

func TestDiagnosticsCaptureWithoutDirIsNoop(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "appointments")
	t.Cleanup(cleanup)

	page := browsertest.NewPage()
	client, err := kibana.NewClient(kibana.ClientOptions{
		BaseUrl: testBaseUrl,
		Page:    page,
	})
	require.NoError(t, err)

	var sink DiagnosticsSink
	sink.Capture(context.Background(), client, page, "harvest")
	require.Empty(t, page.Screenshots)
}
