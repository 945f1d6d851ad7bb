package kibana

import (
	"context"
	"testing"

	"appointments-backend/lib/browser/browsertest"
	"appointments-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const testBaseUrl = "https://kibana.example.com"

func newLoginPage() *browsertest.Page {
	page := browsertest.NewPage()
	page.Address = testBaseUrl + "/login"
	// the server redirects the bare base url to the login surface
	page.OnGoto = func(url string) string {
		if url == testBaseUrl {
			return testBaseUrl + "/login"
		}
		return url
	}
	page.Elements[`input[name="username"]`] = &browsertest.Element{Label: "username"}
	page.Elements[`input[type="password"]`] = &browsertest.Element{Label: "password"}
	page.Elements[`button[type="submit"]`] = &browsertest.Element{Label: "submit"}
	return page
}

func newTestClient(t *testing.T, page *browsertest.Page) *Client {
	client, err := NewClient(ClientOptions{
		BaseUrl: testBaseUrl,
		Page:    page,
	})
	require.NoError(t, err)
	return client
}

func TestLoginVerifiedBySuccessMarker(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "scrapers/kibana")
	defer cleanup()

	page := newLoginPage()
	page.OnAction = func(action, label string) {
		if action == "click" && label == "submit" {
			page.Address = testBaseUrl + "/app/home"
			page.Elements[`[data-test-subj="kibanaChrome"]`] = &browsertest.Element{Label: "chrome"}
		}
	}
	client := newTestClient(t, page)

	state, err := client.Login(context.Background(), "user", "hunter2")
	require.NoError(t, err)
	require.Equal(t, SessionVerified, state)

	require.Equal(t, []string{"user"}, page.Elements[`input[name="username"]`].Filled)
	require.Equal(t, []string{"hunter2"}, page.Elements[`input[type="password"]`].Filled)
}

func TestLoginRejectedByErrorMarker(t *testing.T) {
	page := newLoginPage()
	page.OnAction = func(action, label string) {
		if action == "click" && label == "submit" {
			page.Elements[`.euiCallOut--danger`] = &browsertest.Element{
				Label: "error",
				Text:  "Invalid username or password",
			}
		}
	}
	client := newTestClient(t, page)

	state, err := client.Login(context.Background(), "user", "wrong")
	require.ErrorIs(t, err, ErrSessionRejected)
	require.ErrorContains(t, err, "Invalid username or password")
	require.Equal(t, SessionRejected, state)
}

func TestLoginAmbiguousByUrlInference(t *testing.T) {
	page := newLoginPage()
	page.OnAction = func(action, label string) {
		if action == "click" && label == "submit" {
			// navigation left the login surface but no positive
			// marker ever renders
			page.Address = testBaseUrl + "/app/discover"
		}
	}
	client := newTestClient(t, page)

	state, err := client.Login(context.Background(), "user", "hunter2")
	require.NoError(t, err)
	require.Equal(t, SessionAmbiguous, state)
}

func TestLoginRejectedWhenRoundsExhaustOnLoginSurface(t *testing.T) {
	page := newLoginPage()
	client := newTestClient(t, page)

	state, err := client.Login(context.Background(), "user", "hunter2")
	require.ErrorIs(t, err, ErrSessionRejected)
	require.Equal(t, SessionRejected, state)
	// three verification rounds, each with one settle interval
	require.Len(t, page.Slept, 3)
}

func TestLoginFatalWhenPasswordFieldMissing(t *testing.T) {
	page := newLoginPage()
	delete(page.Elements, `input[type="password"]`)
	client := newTestClient(t, page)

	_, err := client.Login(context.Background(), "user", "hunter2")
	require.ErrorIs(t, err, ErrAuthFieldNotFound)
}

func TestLoginFallsBackToEnterKey(t *testing.T) {
	page := newLoginPage()
	delete(page.Elements, `button[type="submit"]`)
	password := page.Elements[`input[type="password"]`]
	page.OnAction = func(action, label string) {
		if action == "press" && label == "password" {
			page.Address = testBaseUrl + "/app/home"
		}
	}
	client := newTestClient(t, page)

	state, err := client.Login(context.Background(), "user", "hunter2")
	require.NoError(t, err)
	require.Equal(t, SessionAmbiguous, state)
	require.Equal(t, []string{"Enter"}, password.Pressed)
}

func TestLoginWithCookieSeedsKnownNames(t *testing.T) {
	page := browsertest.NewPage()
	page.Address = testBaseUrl
	page.Elements[`[data-test-subj="kibanaChrome"]`] = &browsertest.Element{Label: "chrome"}
	client := newTestClient(t, page)

	state, err := client.LoginWithCookie(context.Background(), "opaque-session")
	require.NoError(t, err)
	require.Equal(t, SessionVerified, state)

	names := map[string]bool{}
	for _, c := range page.Cookies {
		names[c.Name] = true
		require.Equal(t, "opaque-session", c.Value)
	}
	require.True(t, names["sid"])
	require.True(t, names["elastic_session"])
	require.Equal(t, testBaseUrl+"/app/home", page.Visited[len(page.Visited)-1])
}

func TestLoginWithCookieBouncedToLogin(t *testing.T) {
	page := browsertest.NewPage()
	page.Address = testBaseUrl
	page.OnGoto = func(url string) string {
		if url == testBaseUrl+"/app/home" {
			return testBaseUrl + "/login?next=%2Fapp%2Fhome"
		}
		return url
	}
	client := newTestClient(t, page)

	state, err := client.LoginWithCookie(context.Background(), "expired")
	require.ErrorIs(t, err, ErrSessionRejected)
	require.Equal(t, SessionRejected, state)
}
