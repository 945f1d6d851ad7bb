package browser

import (
	"fmt"
	"os"
	"time"

	pw "github.com/playwright-community/playwright-go"
)

type SessionOptions struct {
	Headless       bool
	ExecutablePath string
	UserAgent      string
}

// Session owns a playwright instance, one chromium browser and one
// page. The pipeline is strictly sequential so there is never more than
// one page per run.
type Session struct {
	pw      *pw.Playwright
	browser pw.Browser
	context pw.BrowserContext
	page    pw.Page
}

func Launch(opts SessionOptions) (*Session, error) {
	instance, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launch := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(opts.Headless),
	}
	executable := opts.ExecutablePath
	if executable == "" {
		executable = findChromium()
	}
	if executable != "" {
		launch.ExecutablePath = pw.String(executable)
	}

	chromium, err := instance.Chromium.Launch(launch)
	if err != nil {
		instance.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	ctxOpts := pw.BrowserNewContextOptions{}
	if opts.UserAgent != "" {
		ctxOpts.UserAgent = pw.String(opts.UserAgent)
	}
	browserCtx, err := chromium.NewContext(ctxOpts)
	if err != nil {
		chromium.Close()
		instance.Stop()
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		chromium.Close()
		instance.Stop()
		return nil, fmt.Errorf("create page: %w", err)
	}

	return &Session{
		pw:      instance,
		browser: chromium,
		context: browserCtx,
		page:    page,
	}, nil
}

func findChromium() string {
	for _, p := range []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (s *Session) Page() Page {
	return pwPage{page: s.page, context: s.context}
}

func (s *Session) Close() error {
	err := s.browser.Close()
	stopErr := s.pw.Stop()
	if err != nil {
		return err
	}
	return stopErr
}

func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

type pwPage struct {
	page    pw.Page
	context pw.BrowserContext
}

func (p pwPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, pw.PageGotoOptions{
		Timeout: pw.Float(millis(timeout)),
	})
	if err != nil {
		return fmt.Errorf("%w: goto %s: %s", ErrTimeout, url, err)
	}
	return nil
}

func (p pwPage) WaitForSelector(selector string, timeout time.Duration) (Element, error) {
	handle, err := p.page.WaitForSelector(selector, pw.PageWaitForSelectorOptions{
		Timeout: pw.Float(millis(timeout)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: selector %q: %s", ErrTimeout, selector, err)
	}
	if handle == nil {
		return nil, fmt.Errorf("%w: selector %q", ErrTimeout, selector)
	}
	return pwElement{handle: handle}, nil
}

func (p pwPage) QuerySelectorAll(selector string) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	return wrapHandles(handles), nil
}

func (p pwPage) URL() string {
	return p.page.URL()
}

func (p pwPage) Title() (string, error) {
	return p.page.Title()
}

func (p pwPage) Content() (string, error) {
	return p.page.Content()
}

func (p pwPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(pw.PageScreenshotOptions{
		Path:     pw.String(path),
		FullPage: pw.Bool(true),
	})
	return err
}

func (p pwPage) SetCookies(cookies ...Cookie) error {
	out := make([]pw.OptionalCookie, len(cookies))
	for i, c := range cookies {
		out[i] = pw.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   pw.String(c.Domain),
			Path:     pw.String(c.Path),
			HttpOnly: pw.Bool(c.HttpOnly),
			Secure:   pw.Bool(c.Secure),
		}
	}
	return p.context.AddCookies(out)
}

func (p pwPage) WaitForLoad(timeout time.Duration) error {
	err := p.page.WaitForLoadState(pw.PageWaitForLoadStateOptions{
		State:   pw.LoadStateNetworkidle,
		Timeout: pw.Float(millis(timeout)),
	})
	if err != nil {
		return fmt.Errorf("%w: load state: %s", ErrTimeout, err)
	}
	return nil
}

func (p pwPage) Sleep(d time.Duration) {
	p.page.WaitForTimeout(millis(d))
}

type pwElement struct {
	handle pw.ElementHandle
}

func (e pwElement) InnerText() (string, error) {
	return e.handle.InnerText()
}

func (e pwElement) Fill(value string) error {
	return e.handle.Fill(value)
}

func (e pwElement) Click() error {
	return e.handle.Click()
}

func (e pwElement) Press(key string) error {
	return e.handle.Press(key)
}

func (e pwElement) QuerySelectorAll(selector string) ([]Element, error) {
	handles, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	return wrapHandles(handles), nil
}

func wrapHandles(handles []pw.ElementHandle) []Element {
	out := make([]Element, len(handles))
	for i, h := range handles {
		out[i] = pwElement{handle: h}
	}
	return out
}
