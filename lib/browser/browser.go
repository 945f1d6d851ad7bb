// Package browser narrows a rendering engine down to the capability the
// extraction pipeline consumes: render a page, query elements, read
// text, wait for conditions. Everything is bounded by caller-supplied
// timeouts; non-resolution surfaces as an error the caller treats as a
// signal to advance to a fallback, never as a hang.
package browser

import (
	"errors"
	"time"
)

// returned (possibly wrapped) when a wait-for-condition exceeds its
// timeout
var ErrTimeout = errors.New("browser: wait timed out")

type Element interface {
	InnerText() (string, error)
	Fill(value string) error
	Click() error
	Press(key string) error
	QuerySelectorAll(selector string) ([]Element, error)
}

type Page interface {
	// navigates and waits for the load state, bounded by timeout
	Goto(url string, timeout time.Duration) error
	// blocks until the selector resolves or the timeout elapses
	WaitForSelector(selector string, timeout time.Duration) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)
	URL() string
	Title() (string, error)
	// the full serialized html of the page
	Content() (string, error)
	Screenshot(path string) error
	SetCookies(cookies ...Cookie) error
	// waits for the network to settle, bounded by timeout; an elapsed
	// timeout here is not fatal, pages with polling widgets never settle
	WaitForLoad(timeout time.Duration) error
	// fixed settle interval for asynchronous data population
	Sleep(d time.Duration)
}

type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	HttpOnly bool
	Secure   bool
}
