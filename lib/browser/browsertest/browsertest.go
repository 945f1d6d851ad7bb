// Package browsertest provides a scriptable in-memory implementation
// of the browser capability for hermetic pipeline tests.
package browsertest

import (
	"fmt"
	"time"

	"appointments-backend/lib/browser"
)

type Page struct {
	// current address, tests mutate this from OnAction to simulate
	// redirects
	Address   string
	PageTitle string
	Html      string
	// selector -> element returned by WaitForSelector
	Elements map[string]*Element
	// selector -> elements returned by QuerySelectorAll
	Lists map[string][]browser.Element
	// overrides Elements when set, ok=false means unresolvable
	ElementFunc func(selector string) (*Element, bool)
	// invoked after every mutating element action, with the action
	// name ("fill", "click", "press") and the element label
	OnAction func(action, label string)
	// when set, maps a navigation target to the address the browser
	// actually lands on, to simulate server-side redirects
	OnGoto func(url string) string

	// journals
	Visited     []string
	Resolved    []string
	Screenshots []string
	Cookies     []browser.Cookie
	Slept       []time.Duration
}

func NewPage() *Page {
	return &Page{
		Elements: map[string]*Element{},
		Lists:    map[string][]browser.Element{},
	}
}

func (p *Page) Goto(url string, timeout time.Duration) error {
	p.Visited = append(p.Visited, url)
	if p.OnGoto != nil {
		p.Address = p.OnGoto(url)
		return nil
	}
	p.Address = url
	return nil
}

func (p *Page) WaitForSelector(selector string, timeout time.Duration) (browser.Element, error) {
	p.Resolved = append(p.Resolved, selector)
	if p.ElementFunc != nil {
		el, ok := p.ElementFunc(selector)
		if !ok {
			return nil, fmt.Errorf("%w: selector %q", browser.ErrTimeout, selector)
		}
		el.page = p
		return el, nil
	}
	el, ok := p.Elements[selector]
	if !ok {
		return nil, fmt.Errorf("%w: selector %q", browser.ErrTimeout, selector)
	}
	el.page = p
	return el, nil
}

func (p *Page) QuerySelectorAll(selector string) ([]browser.Element, error) {
	return p.Lists[selector], nil
}

func (p *Page) URL() string {
	return p.Address
}

func (p *Page) Title() (string, error) {
	return p.PageTitle, nil
}

func (p *Page) Content() (string, error) {
	return p.Html, nil
}

func (p *Page) Screenshot(path string) error {
	p.Screenshots = append(p.Screenshots, path)
	return nil
}

func (p *Page) SetCookies(cookies ...browser.Cookie) error {
	p.Cookies = append(p.Cookies, cookies...)
	return nil
}

func (p *Page) WaitForLoad(timeout time.Duration) error {
	return nil
}

func (p *Page) Sleep(d time.Duration) {
	p.Slept = append(p.Slept, d)
}

type Element struct {
	// stable name used in action journals
	Label string
	Text  string
	// selector -> child elements
	Children map[string][]browser.Element

	Filled  []string
	Clicks  int
	Pressed []string

	page *Page
}

func (e *Element) InnerText() (string, error) {
	return e.Text, nil
}

func (e *Element) Fill(value string) error {
	e.Filled = append(e.Filled, value)
	e.notify("fill")
	return nil
}

func (e *Element) Click() error {
	e.Clicks++
	e.notify("click")
	return nil
}

func (e *Element) Press(key string) error {
	e.Pressed = append(e.Pressed, key)
	e.notify("press")
	return nil
}

func (e *Element) QuerySelectorAll(selector string) ([]browser.Element, error) {
	return e.Children[selector], nil
}

func (e *Element) notify(action string) {
	if e.page != nil && e.page.OnAction != nil {
		e.page.OnAction(action, e.Label)
	}
}

// builds a table element in the shape the harvester walks: a list of
// "tr" children whose cells resolve under both "th, td" and "td, th"
func NewTable(rows [][]string) *Element {
	table := &Element{Label: "table", Children: map[string][]browser.Element{}}
	for _, cells := range rows {
		row := &Element{Children: map[string][]browser.Element{}}
		var rowCells []browser.Element
		for _, text := range cells {
			rowCells = append(rowCells, &Element{Text: text})
		}
		row.Children["th, td"] = rowCells
		row.Children["td, th"] = rowCells
		table.Children["tr"] = append(table.Children["tr"], row)
	}
	return table
}
