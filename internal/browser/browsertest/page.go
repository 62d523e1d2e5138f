// Package browsertest provides a scripted browser.Page for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"observatorio-backend/internal/browser"
	"observatorio-backend/lib/textutil"
)

// State is what the fake page remembers the user has done so far: the last clicked text
// in each group and the selected option of each select.
type State struct {
	URL      string
	Clicks   []string
	Selected map[string]string
}

// LastClick returns the most recent click among `texts`, or "".
func (s State) LastClick(texts ...string) string {
	for i := len(s.Clicks) - 1; i >= 0; i-- {
		for _, t := range texts {
			if s.Clicks[i] == t {
				return t
			}
		}
	}
	return ""
}

// Page is a browser.Page whose content is computed from its State.
type Page struct {
	// Clickable lists the texts ClickText succeeds on, matched exactly.
	Clickable map[string]bool
	// Options lists the options of each select by xpath.
	Options map[string][]string
	// Render returns the document html for a state.
	Render func(State) string
	// Nodes returns the text of the node at an xpath for a state, false if the node is absent.
	Nodes func(state State, xpath string) (string, bool)

	// FailHTMLAfter makes HTML fail once it has been called this many times, when positive.
	FailHTMLAfter int
	// OnClick is called after every successful click, it can cancel the run.
	OnClick func(text string)
	// OnSelect is called after every successful selection with the chosen option.
	OnSelect func(xpath, option string)

	mutex     sync.Mutex
	state     State
	log       []string
	clicks    []browser.Click
	htmlCalls int
	closed    int
}

var _ browser.Page = (*Page)(nil)

func (p *Page) record(format string, args ...any) {
	p.log = append(p.log, fmt.Sprintf(format, args...))
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.record("navigate %s", url)
	p.state.URL = url
	return ctx.Err()
}

func (p *Page) ClickText(ctx context.Context, text string, click browser.Click) bool {
	p.mutex.Lock()
	p.clicks = append(p.clicks, click)
	if ctx.Err() != nil || !p.Clickable[text] {
		p.record("click %s: miss", text)
		p.mutex.Unlock()
		return false
	}
	p.record("click %s", text)
	p.state.Clicks = append(p.state.Clicks, text)
	onClick := p.OnClick
	p.mutex.Unlock()

	if onClick != nil {
		onClick(text)
	}
	return true
}

func (p *Page) SelectOption(ctx context.Context, xpath, text string, _ time.Duration) bool {
	p.mutex.Lock()
	options, ok := p.Options[xpath]
	index := -1
	if ok && ctx.Err() == nil {
		index, ok = browser.ChooseOption(options, text)
	}
	if !ok || index < 0 {
		p.record("select %s: miss", text)
		p.mutex.Unlock()
		return false
	}
	if p.state.Selected == nil {
		p.state.Selected = map[string]string{}
	}
	p.state.Selected[xpath] = options[index]
	p.record("select %s", options[index])
	onSelect := p.OnSelect
	p.mutex.Unlock()

	if onSelect != nil {
		onSelect(xpath, options[index])
	}
	return true
}

func (p *Page) snapshot() State {
	selected := make(map[string]string, len(p.state.Selected))
	for k, v := range p.state.Selected {
		selected[k] = v
	}
	return State{
		URL:      p.state.URL,
		Clicks:   append([]string(nil), p.state.Clicks...),
		Selected: selected,
	}
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.htmlCalls++
	if p.FailHTMLAfter > 0 && p.htmlCalls > p.FailHTMLAfter {
		return "", fmt.Errorf("devtools: target crashed")
	}
	if p.Render == nil {
		return "<html><body></body></html>", nil
	}
	return p.Render(p.snapshot()), ctx.Err()
}

func (p *Page) node(xpath string) (string, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.Nodes == nil {
		return "", fmt.Errorf("no node at %s", xpath)
	}
	text, ok := p.Nodes(p.snapshot(), xpath)
	if !ok {
		return "", fmt.Errorf("no node at %s", xpath)
	}
	return text, nil
}

func (p *Page) TextContent(_ context.Context, xpath string) (string, error) {
	return p.node(xpath)
}

func (p *Page) InnerText(_ context.Context, xpath string) (string, error) {
	return p.node(xpath)
}

func (p *Page) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.closed++
	return nil
}

// Log returns every interaction in order.
func (p *Page) Log() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]string(nil), p.log...)
}

// Clicks returns the timing every ClickText was called with, in order.
func (p *Page) Clicks() []browser.Click {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]browser.Click(nil), p.clicks...)
}

// Closed reports how many times Close was called.
func (p *Page) Closed() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.closed
}

// Selected returns the option currently selected at xpath, matched by folded text.
func (p *Page) Selected(xpath string) string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state.Selected[xpath]
}

// HasLog reports whether any log line contains `substr` ignoring case and accents.
func (p *Page) HasLog(substr string) bool {
	for _, line := range p.Log() {
		if textutil.ContainsFold(line, substr) {
			return true
		}
	}
	return false
}
