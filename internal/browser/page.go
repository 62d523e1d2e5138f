package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"observatorio-backend/lib/textutil"
)

var ErrClosed = errors.New("browser session is closed")

// Page is a single best-effort browser session. Lookups that fail report `false`
// instead of an error, a missing button is a skipped step and not a broken run.
//
// note: fault injection point
type Page interface {
	// Navigate loads the url and waits for the initial settle duration.
	Navigate(ctx context.Context, url string) error
	// ClickText clicks the first element whose own text contains `text`, timed by `click`.
	ClickText(ctx context.Context, text string, click Click) bool
	// SelectOption picks the first option of the <select> at `xpath` whose visible text
	// contains `text`, then waits `settle`.
	SelectOption(ctx context.Context, xpath, text string, settle time.Duration) bool
	// HTML returns the rendered document.
	HTML(ctx context.Context) (string, error)
	// TextContent returns the textContent of the first node at `xpath`, hidden text included.
	TextContent(ctx context.Context, xpath string) (string, error)
	// InnerText returns the rendered text of the first node at `xpath`.
	InnerText(ctx context.Context, xpath string) (string, error)
	Close() error
}

type Options struct {
	Headless         bool
	WindowWidth      int
	WindowHeight     int
	IgnoreCertErrors bool
	UserAgent        string

	InitialSettle time.Duration
	ClickTimeout  time.Duration
	ScrollSettle  time.Duration
	ClickSettle   time.Duration
	SelectTimeout time.Duration
}

// Click tunes one ClickText. Zero durations fall back to the session Options.
type Click struct {
	Timeout      time.Duration
	ScrollSettle time.Duration
	Settle       time.Duration
	// JSFirst dispatches a DOM click and only tries a native click when that fails.
	JSFirst bool
}

// withDefaults fills the zero durations of `click` from the options.
func (o Options) withDefaults(click Click) Click {
	if click.Timeout == 0 {
		click.Timeout = o.ClickTimeout
	}
	if click.ScrollSettle == 0 {
		click.ScrollSettle = o.ScrollSettle
	}
	if click.Settle == 0 {
		click.Settle = o.ClickSettle
	}
	return click
}

func DefaultOptions() Options {
	return Options{
		WindowWidth:      1920,
		WindowHeight:     1080,
		IgnoreCertErrors: true,
		InitialSettle:    5 * time.Second,
		ClickTimeout:     5 * time.Second,
		ScrollSettle:     time.Second,
		ClickSettle:      4 * time.Second,
		SelectTimeout:    5 * time.Second,
	}
}

// XPathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape sequences,
// so a string holding both quote kinds is split and rebuilt with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	args := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `"'"`)
		}
		if p != "" {
			args = append(args, "'"+p+"'")
		}
	}
	return fmt.Sprintf("concat(%s)", strings.Join(args, ", "))
}

// ContainsTextXPath matches any element with a text node containing `text`.
func ContainsTextXPath(text string) string {
	return fmt.Sprintf("//*[contains(text(), %s)]", XPathLiteral(text))
}

// ChooseOption returns the index of the first option whose visible text contains `text`,
// ignoring case, accents and whitespace. A near miss is not a match, "Regular" must never
// select "Integral".
func ChooseOption(options []string, text string) (int, bool) {
	idx := textutil.IndexContaining(options, text)
	return idx, idx >= 0
}

// ClosestOption returns the option most similar to `text` and its Jaro-Winkler similarity. It
// is only reported alongside a missing option so the operator can tell a renamed option apart
// from one that is gone.
func ClosestOption(options []string, text string) (string, float64) {
	idx, score := textutil.ClosestMatch(options, text, 0)
	if idx < 0 {
		return "", score
	}
	return options[idx], score
}

// Sleep waits for d or until ctx is done, whichever is first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
