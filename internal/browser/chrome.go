package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"observatorio-backend/internal/components/assert"
	"observatorio-backend/internal/components/telemetry"

	"github.com/chromedp/chromedp"
)

const (
	report_chrome_click         = "click"
	report_chrome_click_first   = "click-first"
	report_chrome_select        = "select"
	report_chrome_select_absent = "select-option-absent"
	report_chrome_close         = "close"
)

// Chrome implements Page on a local Chrome driven through the devtools protocol.
type Chrome struct {
	tel     telemetry.API
	options Options

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mutex  sync.Mutex
	closed bool
}

// NewChrome launches the browser. The caller must Close it.
func NewChrome(ctx context.Context, tel telemetry.API, options Options) (*Chrome, error) {
	assert.NotNil(tel)

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", options.Headless),
		chromedp.Flag("start-maximized", true),
	)
	if options.IgnoreCertErrors {
		allocOpts = append(allocOpts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if options.WindowWidth > 0 && options.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(options.WindowWidth, options.WindowHeight))
	}
	if options.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(options.UserAgent))
	}

	// the session outlives individual calls, callers cancel through the ctx they pass
	// to each method instead.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// the first Run starts the browser, it must happen on the long-lived context.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &Chrome{
		tel:         telemetry.NewScopedAPI("chrome", tel),
		options:     options,
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

// scope derives a context from the browser session that also ends when `caller` ends.
func (c *Chrome) scope(caller context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	c.mutex.Lock()
	closed := c.closed
	c.mutex.Unlock()
	if closed {
		return nil, nil, ErrClosed
	}
	if err := caller.Err(); err != nil {
		return nil, nil, err
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}, nil
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	runCtx, cancel, err := c.scope(ctx, 0)
	if err != nil {
		return err
	}
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return Sleep(ctx, c.options.InitialSettle)
}

func jsString(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}

func nodeExpr(xpath string) string {
	return fmt.Sprintf(
		"document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue",
		jsString(xpath),
	)
}

// waitPresent polls for a node at `xpath` until `timeout`.
func (c *Chrome) waitPresent(ctx context.Context, xpath string, timeout time.Duration) bool {
	runCtx, cancel, err := c.scope(ctx, 0)
	if err != nil {
		return false
	}
	defer cancel()

	var found bool
	err = chromedp.Run(runCtx, chromedp.Poll(
		fmt.Sprintf("%s !== null", nodeExpr(xpath)),
		&found,
		chromedp.WithPollingTimeout(timeout),
		chromedp.WithPollingInterval(100*time.Millisecond),
	))
	return err == nil && found
}

func (c *Chrome) evaluate(ctx context.Context, expr string, out any) error {
	runCtx, cancel, err := c.scope(ctx, 0)
	if err != nil {
		return err
	}
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Evaluate(expr, out))
}

func (c *Chrome) scrollIntoView(ctx context.Context, xpath string) error {
	var ok bool
	return c.evaluate(ctx, fmt.Sprintf(
		`(() => { const n = %s; if (n === null) { return false; } n.scrollIntoView({block: 'center'}); return true; })()`,
		nodeExpr(xpath),
	), &ok)
}

func (c *Chrome) ClickText(ctx context.Context, text string, click Click) bool {
	click = c.options.withDefaults(click)
	xpath := ContainsTextXPath(text)
	if !c.waitPresent(ctx, xpath, click.Timeout) {
		c.tel.ReportDebug(report_chrome_click, "not found", text)
		return false
	}

	if err := c.scrollIntoView(ctx, xpath); err != nil {
		c.tel.ReportWarning(report_chrome_click, err, text)
		return false
	}
	if Sleep(ctx, click.ScrollSettle) != nil {
		return false
	}

	clicks := []func() error{
		func() error { return c.nativeClick(ctx, xpath, click.Timeout) },
		func() error { return c.jsClick(ctx, xpath) },
	}
	if click.JSFirst {
		clicks[0], clicks[1] = clicks[1], clicks[0]
	}
	err := clicks[0]()
	if err != nil {
		c.tel.ReportDebug(report_chrome_click_first, "first click failed, trying the other", text, err)
		err = clicks[1]()
	}
	if err != nil {
		c.tel.ReportWarning(report_chrome_click, err, text)
		return false
	}

	return Sleep(ctx, click.Settle) == nil
}

func (c *Chrome) nativeClick(ctx context.Context, xpath string, timeout time.Duration) error {
	clickCtx, cancel, err := c.scope(ctx, timeout)
	if err != nil {
		return err
	}
	defer cancel()
	return chromedp.Run(clickCtx, chromedp.Click(xpath, chromedp.BySearch, chromedp.NodeVisible))
}

func (c *Chrome) jsClick(ctx context.Context, xpath string) error {
	var clicked bool
	err := c.evaluate(ctx, fmt.Sprintf(
		`(() => { const n = %s; if (n === null) { return false; } n.click(); return true; })()`,
		nodeExpr(xpath),
	), &clicked)
	if err != nil {
		return fmt.Errorf("js click: %w", err)
	}
	if !clicked {
		return errors.New("js click: node vanished")
	}
	return nil
}

type selectState struct {
	Found   bool     `json:"found"`
	Options []string `json:"options"`
}

func (c *Chrome) SelectOption(ctx context.Context, xpath, text string, settle time.Duration) bool {
	if !c.waitPresent(ctx, xpath, c.options.SelectTimeout) {
		c.tel.ReportDebug(report_chrome_select, "select not found", xpath)
		return false
	}
	if err := c.scrollIntoView(ctx, xpath); err != nil {
		c.tel.ReportWarning(report_chrome_select, err, xpath)
		return false
	}
	if Sleep(ctx, c.options.ScrollSettle) != nil {
		return false
	}

	var state selectState
	err := c.evaluate(ctx, fmt.Sprintf(
		`(() => {
			const n = %s;
			if (n === null || n.options === undefined) { return {found: false, options: []}; }
			return {found: true, options: Array.from(n.options).map((o) => o.text)};
		})()`,
		nodeExpr(xpath),
	), &state)
	if err != nil || !state.Found {
		c.tel.ReportWarning(report_chrome_select, fmt.Errorf("read options: %v", err), xpath)
		return false
	}

	index, ok := ChooseOption(state.Options, text)
	if !ok {
		closest, score := ClosestOption(state.Options, text)
		c.tel.ReportWarning(report_chrome_select_absent, text, "closest", closest, score)
		return false
	}

	var selected bool
	err = c.evaluate(ctx, fmt.Sprintf(
		`(() => {
			const n = %s;
			if (n === null) { return false; }
			n.selectedIndex = %d;
			n.dispatchEvent(new Event('input', {bubbles: true}));
			n.dispatchEvent(new Event('change', {bubbles: true}));
			return true;
		})()`,
		nodeExpr(xpath), index,
	), &selected)
	if err != nil || !selected {
		c.tel.ReportWarning(report_chrome_select, fmt.Errorf("set option: %v", err), xpath, text)
		return false
	}

	return Sleep(ctx, settle) == nil
}

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	runCtx, cancel, err := c.scope(ctx, 0)
	if err != nil {
		return "", err
	}
	defer cancel()

	var html string
	err = chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

type nodeText struct {
	Found bool   `json:"found"`
	Text  string `json:"text"`
}

func (c *Chrome) nodeProperty(ctx context.Context, xpath, property string) (string, error) {
	var out nodeText
	err := c.evaluate(ctx, fmt.Sprintf(
		`(() => { const n = %s; if (n === null) { return {found: false, text: ""}; } return {found: true, text: n.%s || ""}; })()`,
		nodeExpr(xpath), property,
	), &out)
	if err != nil {
		return "", err
	}
	if !out.Found {
		return "", fmt.Errorf("no node at %s", xpath)
	}
	return out.Text, nil
}

func (c *Chrome) TextContent(ctx context.Context, xpath string) (string, error) {
	return c.nodeProperty(ctx, xpath, "textContent")
}

func (c *Chrome) InnerText(ctx context.Context, xpath string) (string, error) {
	return c.nodeProperty(ctx, xpath, "innerText")
}

func (c *Chrome) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	err := chromedp.Cancel(c.ctx)
	c.cancel()
	c.allocCancel()
	if err != nil {
		c.tel.ReportDebug(report_chrome_close, err)
	}
	return err
}
