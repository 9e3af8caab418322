package legacy

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"finhacker/internal/dashboard"
	"finhacker/internal/events"
	"finhacker/internal/logging"
)

const (
	DefaultRefreshInterval = 60 * time.Second
	DefaultDismissAfter    = 10 * time.Second
	defaultTimeout         = 10 * time.Second
)

var ErrUnmounted = errors.New("controller unmounted")

type Config struct {
	BaseURL string
	// RefreshInterval drives RunMarketRefresh. Zero or negative disables the
	// periodic poll; RefreshMarket can still be called directly.
	RefreshInterval time.Duration
	DismissAfter    time.Duration
	Timeout         time.Duration

	Picker events.Picker
	Log    *logging.Logger
	Client *resty.Client
	// OnRefresh runs after every successful market refresh.
	OnRefresh func()
}

// Controller drives a parsed dashboard page the way the browser script does:
// form submits replace #analysis-content, the market strip is patched from
// /market_data and simulated events are prepended to #event-results.
type Controller struct {
	cfg    Config
	client *resty.Client
	log    *logging.Logger

	mu      sync.Mutex
	doc     *goquery.Document
	state   State
	token   string
	lastErr error
	dead    bool
	timers  map[string]*time.Timer
	// simulating counts SimulateEvent calls still waiting on the server.
	simulating int
	rndMu      sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(doc *goquery.Document, cfg Config) *Controller {
	if cfg.DismissAfter <= 0 {
		cfg.DismissAfter = DefaultDismissAfter
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Log == nil {
		cfg.Log = logging.Nop()
	}
	client := cfg.Client
	if client == nil {
		client = resty.New()
	}
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)

	return &Controller{
		cfg:    cfg,
		client: client,
		log:    cfg.Log,
		doc:    doc,
		timers: make(map[string]*time.Timer),
	}
}

// Open fetches the index page from baseURL and wraps it in a controller.
func Open(ctx context.Context, cfg Config) (*Controller, error) {
	c := New(nil, cfg)
	resp, err := c.client.R().SetContext(ctx).Get("/")
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch page: HTTP %s", resp.Status())
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	c.doc = doc
	return c, nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Read runs fn with the document locked. fn must not keep the document.
func (c *Controller) Read(fn func(doc *goquery.Document)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.doc)
}

// ContentHTML returns the inner HTML of #analysis-content.
func (c *Controller) ContentHTML() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, _ := c.doc.Find("#analysis-content").Html()
	return h
}

// Mount starts the market poller when enabled and submits the form if the
// content container is empty. Both stop on Unmount or when ctx is done.
func (c *Controller) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.dead || c.cancel != nil {
		c.mu.Unlock()
		return
	}
	life, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	empty := strings.TrimSpace(c.doc.Find("#analysis-content").Text()) == "" &&
		c.doc.Find("#analysis-content").Children().Length() == 0
	c.mu.Unlock()

	if c.cfg.RefreshInterval > 0 {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.RunMarketRefresh(life)
		}()
	}
	if empty {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			_ = c.Submit(life)
		}()
	}
}

// Unmount cancels pollers and pending dismiss timers. Completions arriving
// afterwards are dropped.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.dead {
		c.mu.Unlock()
		return
	}
	c.dead = true
	cancel := c.cancel
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

// SelectTab writes the hidden tab_type field and toggles the tab buttons.
// It never fetches.
func (c *Controller) SelectTab(tab string) error {
	t, err := dashboard.ParseTab(tab)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Find(`#ticker-form input[name="tab_type"]`).SetAttr("value", string(t))
	c.doc.Find(".tab-button").Each(func(_ int, b *goquery.Selection) {
		if v, _ := b.Attr("data-tab"); v == string(t) {
			b.AddClass("active")
		} else {
			b.RemoveClass("active")
		}
	})
	return nil
}

// SelectTicker marks the option selected and rewrites every .ticker-symbol.
// It never fetches.
func (c *Controller) SelectTicker(symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Find("#stock-select option").Each(func(_ int, o *goquery.Selection) {
		if v, _ := o.Attr("value"); v == symbol {
			o.SetAttr("selected", "selected")
		} else {
			o.RemoveAttr("selected")
		}
	})
	c.doc.Find(".ticker-symbol").SetText(symbol)
}

// Begin moves to Loading and issues a fresh token, superseding any request
// still in flight.
func (c *Controller) Begin() (Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		return Request{}, ErrUnmounted
	}
	req := Request{
		Token:  uuid.NewString(),
		Ticker: c.formTicker(),
		Tab:    c.formTab(),
	}
	c.token = req.Token
	c.state = Loading
	c.doc.Find("#analysis-content").SetAttr("data-state", Loading.String())
	return req, nil
}

func (c *Controller) formTicker() string {
	sel := c.doc.Find("#stock-select option[selected]").First()
	if sel.Length() == 0 {
		sel = c.doc.Find("#stock-select option").First()
	}
	v, _ := sel.Attr("value")
	return v
}

func (c *Controller) formTab() string {
	v, _ := c.doc.Find(`#ticker-form input[name="tab_type"]`).Attr("value")
	return v
}

// Do performs the network half of a submit. It touches no controller state.
func (c *Controller) Do(ctx context.Context, req Request) Response {
	out := Response{Token: req.Token}
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"ticker":   req.Ticker,
			"tab_type": req.Tab,
		}).
		Post("/analyze_ticker")
	if err != nil {
		out.Err = err
		return out
	}
	out.Status = resp.StatusCode()
	out.Body = resp.String()
	if !resp.IsSuccess() {
		out.Err = fmt.Errorf("HTTP %s", resp.Status())
	}
	return out
}

// Complete applies resp if it belongs to the latest request and the
// controller is still mounted. It reports whether the page changed.
func (c *Controller) Complete(resp Response) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead || resp.Token != c.token {
		return false
	}
	box := c.doc.Find("#analysis-content")
	if resp.OK() {
		box.SetHtml(resp.Body)
		c.state = Loaded
		c.lastErr = nil
	} else {
		err := resp.Err
		if err == nil {
			err = fmt.Errorf("HTTP %d", resp.Status)
		}
		c.log.Errorf("analyze ticker failed: %v", err)
		box.SetHtml(`<div class="analysis-error p-4 rounded bg-red-50 text-red-700 text-sm">Error loading analysis: ` +
			html.EscapeString(err.Error()) + `</div>`)
		c.state = Error
		c.lastErr = err
	}
	box.SetAttr("data-state", c.state.String())
	return true
}

// Submit runs Begin, Do and Complete. The returned error is the failure shown
// in the page, if any; nothing is retried.
func (c *Controller) Submit(ctx context.Context) error {
	req, err := c.Begin()
	if err != nil {
		return err
	}
	resp := c.Do(ctx, req)
	if !c.Complete(resp) {
		return nil
	}
	if !resp.OK() {
		return c.LastError()
	}
	return nil
}
