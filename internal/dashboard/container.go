package dashboard

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"finhacker/internal/market"
)

// Source resolves a ticker to its record. *market.Catalog satisfies it.
type Source interface {
	Resolve(symbol string, p market.Policy) (market.Analysis, market.Resolution, error)
}

type Selection struct {
	Stock string `json:"stock"`
	Tab   Tab    `json:"tab"`
}

// View is everything a renderer needs for the active panel.
type View struct {
	Selection  Selection         `json:"selection"`
	Stocks     []market.Stock    `json:"stocks"`
	Name       string            `json:"name"`
	Resolution market.Resolution `json:"resolution"`
	// Notice is set when the record shown is not the one requested.
	Notice   string          `json:"notice,omitempty"`
	Missing  bool            `json:"missing,omitempty"`
	Analysis market.Analysis `json:"analysis"`
	Topics   []market.Topic  `json:"topics"`
}

// Container holds the dashboard selection. Updates are synchronous and do no
// I/O; Render consults the source only when the selection has changed since
// the last render.
type Container struct {
	mu     sync.Mutex
	cat    *market.Catalog
	src    Source
	policy market.Policy
	sel    Selection

	cached *View
}

type Option func(*Container)

func WithSource(s Source) Option        { return func(c *Container) { c.src = s } }
func WithPolicy(p market.Policy) Option { return func(c *Container) { c.policy = p } }
func WithSelection(s Selection) Option  { return func(c *Container) { c.sel = s } }

func NewContainer(cat *market.Catalog, opts ...Option) *Container {
	c := &Container{
		cat:    cat,
		src:    cat,
		policy: market.FallbackToDefault,
		sel:    Selection{Stock: cat.DefaultSymbol(), Tab: Sentiment},
	}
	for _, o := range opts {
		o(c)
	}
	c.sel.Stock = strings.ToUpper(strings.TrimSpace(c.sel.Stock))
	if c.sel.Tab == "" {
		c.sel.Tab = Sentiment
	}
	return c
}

func (c *Container) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel
}

// SelectStock reports whether the selection changed.
func (c *Container) SelectStock(symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	c.mu.Lock()
	defer c.mu.Unlock()
	if symbol == c.sel.Stock {
		return false
	}
	c.sel.Stock = symbol
	c.cached = nil
	return true
}

func (c *Container) SelectTab(t Tab) (bool, error) {
	t, err := ParseTab(string(t))
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t == c.sel.Tab {
		return false, nil
	}
	c.sel.Tab = t
	c.cached = nil
	return true, nil
}

// Render returns the view for the current selection. The caller owns the
// returned value; changing it does not affect later renders.
func (c *Container) Render() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == nil {
		v := c.build(c.sel)
		c.cached = &v
	}
	return c.cached.clone()
}

func (c *Container) build(sel Selection) View {
	v := View{
		Selection: sel,
		Stocks:    c.cat.Stocks(),
		Topics:    c.cat.Topics(),
	}
	a, res, err := c.src.Resolve(sel.Stock, c.policy)
	v.Resolution = res
	switch {
	case errors.Is(err, market.ErrUnknownTicker):
		v.Missing = true
		v.Notice = fmt.Sprintf("No data for %s.", displaySymbol(sel.Stock))
		return v
	case err != nil:
		v.Missing = true
		v.Notice = err.Error()
		return v
	}
	v.Analysis = a
	v.Name = c.cat.Name(res.Symbol)
	if res.Fallback {
		v.Notice = fmt.Sprintf("No data for %s; showing %s.", displaySymbol(sel.Stock), res.Symbol)
	}
	return v
}

func (v View) clone() View {
	v.Stocks = slices.Clone(v.Stocks)
	v.Topics = slices.Clone(v.Topics)
	v.Analysis = v.Analysis.Clone()
	return v
}

func displaySymbol(s string) string {
	if s == "" {
		return "an empty ticker"
	}
	return s
}

// Build renders a one-off view without touching any container state.
func Build(cat *market.Catalog, sel Selection, p market.Policy) View {
	c := NewContainer(cat, WithPolicy(p), WithSelection(sel))
	return c.Render()
}
