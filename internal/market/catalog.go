package market

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/stocks.yaml data/analysis/*.yaml
var dataFS embed.FS

var ErrUnknownTicker = errors.New("unknown ticker")

// Policy decides what Resolve does with a symbol that has no record.
type Policy int

const (
	FallbackToDefault Policy = iota
	Strict
)

// Resolution describes how a requested symbol was mapped to a record.
type Resolution struct {
	Requested string `json:"requested"`
	Symbol    string `json:"symbol"`
	Fallback  bool   `json:"fallback"`
}

type stocksFile struct {
	Default string  `yaml:"default"`
	Stocks  []Stock `yaml:"stocks"`
	Topics  []Topic `yaml:"topics"`
}

// Catalog is the immutable set of mocked analysis records.
type Catalog struct {
	def      string
	stocks   []Stock
	topics   []Topic
	bySymbol map[string]Analysis
	names    map[string]string
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the catalog built from the embedded data. It is parsed once.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = load()
	})
	return defaultCat, defaultErr
}

// MustDefault panics if the embedded data is broken. The data ships with the
// binary, so that only happens on a bad build.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

func load() (*Catalog, error) {
	raw, err := dataFS.ReadFile("data/stocks.yaml")
	if err != nil {
		return nil, fmt.Errorf("read stocks: %w", err)
	}
	var sf stocksFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parse stocks: %w", err)
	}

	c := &Catalog{
		def:      normalize(sf.Default),
		stocks:   sf.Stocks,
		topics:   sf.Topics,
		bySymbol: make(map[string]Analysis, len(sf.Stocks)),
		names:    make(map[string]string, len(sf.Stocks)),
	}

	for _, s := range sf.Stocks {
		sym := normalize(s.Symbol)
		b, err := dataFS.ReadFile(path.Join("data/analysis", sym+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("read analysis %s: %w", sym, err)
		}
		var a Analysis
		if err := yaml.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("parse analysis %s: %w", sym, err)
		}
		if normalize(a.Symbol) != sym {
			return nil, fmt.Errorf("analysis %s: symbol mismatch %q", sym, a.Symbol)
		}
		c.bySymbol[sym] = a
		c.names[sym] = s.Name
	}

	if _, ok := c.bySymbol[c.def]; !ok {
		return nil, fmt.Errorf("default ticker %q has no analysis", sf.Default)
	}
	return c, nil
}

func normalize(sym string) string {
	return strings.ToUpper(strings.TrimSpace(sym))
}

func (c *Catalog) DefaultSymbol() string { return c.def }

// Stocks returns the supported tickers in selector order.
func (c *Catalog) Stocks() []Stock {
	out := make([]Stock, len(c.stocks))
	copy(out, c.stocks)
	return out
}

func (c *Catalog) Symbols() []string {
	out := make([]string, 0, len(c.bySymbol))
	for s := range c.bySymbol {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) Topics() []Topic {
	out := make([]Topic, len(c.topics))
	copy(out, c.topics)
	return out
}

func (c *Catalog) Name(symbol string) string {
	return c.names[normalize(symbol)]
}

func (c *Catalog) Supported(symbol string) bool {
	_, ok := c.bySymbol[normalize(symbol)]
	return ok
}

// Lookup is a direct keyed lookup with no fallback. The record returned is a
// copy the caller may modify.
func (c *Catalog) Lookup(symbol string) (Analysis, bool) {
	a, ok := c.bySymbol[normalize(symbol)]
	if !ok {
		return Analysis{}, false
	}
	return a.Clone(), true
}

// Resolve looks up symbol under the given policy. Under FallbackToDefault an
// unknown symbol yields the default record with Resolution.Fallback set.
func (c *Catalog) Resolve(symbol string, p Policy) (Analysis, Resolution, error) {
	sym := normalize(symbol)
	res := Resolution{Requested: sym, Symbol: sym}
	if a, ok := c.bySymbol[sym]; ok {
		return a.Clone(), res, nil
	}
	if p == Strict {
		return Analysis{}, res, fmt.Errorf("%w: %q", ErrUnknownTicker, symbol)
	}
	res.Symbol = c.def
	res.Fallback = true
	return c.bySymbol[c.def].Clone(), res, nil
}
