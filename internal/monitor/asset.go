package monitor

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

const (
	Up   = "up"
	Down = "down"
)

// Asset is one tracked quote. Key is the field name used in the market-data
// payload ("spy", "bitcoin", "gold").
type Asset struct {
	Key    string  `yaml:"key" json:"key"`
	Symbol string  `yaml:"symbol" json:"symbol"`
	Name   string  `yaml:"name" json:"name"`
	Price  float64 `yaml:"price" json:"price"`
	Change float64 `yaml:"change" json:"change"`
}

func (a Asset) Direction() string { return Direction(a.Change) }

func Direction(change float64) string {
	if change >= 0 {
		return Up
	}
	return Down
}

func DefaultAssets() []Asset {
	return []Asset{
		{Key: "spy", Symbol: "SPY", Name: "S&P 500", Price: 504.23, Change: 0.65},
		{Key: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Price: 63458.75, Change: -1.23},
		{Key: "gold", Symbol: "GOLD", Name: "Gold", Price: 2342.80, Change: 0.34},
	}
}

type assetsFile struct {
	Assets []Asset `yaml:"assets"`
}

// LoadAssets reads an asset list from a YAML file. Duplicate keys keep the
// first entry.
func LoadAssets(path string) ([]Asset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var af assetsFile
	if err := yaml.Unmarshal(b, &af); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(af.Assets))
	out := make([]Asset, 0, len(af.Assets))
	for _, a := range af.Assets {
		a.Key = strings.ToLower(strings.TrimSpace(a.Key))
		a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
		if a.Key == "" || a.Symbol == "" {
			continue
		}
		if a.Price <= 0 {
			return nil, fmt.Errorf("asset %s: price must be positive", a.Key)
		}
		if _, ok := seen[a.Key]; ok {
			continue
		}
		seen[a.Key] = struct{}{}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no assets found in %s", path)
	}
	return out, nil
}

var printer = message.NewPrinter(language.English)

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatPrice renders "$63,458.75".
func FormatPrice(v float64) string {
	return printer.Sprintf("$%.2f", Round2(v))
}

// FormatChange renders "+0.65%" or "-1.23%".
func FormatChange(v float64) string {
	return fmt.Sprintf("%+.2f%%", Round2(v))
}
