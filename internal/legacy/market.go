package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"finhacker/internal/monitor"
)

// Quote is one entry of the market strip as currently shown on the page.
type Quote struct {
	Key    string
	Price  string
	Change string
	Up     bool
}

// RefreshMarket fetches /market_data and patches every .pulse-item. A
// failure leaves the strip untouched.
func (c *Controller) RefreshMarket(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Get("/market_data")
	if err != nil {
		c.log.Warnf("market refresh failed: %v", err)
		return fmt.Errorf("market refresh: %w", err)
	}
	if !resp.IsSuccess() {
		c.log.Warnf("market refresh failed: HTTP %s", resp.Status())
		return fmt.Errorf("market refresh: HTTP %s", resp.Status())
	}
	var p monitor.Pulse
	if err := json.Unmarshal(resp.Body(), &p); err != nil {
		c.log.Warnf("market refresh: bad payload: %v", err)
		return fmt.Errorf("market refresh: decode: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		return ErrUnmounted
	}
	c.doc.Find(".pulse-item").Each(func(_ int, item *goquery.Selection) {
		key, _ := item.Attr("data-pulse-key")
		prefix, _ := item.Attr("data-dom-prefix")
		e, ok := p.Entries[key]
		if !ok || prefix == "" {
			return
		}
		price := c.doc.Find("#" + prefix + "-price")
		change := c.doc.Find("#" + prefix + "-change")
		if price.Length() == 0 || change.Length() == 0 {
			return
		}
		up := e.Direction == monitor.Up
		price.SetText("$" + strconv.FormatFloat(e.Price, 'f', -1, 64))

		color, caret := "text-red-400", "fas fa-caret-down mr-1"
		if up {
			color, caret = "text-green-400", "fas fa-caret-up mr-1"
		}
		change.SetAttr("class", "text-xs "+color)
		change.SetHtml(`<i class="` + caret + `"></i>`)
		change.AppendHtml(strconv.FormatFloat(e.Change, 'f', -1, 64) + "%")
	})
	return nil
}

// Quotes reads the market strip back out of the page.
func (c *Controller) Quotes() []Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Quote
	c.doc.Find(".pulse-item").Each(func(_ int, item *goquery.Selection) {
		key, _ := item.Attr("data-pulse-key")
		prefix, _ := item.Attr("data-dom-prefix")
		change := c.doc.Find("#" + prefix + "-change")
		out = append(out, Quote{
			Key:    key,
			Price:  c.doc.Find("#" + prefix + "-price").Text(),
			Change: change.Text(),
			Up:     change.HasClass("text-green-400"),
		})
	})
	return out
}

// RunMarketRefresh calls RefreshMarket every RefreshInterval until ctx is
// done. Failed polls are skipped. It returns immediately when the interval is
// not positive.
func (c *Controller) RunMarketRefresh(ctx context.Context) {
	if c.cfg.RefreshInterval <= 0 {
		return
	}
	t := time.NewTicker(c.cfg.RefreshInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := c.RefreshMarket(ctx); err != nil {
				continue
			}
			if c.cfg.OnRefresh != nil {
				c.cfg.OnRefresh()
			}
		}
	}
}
