package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math/rand"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"finhacker/internal/events"
)

// SimulateEvent posts a randomly picked event type. A successful result card
// is prepended to #event-results and removed after DismissAfter; a failure
// card stays until the page is reloaded.
func (c *Controller) SimulateEvent(ctx context.Context) (events.Result, error) {
	typ := c.pick()

	c.mu.Lock()
	if c.dead {
		c.mu.Unlock()
		return events.Result{}, ErrUnmounted
	}
	c.doc.Find("#event-type option").Each(func(_ int, o *goquery.Selection) {
		if v, _ := o.Attr("value"); v == string(typ) {
			o.SetAttr("selected", "selected")
		} else {
			o.RemoveAttr("selected")
		}
	})
	c.simulating++
	c.doc.Find("#event-loading").RemoveClass("hidden")
	c.mu.Unlock()

	res, err := c.postEvent(ctx, typ)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.simulating--
	if c.dead {
		return events.Result{}, ErrUnmounted
	}
	if c.simulating == 0 {
		c.doc.Find("#event-loading").AddClass("hidden")
	}
	results := c.doc.Find("#event-results")

	if err != nil {
		c.log.Errorf("simulate event %s failed: %v", typ, err)
		results.PrependHtml(`<div class="event-error p-4 bg-red-50 rounded-lg mt-4">` +
			`<h4 class="font-semibold mb-2">Event simulation failed</h4>` +
			`<p class="text-sm text-red-700">` + html.EscapeString(err.Error()) + `</p></div>`)
		return events.Result{}, err
	}

	id := uuid.NewString()
	results.PrependHtml(`<div class="event-card p-4 bg-slate-100 rounded-lg mt-4 animate-fade-in" data-card-id="` + id + `">` +
		`<h4 class="font-semibold mb-2">` + html.EscapeString(res.Event) + `</h4>` +
		`<p class="event-analysis text-sm text-gray-700 mb-2">` + html.EscapeString(res.Analysis) + `</p>` +
		`<p class="event-impact text-sm font-medium text-teal-700">Impact: ` + html.EscapeString(res.Impact) + `</p></div>`)
	c.timers[id] = time.AfterFunc(c.cfg.DismissAfter, func() { c.dismiss(id) })
	return res, nil
}

func (c *Controller) dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.timers[id]; !ok {
		return
	}
	delete(c.timers, id)
	c.doc.Find(`#event-results [data-card-id="` + id + `"]`).Remove()
}

// PendingDismissals is the number of result cards still waiting to be removed.
func (c *Controller) PendingDismissals() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Controller) pick() events.Type {
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	if c.cfg.Picker == nil {
		c.cfg.Picker = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return events.Random(c.cfg.Picker)
}

func (c *Controller) postEvent(ctx context.Context, typ events.Type) (events.Result, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"event_type": string(typ)}).
		Post("/simulate_event")
	if err != nil {
		return events.Result{}, err
	}
	if !resp.IsSuccess() {
		return events.Result{}, fmt.Errorf("HTTP %s", resp.Status())
	}
	var res events.Result
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return events.Result{}, fmt.Errorf("decode event: %w", err)
	}
	return res, nil
}
