package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"finhacker/internal/monitor"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 90 * time.Second
	wsPingPeriod = 45 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

// pulseMsg is one frame of /ws/monitor.
type pulseMsg struct {
	Type  string        `json:"type"`
	Seq   int64         `json:"seq"`
	Pulse monitor.Pulse `json:"pulse"`
}

func newPulseMsg(s monitor.Snapshot) pulseMsg {
	return pulseMsg{Type: "pulse", Seq: s.Seq, Pulse: s.Pulse()}
}

func (hs *HTTPServer) handleMonitorWS(w http.ResponseWriter, r *http.Request) {
	if hs.cfg.Bus == nil {
		http.Error(w, errNoBus.Error(), http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		hs.cfg.Log.Warnf("ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, err := hs.cfg.Bus.Subscribe(ctx)
	if err != nil {
		hs.cfg.Log.Errorf("ws subscribe: %v", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "quote bus unavailable"),
			time.Now().Add(wsWriteWait))
		return
	}

	hs.cfg.M.WSConnected()
	defer hs.cfg.M.WSDisconnected()

	// reader: clients never send data, but pongs and close frames arrive here
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(s monitor.Snapshot) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(newPulseMsg(s))
	}

	if err := send(hs.latest(ctx)); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(time.Second))
			return
		case s, ok := <-updates:
			if !ok {
				return
			}
			if err := send(s); err != nil {
				hs.cfg.Log.Debugf("ws write: %v", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
