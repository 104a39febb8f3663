package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alexe13/roboquant/internal/event"
	"github.com/alexe13/roboquant/pkg/quant"
)

// tickMessage is the wire format of the paper-trading price feed.
// Prices come as strings and are parsed fixed-point, never through float64.
type tickMessage struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	TsMs   int64  `json:"ts"`
}

type subscribeRequest struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

// PaperFeed turns a live price stream into sequenced market events for the
// engine inbox. It is the sole event producer in paper mode, so it owns
// sequence numbering. A circuit breaker guards against a garbage feed:
// when it opens, the feed emits a halt event instead of more prices.
type PaperFeed struct {
	url     string
	symbols []string
	inbox   chan<- event.Event
	seq     uint64
	breaker *Breaker
	halted  bool
}

// NewPaperFeed creates a feed handler from the paper section of the
// configuration; breaker thresholds come from there too.
func NewPaperFeed(cfg PaperConfig, inbox chan<- event.Event) *PaperFeed {
	return &PaperFeed{
		url:     cfg.WSURL,
		symbols: cfg.Symbols,
		inbox:   inbox,
		breaker: NewBreaker(cfg.FeedBreaker()),
	}
}

func (f *PaperFeed) ID() string     { return "paper-feed" }
func (f *PaperFeed) GetURL() string { return f.url }

// OnConnect subscribes to the configured symbols.
func (f *PaperFeed) OnConnect(_ context.Context, conn *websocket.Conn) error {
	req := subscribeRequest{Op: "subscribe", Symbols: f.symbols}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// OnMessage parses one tick and forwards it as a market event.
func (f *PaperFeed) OnMessage(_ context.Context, msg []byte) {
	if f.halted {
		return
	}
	if !f.breaker.Allow() {
		f.halted = true
		slog.Error("Paper feed circuit open, halting engine")
		f.inbox <- event.NewHaltEvent(quant.NextSeq(&f.seq), nowTs(), "paper feed circuit open")
		return
	}

	var tick tickMessage
	if err := json.Unmarshal(msg, &tick); err != nil || tick.Symbol == "" || tick.Price == "" {
		f.breaker.RecordFailure()
		slog.Warn("Paper feed: bad tick", slog.String("raw", string(msg)))
		return
	}
	f.breaker.RecordSuccess()

	ev := event.AcquireMarketEvent()
	ev.Seq = quant.NextSeq(&f.seq)
	ev.Ts = quant.TimeStamp(tick.TsMs * 1000)
	ev.Prices[tick.Symbol] = event.Obs(quant.ToPriceMicrosStr(tick.Price))
	f.inbox <- ev
}

// OnPing keeps the connection alive with a protocol-level ping.
func (f *PaperFeed) OnPing(_ context.Context, conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func nowTs() quant.TimeStamp {
	return quant.TimeStamp(time.Now().UnixMicro())
}
