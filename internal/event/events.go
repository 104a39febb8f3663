// Package event defines the sequenced events that drive the engine loop.
package event

import (
	"github.com/alexe13/roboquant/pkg/quant"
)

// Type defines the type of event.
type Type uint16

const (
	EvMarket Type = iota + 1
	EvSystemHalt
)

// Event is the interface for all engine events.
type Event interface {
	GetSeq() uint64
	GetTs() quant.TimeStamp
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64          `json:"seq"`
	Ts  quant.TimeStamp `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64         { return e.Seq }
func (e BaseEvent) GetTs() quant.TimeStamp { return e.Ts }

// PriceRef selects which point of an observation serves as the reference
// price.
type PriceRef uint8

const (
	RefClose PriceRef = iota
	RefOpen
	RefMid // midpoint of high and low
)

// PriceObservation is one asset's price data inside an event. Only a
// single reference point is required; OHLCV is carried when available.
type PriceObservation struct {
	Open   quant.PriceMicros `json:"open,omitempty"`
	High   quant.PriceMicros `json:"high,omitempty"`
	Low    quant.PriceMicros `json:"low,omitempty"`
	Close  quant.PriceMicros `json:"close"`
	Volume quant.QtyUnits    `json:"volume,omitempty"`
}

// Ref returns the selected reference price. Observations that carry only a
// close fall back to it.
func (o PriceObservation) Ref(r PriceRef) quant.PriceMicros {
	switch r {
	case RefOpen:
		if o.Open != 0 {
			return o.Open
		}
	case RefMid:
		if o.High != 0 && o.Low != 0 {
			return quant.PriceMicros((int64(o.High) + int64(o.Low)) / 2)
		}
	}
	return o.Close
}

// Obs builds a flat observation from a single price.
func Obs(price quant.PriceMicros) PriceObservation {
	return PriceObservation{Open: price, High: price, Low: price, Close: price}
}

// MarketEvent carries the latest price observation per symbol for one
// instant. Events arrive strictly time ordered.
type MarketEvent struct {
	BaseEvent
	Prices map[string]PriceObservation `json:"prices"`
}

func (e MarketEvent) GetType() Type { return EvMarket }

// NewMarketEvent creates an event with an empty price map.
func NewMarketEvent(seq uint64, ts quant.TimeStamp) *MarketEvent {
	return &MarketEvent{
		BaseEvent: BaseEvent{Seq: seq, Ts: ts},
		Prices:    make(map[string]PriceObservation),
	}
}

// HaltEvent orders the engine to flatten the book: cancel all open orders
// and close every position at the last known prices.
type HaltEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

func (e HaltEvent) GetType() Type { return EvSystemHalt }

// NewHaltEvent creates a halt event.
func NewHaltEvent(seq uint64, ts quant.TimeStamp, reason string) *HaltEvent {
	return &HaltEvent{BaseEvent: BaseEvent{Seq: seq, Ts: ts}, Reason: reason}
}
