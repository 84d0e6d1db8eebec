package models

import "time"

// Quote is the normalized point-in-time observation shared by all providers.
// Symbol is always namespace-free ("AAPL", "BTC-USD"), whatever format the
// upstream wanted; adapters translate on the way in and out.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PreviousClose float64   `json:"previous_close"`
	Change        float64   `json:"change"`
	ChangePct     float64   `json:"change_pct"`
	Volume        int64     `json:"volume"`
	AsOf          time.Time `json:"as_of"`
	Source        string    `json:"source"`
}

// Normalize recomputes the derived change fields from price and previous
// close. Upstream-reported change values are never trusted when both inputs
// are present. A zero previous close yields a zero change percent.
func (q Quote) Normalize() Quote {
	if q.Volume < 0 {
		q.Volume = 0
	}
	if q.PreviousClose == 0 {
		q.Change = 0
		q.ChangePct = 0
		return q
	}
	q.Change = q.Price - q.PreviousClose
	q.ChangePct = (q.Price - q.PreviousClose) / q.PreviousClose * 100
	return q
}
