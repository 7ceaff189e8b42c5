package models

import "time"

// Bar is one OHLCV sample. Prices and volume are non-negative; the
// normalizer enforces that before a Bar ever exists.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is an ordered, strictly time-increasing sequence of bars for one
// (symbol, period). A Series is immutable once built: the scheduler shares
// it by reference across concurrent readers.
type Series struct {
	Symbol string `json:"symbol"`
	Period Period `json:"period"`
	Bars   []Bar  `json:"bars"`
}

// Empty reports whether the series holds no bars. A successful fetch never
// produces an empty series.
func (s *Series) Empty() bool { return s == nil || len(s.Bars) == 0 }

// First returns the earliest bar. Callers must check Empty first.
func (s *Series) First() Bar { return s.Bars[0] }

// Last returns the most recent bar. Callers must check Empty first.
func (s *Series) Last() Bar { return s.Bars[len(s.Bars)-1] }
