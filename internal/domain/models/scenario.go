package models

// Scenario identifies one fetch unit of work: a label, a period, and either
// an absolute date range or a relative lookback in days. Scenarios are
// never mutated after creation; only their state record changes.
type Scenario struct {
	Label  string `json:"label"`
	Symbol string `json:"symbol"`
	Period Period `json:"period"`

	// Exactly one of LookbackDays / Range is meaningful. LookbackDays > 0
	// means "the most recent N days"; otherwise Range holds absolute dates.
	LookbackDays int        `json:"lookback_days,omitempty"`
	Range        *DateRange `json:"range,omitempty"`
}

// DefaultSymbol is the CSI 300 index code on the Shanghai exchange.
const DefaultSymbol = "000300"

// PresetScenarios returns the fixed scenario set offered at startup:
// short intraday windows at each granularity plus a daily overview.
func PresetScenarios(symbol string) []Scenario {
	if symbol == "" {
		symbol = DefaultSymbol
	}
	return []Scenario{
		{Label: "1min-1d", Symbol: symbol, Period: Period1Min, LookbackDays: 1},
		{Label: "1min-5d", Symbol: symbol, Period: Period1Min, LookbackDays: 5},
		{Label: "5min-5d", Symbol: symbol, Period: Period5Min, LookbackDays: 5},
		{Label: "5min-15d", Symbol: symbol, Period: Period5Min, LookbackDays: 15},
		{Label: "30min-5d", Symbol: symbol, Period: Period30Min, LookbackDays: 5},
		{Label: "30min-15d", Symbol: symbol, Period: Period30Min, LookbackDays: 15},
		{Label: "daily-60d", Symbol: symbol, Period: PeriodDaily, LookbackDays: 60},
	}
}
