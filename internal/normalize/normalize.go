// Package normalize converts raw provider tables into canonical bar
// series. Normalization is all-or-nothing: one bad row rejects the whole
// series, since a silently gapped series would corrupt charting.
package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guttosm/indexpulse/internal/domain/models"
)

// columnAliases maps each canonical bar field to the header names seen
// across providers, including the upstream Chinese labels.
var columnAliases = map[string][]string{
	"time":   {"time", "datetime", "date", "timestamp", "时间", "日期"},
	"open":   {"open", "o", "开盘"},
	"high":   {"high", "h", "最高"},
	"low":    {"low", "l", "最低"},
	"close":  {"close", "c", "收盘"},
	"volume": {"volume", "vol", "v", "成交量"},
}

// timeLayouts are tried in order when parsing the timestamp cell.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Series maps a raw table onto a canonical, strictly time-increasing bar
// series for the given symbol and period.
//
// Failure modes:
//   - MalformedData: unknown columns, a missing cell, an unparseable
//     timestamp, a non-numeric or negative price, or a negative volume.
//   - UnorderedData: timestamps that a single re-sort cannot make strictly
//     increasing (duplicates).
func Series(raw *models.RawTable, symbol string, period models.Period) (*models.Series, error) {
	if !period.Valid() {
		return nil, models.Errorf(models.KindMalformedData, "unsupported period %q", period)
	}
	if raw.Empty() {
		return nil, models.Errorf(models.KindEmptyResult, "no rows for %s %s", symbol, period.Label())
	}

	idx, err := resolveColumns(raw.Columns)
	if err != nil {
		return nil, err
	}

	loc := time.Local
	bars := make([]models.Bar, 0, len(raw.Rows))
	for n, row := range raw.Rows {
		bar, err := parseRow(row, idx, loc)
		if err != nil {
			return nil, models.NewError(models.KindMalformedData, fmt.Sprintf("row %d", n+1), err)
		}
		bars = append(bars, bar)
	}

	// Some providers return newest-first; one stable sort is allowed.
	if !sort.SliceIsSorted(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) }) {
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i-1].Time.Before(bars[i].Time) {
			return nil, models.Errorf(models.KindUnorderedData,
				"duplicate timestamp %s", bars[i].Time.Format(time.RFC3339))
		}
	}

	return &models.Series{Symbol: symbol, Period: period, Bars: bars}, nil
}

// fieldIndexes holds the column position of each canonical field.
type fieldIndexes struct {
	time, open, high, low, close, volume int
}

func resolveColumns(columns []string) (fieldIndexes, error) {
	find := func(field string) int {
		for _, alias := range columnAliases[field] {
			for i, c := range columns {
				if strings.EqualFold(strings.TrimSpace(c), alias) {
					return i
				}
			}
		}
		return -1
	}

	idx := fieldIndexes{
		time:   find("time"),
		open:   find("open"),
		high:   find("high"),
		low:    find("low"),
		close:  find("close"),
		volume: find("volume"),
	}
	for field, i := range map[string]int{
		"time": idx.time, "open": idx.open, "high": idx.high,
		"low": idx.low, "close": idx.close, "volume": idx.volume,
	} {
		if i < 0 {
			return fieldIndexes{}, models.Errorf(models.KindMalformedData,
				"missing %s column (have %s)", field, strings.Join(columns, ","))
		}
	}
	return idx, nil
}

func parseRow(row []string, idx fieldIndexes, loc *time.Location) (models.Bar, error) {
	var bar models.Bar

	cell := func(i int) (string, error) {
		if i >= len(row) {
			return "", fmt.Errorf("short row: %d cells", len(row))
		}
		s := strings.TrimSpace(row[i])
		if s == "" {
			return "", fmt.Errorf("empty cell %d", i)
		}
		return s, nil
	}

	ts, err := cell(idx.time)
	if err != nil {
		return bar, err
	}
	for _, layout := range timeLayouts {
		if t, perr := time.ParseInLocation(layout, ts, loc); perr == nil {
			bar.Time = t
			break
		}
	}
	if bar.Time.IsZero() {
		return bar, fmt.Errorf("unparseable timestamp %q", ts)
	}

	price := func(i int, name string) (float64, error) {
		s, err := cell(i)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, fmt.Errorf("%s: non-numeric %q", name, s)
		}
		if d.IsNegative() {
			return 0, fmt.Errorf("%s: negative value %s", name, d)
		}
		return d.InexactFloat64(), nil
	}

	if bar.Open, err = price(idx.open, "open"); err != nil {
		return bar, err
	}
	if bar.High, err = price(idx.high, "high"); err != nil {
		return bar, err
	}
	if bar.Low, err = price(idx.low, "low"); err != nil {
		return bar, err
	}
	if bar.Close, err = price(idx.close, "close"); err != nil {
		return bar, err
	}
	if bar.Volume, err = price(idx.volume, "volume"); err != nil {
		return bar, err
	}
	return bar, nil
}
