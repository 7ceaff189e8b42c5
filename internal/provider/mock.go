package provider

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/guttosm/indexpulse/internal/domain/models"
)

// MockProvider returns controllable fixed data for development and tests.
type MockProvider struct {
	Table *models.RawTable
	Err   error
	Delay time.Duration

	// calls counts FetchRaw invocations; tests assert exactly-once launch.
	calls atomic.Int64
}

func (m *MockProvider) Name() string { return "mock" }

// Calls reports how many times FetchRaw has run.
func (m *MockProvider) Calls() int64 { return m.calls.Load() }

func (m *MockProvider) FetchRaw(ctx context.Context, symbol string, period models.Period, rng models.DateRange) (*models.RawTable, error) {
	m.calls.Add(1)
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Table != nil {
		return m.Table, nil
	}
	return GenerateTable(rng.Start.In(time.Local), 10, 3400), nil
}

// GenerateTable builds a plausible ascending bar table for demos and tests.
func GenerateTable(start time.Time, count int, base float64) *models.RawTable {
	t := &models.RawTable{
		Columns: []string{"datetime", "open", "close", "high", "low", "volume"},
	}
	for i := 0; i < count; i++ {
		p := base * (1 + float64(i-count/2)*0.001)
		ts := start.Add(time.Duration(i) * 5 * time.Minute)
		t.Rows = append(t.Rows, []string{
			ts.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.2f", p*0.999),
			fmt.Sprintf("%.2f", p),
			fmt.Sprintf("%.2f", p*1.005),
			fmt.Sprintf("%.2f", p*0.995),
			"1000000",
		})
	}
	return t
}
