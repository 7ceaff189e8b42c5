package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/indexpulse/internal/domain/models"
	"github.com/guttosm/indexpulse/internal/provider"
)

func testScenario(label string) models.Scenario {
	return models.Scenario{
		Label:        label,
		Symbol:       "000300",
		Period:       models.Period5Min,
		LookbackDays: 5,
	}
}

func waitPhase(t *testing.T, s *Scheduler, label string, want models.Phase) models.StateSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := s.Query(label)
		require.NoError(t, err)
		if snap.Phase == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, _ := s.Query(label)
	t.Fatalf("scenario %q never reached %s (stuck at %s)", label, want, snap.Phase)
	return snap
}

func TestScheduler_HappyPath(t *testing.T) {
	p := &provider.MockProvider{}
	s, err := NewScheduler(p, []models.Scenario{testScenario("x")}, Options{})
	require.NoError(t, err)

	snap, err := s.Query("x")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseNotRequested, snap.Phase)
	assert.Nil(t, snap.Series)

	require.NoError(t, s.Start("x"))
	snap = waitPhase(t, s, "x", models.PhaseReady)
	assert.NotNil(t, snap.Series)
	assert.Nil(t, snap.Err)
	assert.True(t, s.IsReady("x"))
	assert.EqualValues(t, 1, p.Calls())
}

func TestScheduler_DoubleStartLaunchesOnce(t *testing.T) {
	p := &provider.MockProvider{Delay: 150 * time.Millisecond}
	s, err := NewScheduler(p, []models.Scenario{testScenario("x")}, Options{})
	require.NoError(t, err)

	require.NoError(t, s.Start("x"))
	require.NoError(t, s.Start("x"))
	require.NoError(t, s.Start("x"))

	waitPhase(t, s, "x", models.PhaseReady)
	assert.EqualValues(t, 1, p.Calls(), "start while loading must not launch a second fetch")
}

func TestScheduler_UnknownScenario(t *testing.T) {
	s, err := NewScheduler(&provider.MockProvider{}, nil, Options{})
	require.NoError(t, err)

	_, err = s.Query("nope")
	assert.ErrorIs(t, err, ErrUnknownScenario)
	assert.ErrorIs(t, s.Start("nope"), ErrUnknownScenario)
	assert.False(t, s.IsReady("nope"))
}

func TestScheduler_RegisterValidation(t *testing.T) {
	s, err := NewScheduler(&provider.MockProvider{}, nil, Options{})
	require.NoError(t, err)

	assert.Error(t, s.Register(models.Scenario{Label: "", Period: models.Period5Min, LookbackDays: 1}))
	assert.Error(t, s.Register(models.Scenario{Label: "bad-period", Period: "2", LookbackDays: 1}))
	assert.Error(t, s.Register(models.Scenario{Label: "no-window", Period: models.Period5Min}))

	require.NoError(t, s.Register(testScenario("x")))
	assert.Error(t, s.Register(testScenario("x")), "duplicate label")
	assert.Equal(t, []string{"x"}, s.Labels())
}

func TestScheduler_FailureAndRetry(t *testing.T) {
	p := &provider.MockProvider{Err: context.DeadlineExceeded}
	s, err := NewScheduler(p, []models.Scenario{testScenario("x")}, Options{})
	require.NoError(t, err)

	require.NoError(t, s.Start("x"))
	snap := waitPhase(t, s, "x", models.PhaseFailed)
	require.NotNil(t, snap.Err)
	assert.Equal(t, models.KindProviderError, snap.Err.Kind)
	assert.Nil(t, snap.Series)

	// Provider recovers; a retry moves Failed back through Loading to Ready.
	p.Err = nil
	require.NoError(t, s.Retry("x"))
	snap = waitPhase(t, s, "x", models.PhaseReady)
	assert.NotNil(t, snap.Series)
	assert.Nil(t, snap.Err)
}

func TestScheduler_TimeoutSurfacesAsProviderError(t *testing.T) {
	p := &provider.MockProvider{Delay: 500 * time.Millisecond}
	s, err := NewScheduler(p, []models.Scenario{testScenario("x")},
		Options{FetchTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	require.NoError(t, s.Start("x"))
	snap := waitPhase(t, s, "x", models.PhaseFailed)
	require.NotNil(t, snap.Err)
	assert.Equal(t, models.KindProviderError, snap.Err.Kind)
	assert.Contains(t, snap.Err.Error(), "timed out")
}

// gatedProvider blocks each call until its gate is fed, and deliberately
// ignores context cancellation so tests can deliver genuinely late results.
type gatedProvider struct {
	mu    sync.Mutex
	gates []chan *models.RawTable
}

func (g *gatedProvider) Name() string { return "gated" }

func (g *gatedProvider) FetchRaw(_ context.Context, _ string, _ models.Period, _ models.DateRange) (*models.RawTable, error) {
	ch := make(chan *models.RawTable, 1)
	g.mu.Lock()
	g.gates = append(g.gates, ch)
	g.mu.Unlock()
	return <-ch, nil
}

func (g *gatedProvider) release(call int, table *models.RawTable) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		g.mu.Lock()
		if call < len(g.gates) {
			g.gates[call] <- table
			g.mu.Unlock()
			return
		}
		g.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	panic("gated call never arrived")
}

func tableWithClose(close string) *models.RawTable {
	return &models.RawTable{
		Columns: []string{"datetime", "open", "close", "high", "low", "volume"},
		Rows: [][]string{
			{"2024-03-01 09:30", "1", close, "5", "0.5", "10"},
		},
	}
}

func TestScheduler_StaleResultRejected(t *testing.T) {
	g := &gatedProvider{}
	s, err := NewScheduler(g, []models.Scenario{testScenario("x")}, Options{})
	require.NoError(t, err)

	// First fetch goes in flight and stalls.
	require.NoError(t, s.Start("x"))

	// Cancel it, then start a newer fetch.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Cancel("x"))
	snap, err := s.Query("x")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseNotRequested, snap.Phase)

	require.NoError(t, s.Start("x"))

	// The newer fetch completes with close=2.
	g.release(1, tableWithClose("2"))
	snap = waitPhase(t, s, "x", models.PhaseReady)
	require.NotNil(t, snap.Series)
	assert.Equal(t, 2.0, snap.Series.Last().Close)

	// Now the cancelled fetch finally delivers close=1; it must be dropped.
	g.release(0, tableWithClose("1"))
	time.Sleep(50 * time.Millisecond)

	snap, err = s.Query("x")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseReady, snap.Phase)
	assert.Equal(t, 2.0, snap.Series.Last().Close, "stale result overwrote the newer fetch")
}

func TestScheduler_CancelNonLoadingIsNoop(t *testing.T) {
	p := &provider.MockProvider{}
	s, err := NewScheduler(p, []models.Scenario{testScenario("x")}, Options{})
	require.NoError(t, err)

	require.NoError(t, s.Cancel("x"))
	require.NoError(t, s.Start("x"))
	waitPhase(t, s, "x", models.PhaseReady)
	require.NoError(t, s.Cancel("x"))
	assert.True(t, s.IsReady("x"), "cancel after completion must not discard the series")
}

func TestScheduler_SnapshotsNeverTorn(t *testing.T) {
	p := &provider.MockProvider{Delay: 2 * time.Millisecond}
	s, err := NewScheduler(p, []models.Scenario{testScenario("x")}, Options{})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			_ = s.Start("x")
			for !s.IsReady("x") {
				time.Sleep(time.Millisecond)
			}
		}
	}()

	for alive := true; alive; {
		select {
		case <-done:
			alive = false
		default:
		}
		snap, err := s.Query("x")
		require.NoError(t, err)
		switch snap.Phase {
		case models.PhaseReady:
			assert.NotNil(t, snap.Series)
			assert.Nil(t, snap.Err)
		case models.PhaseFailed:
			assert.NotNil(t, snap.Err)
			assert.Nil(t, snap.Series)
		default:
			assert.Nil(t, snap.Series)
			assert.Nil(t, snap.Err)
		}
	}
}

func TestScheduler_StartAll(t *testing.T) {
	p := &provider.MockProvider{}
	scenarios := models.PresetScenarios("000300")
	s, err := NewScheduler(p, scenarios, Options{
		Today: func() civil.Date { return civil.Date{Year: 2024, Month: 3, Day: 1} },
	})
	require.NoError(t, err)

	s.StartAll()
	for _, sc := range scenarios {
		waitPhase(t, s, sc.Label, models.PhaseReady)
	}
	assert.EqualValues(t, len(scenarios), p.Calls())

	snaps := s.Snapshots()
	require.Len(t, snaps, len(scenarios))
	for _, snap := range snaps {
		assert.True(t, snap.Ready())
	}
}
