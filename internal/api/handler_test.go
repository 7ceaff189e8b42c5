package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"github.com/guttosm/indexpulse/internal/chart"
	"github.com/guttosm/indexpulse/internal/domain/models"
)

// mockPipeline is an in-memory Pipeline double.
type mockPipeline struct {
	snaps       map[string]models.StateSnapshot
	order       []string
	registerErr error
	registered  []models.Scenario
	started     []string
	cancelled   []string
}

func newMockPipeline() *mockPipeline {
	return &mockPipeline{snaps: map[string]models.StateSnapshot{}}
}

func (m *mockPipeline) put(snap models.StateSnapshot) {
	label := snap.Scenario.Label
	if _, ok := m.snaps[label]; !ok {
		m.order = append(m.order, label)
	}
	m.snaps[label] = snap
}

func (m *mockPipeline) Register(sc models.Scenario) error {
	if m.registerErr != nil {
		return m.registerErr
	}
	m.registered = append(m.registered, sc)
	m.put(models.StateSnapshot{Scenario: sc, Phase: models.PhaseNotRequested})
	return nil
}

func (m *mockPipeline) Start(label string) error {
	if _, ok := m.snaps[label]; !ok {
		return fmt.Errorf("unknown scenario %q", label)
	}
	m.started = append(m.started, label)
	return nil
}

func (m *mockPipeline) StartAll() {
	for _, label := range m.order {
		_ = m.Start(label)
	}
}

func (m *mockPipeline) Retry(label string) error { return m.Start(label) }

func (m *mockPipeline) Cancel(label string) error {
	if _, ok := m.snaps[label]; !ok {
		return fmt.Errorf("unknown scenario %q", label)
	}
	m.cancelled = append(m.cancelled, label)
	return nil
}

func (m *mockPipeline) Query(label string) (models.StateSnapshot, error) {
	snap, ok := m.snaps[label]
	if !ok {
		return models.StateSnapshot{}, fmt.Errorf("unknown scenario %q", label)
	}
	return snap, nil
}

func (m *mockPipeline) Snapshots() []models.StateSnapshot {
	out := make([]models.StateSnapshot, 0, len(m.order))
	for _, label := range m.order {
		out = append(out, m.snaps[label])
	}
	return out
}

var _ Pipeline = (*mockPipeline)(nil)

func readySeries() *models.Series {
	base := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
	return &models.Series{
		Symbol: "000300",
		Period: models.Period5Min,
		Bars: []models.Bar{
			{Time: base, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
			{Time: base.Add(5 * time.Minute), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 20},
		},
	}
}

func setupRouter(m *mockPipeline) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(m, chart.NoopRenderer{}, "000300")
	h.today = func() civil.Date { return civil.Date{Year: 2024, Month: 1, Day: 10} }
	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.GET("/scenarios", h.ListScenarios)
	v1.POST("/scenarios/start", h.StartAll)
	v1.GET("/scenarios/:label", h.GetScenario)
	v1.POST("/scenarios/:label/start", h.Start)
	v1.POST("/scenarios/:label/retry", h.Retry)
	v1.POST("/scenarios/:label/cancel", h.Cancel)
	v1.GET("/scenarios/:label/series", h.GetSeries)
	v1.GET("/scenarios/:label/chart", h.GetChart)
	v1.POST("/custom", h.CustomRun)
	return r
}

func seededPipeline() *mockPipeline {
	m := newMockPipeline()
	sc := models.Scenario{Label: "ready", Symbol: "000300", Period: models.Period5Min, LookbackDays: 5}
	m.put(models.StateSnapshot{Scenario: sc, Phase: models.PhaseReady, Series: readySeries()})

	loading := models.Scenario{Label: "loading", Symbol: "000300", Period: models.Period1Min, LookbackDays: 1}
	m.put(models.StateSnapshot{Scenario: loading, Phase: models.PhaseLoading})

	failed := models.Scenario{Label: "failed", Symbol: "000300", Period: models.PeriodDaily, LookbackDays: 60}
	m.put(models.StateSnapshot{
		Scenario: failed,
		Phase:    models.PhaseFailed,
		Err:      models.Errorf(models.KindProviderError, "timed out after 60s"),
	})
	return m
}

func TestScenarioRoutes_TableDriven(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		assert func(t *testing.T, m *mockPipeline, body []byte)
	}{
		{
			name:   "list all",
			method: http.MethodGet,
			path:   "/api/v1/scenarios",
			status: http.StatusOK,
			assert: func(t *testing.T, _ *mockPipeline, body []byte) {
				var out []map[string]any
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if len(out) != 3 {
					t.Fatalf("expected 3 scenarios, got %d", len(out))
				}
			},
		},
		{
			name:   "get one",
			method: http.MethodGet,
			path:   "/api/v1/scenarios/ready",
			status: http.StatusOK,
		},
		{
			name:   "get unknown",
			method: http.MethodGet,
			path:   "/api/v1/scenarios/nope",
			status: http.StatusNotFound,
		},
		{
			name:   "series when ready",
			method: http.MethodGet,
			path:   "/api/v1/scenarios/ready/series",
			status: http.StatusOK,
			assert: func(t *testing.T, _ *mockPipeline, body []byte) {
				var out struct {
					Bars []models.Bar `json:"bars"`
				}
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if len(out.Bars) != 2 {
					t.Fatalf("expected 2 bars, got %d", len(out.Bars))
				}
			},
		},
		{
			name:   "series while loading is guarded",
			method: http.MethodGet,
			path:   "/api/v1/scenarios/loading/series",
			status: http.StatusConflict,
		},
		{
			name:   "series of failed scenario exposes reason",
			method: http.MethodGet,
			path:   "/api/v1/scenarios/failed/series",
			status: http.StatusBadGateway,
			assert: func(t *testing.T, _ *mockPipeline, body []byte) {
				if !strings.Contains(string(body), "provider_error") {
					t.Fatalf("typed reason missing: %s", body)
				}
			},
		},
		{
			name:   "start one",
			method: http.MethodPost,
			path:   "/api/v1/scenarios/loading/start",
			status: http.StatusAccepted,
			assert: func(t *testing.T, m *mockPipeline, _ []byte) {
				if len(m.started) != 1 || m.started[0] != "loading" {
					t.Fatalf("start not forwarded: %v", m.started)
				}
			},
		},
		{
			name:   "start all",
			method: http.MethodPost,
			path:   "/api/v1/scenarios/start",
			status: http.StatusAccepted,
			assert: func(t *testing.T, m *mockPipeline, _ []byte) {
				if len(m.started) != 3 {
					t.Fatalf("expected 3 starts, got %v", m.started)
				}
			},
		},
		{
			name:   "retry failed",
			method: http.MethodPost,
			path:   "/api/v1/scenarios/failed/retry",
			status: http.StatusAccepted,
		},
		{
			name:   "cancel loading",
			method: http.MethodPost,
			path:   "/api/v1/scenarios/loading/cancel",
			status: http.StatusOK,
			assert: func(t *testing.T, m *mockPipeline, _ []byte) {
				if len(m.cancelled) != 1 {
					t.Fatalf("cancel not forwarded: %v", m.cancelled)
				}
			},
		},
		{
			name:   "chart inline when ready",
			method: http.MethodGet,
			path:   "/api/v1/scenarios/ready/chart",
			status: http.StatusOK,
			assert: func(t *testing.T, _ *mockPipeline, body []byte) {
				if !strings.HasPrefix(string(body), "<svg") {
					t.Fatalf("expected inline svg, got %.40s", body)
				}
			},
		},
		{
			name:   "chart while loading is guarded",
			method: http.MethodGet,
			path:   "/api/v1/scenarios/loading/chart",
			status: http.StatusConflict,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := seededPipeline()
			r := setupRouter(m)
			var reqBody *strings.Reader
			if tc.body != "" {
				reqBody = strings.NewReader(tc.body)
			} else {
				reqBody = strings.NewReader("")
			}
			req := httptest.NewRequest(tc.method, tc.path, reqBody)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, w.Code, w.Body.String())
			}
			if tc.assert != nil {
				tc.assert(t, m, w.Body.Bytes())
			}
		})
	}
}

func TestCustomRun_TableDriven(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		assert func(t *testing.T, m *mockPipeline, body []byte)
	}{
		{
			name:   "valid partial range",
			body:   `{"label":"dec-jan","period":"30","start":"12-28","end":"01-03"}`,
			status: http.StatusAccepted,
			assert: func(t *testing.T, m *mockPipeline, _ []byte) {
				if len(m.registered) != 1 {
					t.Fatalf("not registered: %v", m.registered)
				}
				sc := m.registered[0]
				if sc.Range == nil {
					t.Fatalf("range not resolved")
				}
				if sc.Range.Start.String() != "2023-12-28" || sc.Range.End.String() != "2024-01-03" {
					t.Fatalf("year inference wrong: %s", sc.Range)
				}
				if sc.Symbol != "000300" {
					t.Fatalf("default symbol not applied: %q", sc.Symbol)
				}
				if len(m.started) != 1 || m.started[0] != "dec-jan" {
					t.Fatalf("not started: %v", m.started)
				}
			},
		},
		{
			name:   "label generated when omitted",
			body:   `{"period":"5","start":"01-03","end":"01-08"}`,
			status: http.StatusAccepted,
			assert: func(t *testing.T, m *mockPipeline, _ []byte) {
				if len(m.registered) != 1 || !strings.HasPrefix(m.registered[0].Label, "custom-") {
					t.Fatalf("expected generated label, got %+v", m.registered)
				}
			},
		},
		{
			name:   "invalid period",
			body:   `{"period":"15","start":"01-03","end":"01-08"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "unparseable start",
			body:   `{"period":"5","start":"Jan 3","end":"01-08"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "future range fails before scheduling",
			body:   `{"period":"5","start":"01-03","end":"03-01"}`,
			status: http.StatusBadRequest,
			assert: func(t *testing.T, m *mockPipeline, body []byte) {
				if len(m.registered) != 0 || len(m.started) != 0 {
					t.Fatalf("future range must not schedule anything")
				}
				if !strings.Contains(string(body), "future_range") {
					t.Fatalf("typed reason missing: %s", body)
				}
			},
		},
		{
			name:   "mixed explicit and partial years",
			body:   `{"period":"5","start":"2024-01-03","end":"01-08"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed body",
			body:   `{"period":`,
			status: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newMockPipeline()
			r := setupRouter(m)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/custom", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, w.Code, w.Body.String())
			}
			if tc.assert != nil {
				tc.assert(t, m, w.Body.Bytes())
			}
		})
	}
}
