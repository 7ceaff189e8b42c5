package api

import (
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guttosm/indexpulse/internal/chart"
	"github.com/guttosm/indexpulse/internal/daterange"
	"github.com/guttosm/indexpulse/internal/domain/dto"
	"github.com/guttosm/indexpulse/internal/domain/models"
)

// Pipeline is the scheduler surface the HTTP handlers consume. None of
// these calls block on network I/O; fetches always run in background
// workers.
type Pipeline interface {
	Register(sc models.Scenario) error
	Start(label string) error
	StartAll()
	Retry(label string) error
	Cancel(label string) error
	Query(label string) (models.StateSnapshot, error)
	Snapshots() []models.StateSnapshot
}

// Handler provides HTTP handlers over the scenario pipeline.
//
// Responsibilities:
//   - Validate incoming parameters and custom range input
//   - Enforce the readiness guard: series and charts are only served for
//     scenarios whose phase is Ready
//   - Translate snapshots and failures into response DTOs
type Handler struct {
	pl       Pipeline
	renderer chart.Renderer
	symbol   string
	today    func() civil.Date
}

// NewHandler constructs a Handler. symbol is the default for custom runs
// that do not name one.
func NewHandler(pl Pipeline, renderer chart.Renderer, symbol string) *Handler {
	return &Handler{
		pl:       pl,
		renderer: renderer,
		symbol:   symbol,
		today:    func() civil.Date { return civil.DateOf(time.Now()) },
	}
}

// ListScenarios godoc
// @Summary      List scenario states
// @Description  Returns a snapshot of every registered scenario
// @Tags         scenarios
// @Produce      json
// @Success      200  {array}  dto.ScenarioResponse
// @Router       /api/v1/scenarios [get]
func (h *Handler) ListScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, h.responses())
}

// GetScenario godoc
// @Summary      Get one scenario's state
// @Tags         scenarios
// @Produce      json
// @Param        label  path      string  true  "Scenario label"
// @Success      200    {object}  dto.ScenarioResponse
// @Failure      404    {object}  dto.ErrorResponse
// @Router       /api/v1/scenarios/{label} [get]
func (h *Handler) GetScenario(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.NewScenarioResponse(snap))
}

// StartAll godoc
// @Summary      Launch every scenario's fetch
// @Description  Returns immediately; fetches run in the background
// @Tags         scenarios
// @Produce      json
// @Success      202  {array}  dto.ScenarioResponse
// @Router       /api/v1/scenarios/start [post]
func (h *Handler) StartAll(c *gin.Context) {
	h.pl.StartAll()
	c.JSON(http.StatusAccepted, h.responses())
}

// Start godoc
// @Summary      Launch one scenario's fetch
// @Description  A start while the scenario is already loading is a no-op
// @Tags         scenarios
// @Produce      json
// @Param        label  path      string  true  "Scenario label"
// @Success      202    {object}  dto.ScenarioResponse
// @Failure      404    {object}  dto.ErrorResponse
// @Router       /api/v1/scenarios/{label}/start [post]
func (h *Handler) Start(c *gin.Context) { h.transition(c, h.pl.Start, http.StatusAccepted) }

// Retry godoc
// @Summary      Retry a failed scenario
// @Tags         scenarios
// @Produce      json
// @Param        label  path      string  true  "Scenario label"
// @Success      202    {object}  dto.ScenarioResponse
// @Failure      404    {object}  dto.ErrorResponse
// @Router       /api/v1/scenarios/{label}/retry [post]
func (h *Handler) Retry(c *gin.Context) { h.transition(c, h.pl.Retry, http.StatusAccepted) }

// Cancel godoc
// @Summary      Cancel an in-flight fetch
// @Description  The late result, when it eventually arrives, is discarded
// @Tags         scenarios
// @Produce      json
// @Param        label  path      string  true  "Scenario label"
// @Success      200    {object}  dto.ScenarioResponse
// @Failure      404    {object}  dto.ErrorResponse
// @Router       /api/v1/scenarios/{label}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) { h.transition(c, h.pl.Cancel, http.StatusOK) }

// GetSeries godoc
// @Summary      Get a ready scenario's bars
// @Description  Serves the series only when the scenario is Ready; a
// @Description  loading scenario answers 409 so callers poll instead of
// @Description  rendering partial data
// @Tags         scenarios
// @Produce      json
// @Param        label  path      string  true  "Scenario label"
// @Success      200    {object}  dto.SeriesResponse
// @Failure      404    {object}  dto.ErrorResponse
// @Failure      409    {object}  dto.ErrorResponse  "Not ready yet"
// @Failure      502    {object}  dto.ErrorResponse  "Fetch failed"
// @Router       /api/v1/scenarios/{label}/series [get]
func (h *Handler) GetSeries(c *gin.Context) {
	snap, ok := h.readySnapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.SeriesResponse{
		Label:  snap.Scenario.Label,
		Symbol: snap.Series.Symbol,
		Period: string(snap.Series.Period),
		Bars:   snap.Series.Bars,
	})
}

// GetChart godoc
// @Summary      Render a ready scenario's chart
// @Description  Returns inline SVG, or saves to the conventional filename
// @Description  when save=true. Same readiness guard as the series route.
// @Tags         scenarios
// @Produce      json
// @Param        label  path   string  true   "Scenario label"
// @Param        save   query  bool    false  "Save to file instead of inline SVG"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "Not ready yet"
// @Router       /api/v1/scenarios/{label}/chart [get]
func (h *Handler) GetChart(c *gin.Context) {
	snap, ok := h.readySnapshot(c)
	if !ok {
		return
	}
	periodLabel := snap.Scenario.Period.Label()
	title := snap.Series.Symbol + " " + periodLabel

	if strings.EqualFold(c.Query("save"), "true") {
		path, err := h.renderer.Render(snap.Series, title, periodLabel)
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("render failed", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"artifact": path})
		return
	}

	c.Header("Content-Type", "image/svg+xml")
	c.Status(http.StatusOK)
	if err := chart.WriteSVG(c.Writer, snap.Series, title, 0, 0); err != nil {
		_ = c.Error(err)
	}
}

// CustomRun godoc
// @Summary      Register and launch an ad hoc scenario
// @Description  Resolves the date range synchronously; invalid or future
// @Description  ranges fail with 400 before anything is scheduled
// @Tags         scenarios
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CustomRunRequest  true  "Custom run"
// @Success      202      {object}  dto.ScenarioResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      409      {object}  dto.ErrorResponse  "Label already registered"
// @Router       /api/v1/custom [post]
func (h *Handler) CustomRun(c *gin.Context) {
	var req dto.CustomRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid request body", err))
		return
	}

	period := models.Period(req.Period)
	if !period.Valid() {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid period, expected one of 1, 5, 30, daily", nil))
		return
	}

	start, err := daterange.Parse(req.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid start date", err))
		return
	}
	end, err := daterange.Parse(req.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid end date", err))
		return
	}
	rng, err := daterange.Resolve(start, end, h.today())
	if err != nil {
		// Fail fast: nothing is scheduled for an unresolvable range.
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid range", err))
		return
	}

	sc := models.Scenario{
		Label:  req.Label,
		Symbol: req.Symbol,
		Period: period,
		Range:  &rng,
	}
	if sc.Label == "" {
		sc.Label = "custom-" + uuid.NewString()[:8]
	}
	if sc.Symbol == "" {
		sc.Symbol = h.symbol
	}

	if err := h.pl.Register(sc); err != nil {
		c.JSON(http.StatusConflict, dto.NewErrorResponse("scenario not registered", err))
		return
	}
	if err := h.pl.Start(sc.Label); err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("scenario not started", err))
		return
	}

	snap, _ := h.pl.Query(sc.Label)
	c.JSON(http.StatusAccepted, dto.NewScenarioResponse(snap))
}

func (h *Handler) responses() []dto.ScenarioResponse {
	snaps := h.pl.Snapshots()
	out := make([]dto.ScenarioResponse, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, dto.NewScenarioResponse(snap))
	}
	return out
}

// snapshot resolves the :label path param, answering 404 when unknown.
func (h *Handler) snapshot(c *gin.Context) (models.StateSnapshot, bool) {
	snap, err := h.pl.Query(c.Param("label"))
	if err != nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("unknown scenario", err))
		return models.StateSnapshot{}, false
	}
	return snap, true
}

// readySnapshot applies the presentation guard: proceed only when Ready.
func (h *Handler) readySnapshot(c *gin.Context) (models.StateSnapshot, bool) {
	snap, ok := h.snapshot(c)
	if !ok {
		return snap, false
	}
	switch snap.Phase {
	case models.PhaseReady:
		return snap, true
	case models.PhaseFailed:
		c.JSON(http.StatusBadGateway, dto.NewErrorResponse("fetch failed", snap.Err))
		return snap, false
	default:
		c.JSON(http.StatusConflict, dto.NewErrorResponse("not ready yet", nil))
		return snap, false
	}
}

func (h *Handler) transition(c *gin.Context, op func(string) error, status int) {
	label := c.Param("label")
	if err := op(label); err != nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("unknown scenario", err))
		return
	}
	snap, _ := h.pl.Query(label)
	c.JSON(status, dto.NewScenarioResponse(snap))
}
