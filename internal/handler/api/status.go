package api

import (
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"

	models "github.com/Aegizz/OptiverTradingGame/internal/domain/models"
	"github.com/Aegizz/OptiverTradingGame/internal/usecase"
	xhttp "github.com/Aegizz/OptiverTradingGame/pkg/http"
	xlogger "github.com/Aegizz/OptiverTradingGame/pkg/logger"
)

// StatusHandler exposes the agent's runtime state over HTTP: current
// strategy parameters, the per-connection ledger, the bounded histories,
// and recent warn/error logs. Read-only; the trading loop never blocks on
// any of it.
type StatusHandler struct {
	logger  *xlogger.Logger
	state   *usecase.StrategyState
	journal *xlogger.Journal
}

func NewStatusHandler(logger *xlogger.Logger, state *usecase.StrategyState, journal *xlogger.Journal) *StatusHandler {
	return &StatusHandler{logger: logger, state: state, journal: journal}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/strategy", h.Strategy)
	g.GET("/sessions", h.Sessions)
	g.GET("/sessions/:id", h.Session)
	g.GET("/signals", h.Signals)
	g.GET("/performance", h.Performance)
	g.GET("/events", h.Events)
}

func (h *StatusHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *StatusHandler) Strategy(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.state.Report())
}

func (h *StatusHandler) Sessions(c echo.Context) error {
	ledger := h.state.Ledger()

	rows := make([]models.SessionReport, 0, len(ledger))
	for id, cs := range ledger {
		rows = append(rows, models.SessionReport{ConnID: id, ConnStats: cs})
	}
	sort.Slice(rows, func(a, b int) bool { return rows[a].ConnID < rows[b].ConnID })

	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *StatusHandler) Session(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_BAD_REQUEST",
			Field:   "id",
			Message: "id must be an integer",
		}})
	}

	cs, ok := h.state.Ledger()[id]
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("session %d not found", id))
	}
	return xhttp.SuccessResponse(c, models.SessionReport{ConnID: id, ConnStats: cs})
}

func (h *StatusHandler) Signals(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sigs := h.state.Signals()
	if len(sigs) > req.Limit {
		sigs = sigs[len(sigs)-req.Limit:]
	}
	return xhttp.ListResponse(c, sigs, int64(len(sigs)))
}

func (h *StatusHandler) Performance(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	perf := h.state.Performance()
	if len(perf) > req.Limit {
		perf = perf[len(perf)-req.Limit:]
	}
	return xhttp.ListResponse(c, perf, int64(len(perf)))
}

func (h *StatusHandler) Events(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	entries := h.journal.Recent(req.Limit)
	return xhttp.ListResponse(c, entries, int64(len(entries)))
}
