package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	models "SigPull/internal/domain/models"
	"SigPull/internal/service/cache"
	imetrics "SigPull/internal/service/metrics"
	"SigPull/internal/service/ratelimit"
	"SigPull/internal/services/screener"
	"SigPull/internal/usecase"
	xhttp "SigPull/pkg/http"
	xlogger "SigPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

const readCacheTTL = 10 * time.Second

// SignalsEchoHandler exposes the signal ledger and scanner over HTTP.
type SignalsEchoHandler struct {
	logger   *xlogger.Logger
	ledger   *usecase.SignalLedger
	scanner  *usecase.Scanner
	analyzer *usecase.Analyzer
	catalog  CatalogReader
	screener *screener.Filter
	cache    cache.BytesCache
	limiter  *ratelimit.Limiter
	health   map[string]func(ctx context.Context) error
}

// CatalogReader is the slice of CoinCatalog the handler needs.
type CatalogReader interface {
	GetTopCoins(ctx context.Context, limit int) ([]models.Coin, error)
}

func NewSignalsEchoHandler(
	logger *xlogger.Logger,
	ledger *usecase.SignalLedger,
	scanner *usecase.Scanner,
	analyzer *usecase.Analyzer,
	catalog CatalogReader,
	scr *screener.Filter,
	bc cache.BytesCache,
	limiter *ratelimit.Limiter,
) *SignalsEchoHandler {
	imetrics.Register()
	return &SignalsEchoHandler{
		logger:   logger,
		ledger:   ledger,
		scanner:  scanner,
		analyzer: analyzer,
		catalog:  catalog,
		screener: scr,
		cache:    bc,
		limiter:  limiter,
		health:   make(map[string]func(ctx context.Context) error),
	}
}

// AddHealthCheck registers a named dependency probe for the health endpoint.
func (h *SignalsEchoHandler) AddHealthCheck(name string, probe func(ctx context.Context) error) {
	h.health[name] = probe
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signals", h.ActiveSignals)
	g.GET("/signals/history", h.SignalHistory)
	g.GET("/signals/stats", h.Stats)
	g.GET("/signals/top", h.TopPerformers)
	g.GET("/signals/worst", h.WorstPerformers)
	g.POST("/signals/generate", h.Generate)
	g.POST("/signals/update-prices", h.UpdatePrices)
	g.GET("/analyze", h.Analyze)
	g.GET("/coins", h.Coins)
	g.GET("/coins/filtered", h.FilteredCoins)
	g.POST("/auto-scan/start", h.StartAutoScan)
	g.POST("/auto-scan/stop", h.StopAutoScan)
	g.GET("/auto-scan/status", h.ScanStatus)
	g.POST("/admin/clear", h.Clear)
	g.GET("/health", h.Health)
}

func (h *SignalsEchoHandler) ActiveSignals(c echo.Context) error {
	defer h.observe("signals", time.Now())
	return h.cachedJSON(c, "signals:active", func() (any, error) {
		signals := h.ledger.Active()
		return map[string]any{"signals": signals, "count": len(signals)}, nil
	})
}

func (h *SignalsEchoHandler) SignalHistory(c echo.Context) error {
	defer h.observe("history", time.Now())

	fromQ, toQ := c.QueryParam("from"), c.QueryParam("to")
	if fromQ == "" && toQ == "" {
		return h.cachedJSON(c, "signals:history", func() (any, error) {
			history := h.ledger.History()
			return map[string]any{"history": history, "count": len(history)}, nil
		})
	}

	// Range queries bypass the cache
	from := xhttp.ParseTimeDefault(fromQ, time.Time{})
	to := xhttp.ParseTimeDefault(toQ, time.Now().UTC())
	filtered := make([]*models.HistoryEntry, 0)
	for _, e := range h.ledger.History() {
		if e.CloseTime.Before(from) || e.CloseTime.After(to) {
			continue
		}
		filtered = append(filtered, e)
	}
	return xhttp.SuccessResponse(c, map[string]any{"history": filtered, "count": len(filtered)})
}

func (h *SignalsEchoHandler) Stats(c echo.Context) error {
	defer h.observe("stats", time.Now())
	return h.cachedJSON(c, "signals:stats", func() (any, error) {
		return h.ledger.Stats(), nil
	})
}

func (h *SignalsEchoHandler) TopPerformers(c echo.Context) error {
	req := &models.PerformersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.ledger.TopPerformers(req.N))
}

func (h *SignalsEchoHandler) WorstPerformers(c echo.Context) error {
	req := &models.PerformersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.ledger.WorstPerformers(req.N))
}

func (h *SignalsEchoHandler) Generate(c echo.Context) error {
	defer h.observe("generate", time.Now())
	if !h.limiter.Allow("generate", 2, 0.1) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "generation rate limited")
	}
	req := &models.GenerateSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	result, err := h.scanner.RunGeneration(c.Request().Context(), req.CoinCount)
	if err != nil {
		imetrics.APIErrors.WithLabelValues("generate").Inc()
		h.logger.Error("generation run failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("generation failed: %v", err))
	}
	return xhttp.SuccessResponse(c, result)
}

func (h *SignalsEchoHandler) UpdatePrices(c echo.Context) error {
	defer h.observe("update_prices", time.Now())
	if !h.limiter.Allow("update-prices", 5, 0.5) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "refresh rate limited")
	}

	result, err := h.scanner.RunRefresh(c.Request().Context())
	if err != nil {
		imetrics.APIErrors.WithLabelValues("update_prices").Inc()
		h.logger.Error("refresh run failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("refresh failed: %v", err))
	}
	return xhttp.SuccessResponse(c, result)
}

func (h *SignalsEchoHandler) Analyze(c echo.Context) error {
	defer h.observe("analyze", time.Now())
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	analysis, err := h.analyzer.AnalyzeSymbol(c.Request().Context(), req.Symbol)
	if err != nil {
		imetrics.APIErrors.WithLabelValues("analyze").Inc()
		h.logger.Error("analysis failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no data for %s", req.Symbol))
	}
	return xhttp.SuccessResponse(c, analysis)
}

func (h *SignalsEchoHandler) Coins(c echo.Context) error {
	defer h.observe("coins", time.Now())
	req := &models.CoinsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	coins, err := h.catalog.GetTopCoins(c.Request().Context(), req.Limit)
	if err != nil {
		imetrics.APIErrors.WithLabelValues("coins").Inc()
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("catalog unavailable: %v", err))
	}
	return xhttp.SuccessResponse(c, map[string]any{"coins": coins, "count": len(coins)})
}

func (h *SignalsEchoHandler) FilteredCoins(c echo.Context) error {
	defer h.observe("coins_filtered", time.Now())
	req := &models.CoinsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	coins, err := h.catalog.GetTopCoins(c.Request().Context(), req.Limit)
	if err != nil {
		imetrics.APIErrors.WithLabelValues("coins_filtered").Inc()
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("catalog unavailable: %v", err))
	}

	payload := map[string]any{"criteria": h.screener.Criteria()}
	if req.Reasons {
		screened := h.screener.Screen(coins)
		payload["coins"] = screened
		payload["count"] = len(screened)
	} else {
		eligible := h.screener.Filter(coins)
		payload["coins"] = eligible
		payload["count"] = len(eligible)
	}
	return xhttp.SuccessResponse(c, payload)
}

func (h *SignalsEchoHandler) StartAutoScan(c echo.Context) error {
	req := &models.StartScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	interval := time.Duration(req.IntervalSeconds) * time.Second
	if err := h.scanner.StartAutoScan(context.Background(), interval); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("%v", err))
	}
	return xhttp.SuccessResponse(c, h.scanner.Status())
}

func (h *SignalsEchoHandler) StopAutoScan(c echo.Context) error {
	h.scanner.StopAutoScan()
	return xhttp.SuccessResponse(c, h.scanner.Status())
}

func (h *SignalsEchoHandler) ScanStatus(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.scanner.Status())
}

func (h *SignalsEchoHandler) Clear(c echo.Context) error {
	if err := h.ledger.Reset(c.Request().Context()); err != nil {
		h.logger.Error("ledger reset failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("reset failed: %v", err))
	}
	h.logger.Info("ledger cleared")
	return xhttp.SuccessResponse(c, map[string]any{"cleared": true})
}

func (h *SignalsEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := models.HealthStatus{
		Status:     "ok",
		Components: map[string]string{"scanner": "ok", "ledger": "ok"},
		Timestamp:  time.Now().UTC(),
	}
	for name, probe := range h.health {
		if err := probe(ctx); err != nil {
			status.Status = "degraded"
			status.Components[name] = err.Error()
			continue
		}
		status.Components[name] = "ok"
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return xhttp.DataResponse(c, code, status)
}

// cachedJSON serves a short-TTL cached copy of a read endpoint payload.
func (h *SignalsEchoHandler) cachedJSON(c echo.Context, key string, load func() (any, error)) error {
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(key); err == nil && ok {
			return xhttp.SuccessResponse(c, json.RawMessage(b))
		}
	}

	payload, err := load()
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	if h.cache != nil {
		if b, err := json.Marshal(payload); err == nil {
			_ = h.cache.SetBytes(key, b, readCacheTTL)
		}
	}
	return xhttp.SuccessResponse(c, payload)
}

func (h *SignalsEchoHandler) observe(endpoint string, start time.Time) {
	imetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
