package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"RelVal/internal/domain/models"
	domrepo "RelVal/internal/domain/repository"
	"RelVal/internal/service/cache"
	"RelVal/internal/usecase"
	xhttp "RelVal/pkg/http"
	"RelVal/pkg/http/middleware"
	xlogger "RelVal/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Config tunes the pair endpoints.
type Config struct {
	CacheTTL     time.Duration
	RateCapacity float64
	RateRefill   float64
}

// PairsEchoHandler serves pair analysis, scans and the scan stream.
type PairsEchoHandler struct {
	logger   *xlogger.Logger
	analyzer usecase.Analyzer
	scanner  *usecase.PairScanner
	results  domrepo.ResultStore
	cache    cache.BytesCache
	limiter  middleware.Allower
	cfg      Config
}

// NewPairsEchoHandler wires the endpoints. results, c and limiter may be nil.
func NewPairsEchoHandler(logger *xlogger.Logger, analyzer usecase.Analyzer, scanner *usecase.PairScanner, results domrepo.ResultStore, c cache.BytesCache, limiter middleware.Allower, cfg Config) *PairsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if c == nil {
		c = cache.Noop{}
	}
	return &PairsEchoHandler{logger: logger, analyzer: analyzer, scanner: scanner, results: results, cache: c, limiter: limiter, cfg: cfg}
}

func (h *PairsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/pairs/latest", h.Latest)
	g.GET("/scan/stream", h.Stream)

	var limited []echo.MiddlewareFunc
	if h.limiter != nil && h.cfg.RateCapacity > 0 {
		limited = append(limited, middleware.RateLimit(h.limiter, h.cfg.RateCapacity, h.cfg.RateRefill))
	}
	g.POST("/pairs/analyze", h.Analyze, limited...)
	g.POST("/pairs/scan", h.Scan, limited...)
}

func (h *PairsEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// Analyze runs one pair. Successful responses are cached by parameter key.
func (h *PairsEchoHandler) Analyze(c echo.Context) error {
	var req models.AnalyzeRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	p, err := usecase.ParamsFromRequest(req)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}

	ctx := c.Request().Context()
	key := "analyze:" + p.Key()
	if b, ok, err := h.cache.GetBytes(ctx, key); err != nil {
		h.logger.Warn("analyze cache read failed", xlogger.String("key", key), xlogger.Error(err))
	} else if ok {
		c.Response().Header().Set("X-Cache", "HIT")
		return c.JSONBlob(http.StatusOK, b)
	}

	res, err := h.analyzer.Analyze(ctx, p)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	b, err := json.Marshal(xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    res.Summary(),
	})
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("encode analysis").WithError(err))
	}
	if h.cfg.CacheTTL > 0 {
		if err := h.cache.SetBytes(ctx, key, b, h.cfg.CacheTTL); err != nil {
			h.logger.Warn("analyze cache write failed", xlogger.String("key", key), xlogger.Error(err))
		}
	}
	c.Response().Header().Set("X-Cache", "MISS")
	return c.JSONBlob(http.StatusOK, b)
}

// ScanResponse is the body of a completed scan.
type ScanResponse struct {
	Items  []models.ScanItem `json:"items"`
	Total  int               `json:"total"`
	Failed int               `json:"failed"`
}

func (h *PairsEchoHandler) Scan(c echo.Context) error {
	var req models.ScanRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	base, err := usecase.NewScanParams(req.RegressionLookback, req.OULookback, req.Threshold)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}

	results, err := h.scanner.Scan(c.Request().Context(), req.Pairs, base)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	total := len(results)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if req.OnlyMeanReverting {
		results = usecase.FilterMeanReverting(results)
	}
	items := make([]models.ScanItem, 0, len(results))
	for _, r := range results {
		items = append(items, r.Item())
	}
	return xhttp.SuccessResponse(c, ScanResponse{Items: items, Total: total, Failed: failed})
}

// Latest returns the most recent stored analysis for ?x=&y=.
func (h *PairsEchoHandler) Latest(c echo.Context) error {
	x, y := c.QueryParam("x"), c.QueryParam("y")
	if x == "" || y == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("x and y are required"))
	}
	if h.results == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("result store is not configured"))
	}
	sum, err := h.results.LatestAnalysis(c.Request().Context(), x, y)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, sum)
}

// mapError converts use case and domain errors to AppError.
func mapError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, usecase.ErrInvalidParams):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrInsufficientData), errors.Is(err, models.ErrAlignment):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return xhttp.UnavailableError("request cancelled").WithError(err)
	default:
		return xhttp.InternalError("analysis failed").WithError(err)
	}
}
