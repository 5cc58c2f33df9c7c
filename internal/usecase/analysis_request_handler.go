package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"RelVal/internal/domain/models"
	domrepo "RelVal/internal/domain/repository"
	applogger "RelVal/pkg/logger"

	"github.com/creasty/defaults"
)

// AnalysisRequestHandler consumes analysis requests from a Kafka topic.
// Requests that can never succeed are logged and acknowledged; anything else
// is returned so the consumer retries and eventually dead-letters it.
type AnalysisRequestHandler struct {
	topic    string
	analyzer Analyzer
	l        *applogger.Logger
}

func NewAnalysisRequestHandler(topic string, analyzer Analyzer, l *applogger.Logger) *AnalysisRequestHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &AnalysisRequestHandler{topic: topic, analyzer: analyzer, l: l}
}

func (h *AnalysisRequestHandler) Topic() string { return h.topic }

func (h *AnalysisRequestHandler) Handle(ctx context.Context, data []byte) error {
	var req models.AnalyzeRequest
	if err := defaults.Set(&req); err != nil {
		return fmt.Errorf("request defaults: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		h.l.Warn("drop malformed analysis request", applogger.Error(err), applogger.Int("bytes", len(data)))
		return nil
	}
	p, err := ParamsFromRequest(req)
	if err != nil {
		h.l.Warn("drop invalid analysis request", applogger.Error(err))
		return nil
	}
	if _, err := h.analyzer.Analyze(ctx, p); err != nil {
		if Permanent(err) {
			h.l.Warn("analysis request not satisfiable",
				applogger.String("pair", models.PairKey(p.SymbolX, p.SymbolY)),
				applogger.Error(err),
			)
			return nil
		}
		return err
	}
	return nil
}

// Permanent reports whether retrying err with the same input cannot help.
func Permanent(err error) bool {
	return errors.Is(err, ErrInvalidParams) ||
		errors.Is(err, models.ErrInsufficientData) ||
		errors.Is(err, models.ErrAlignment) ||
		errors.Is(err, domrepo.ErrNotFound)
}
