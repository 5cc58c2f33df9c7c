package models

// Requests for the pair analysis HTTP endpoints.

type PairRef struct {
	X string `json:"x" validate:"required"`
	Y string `json:"y" validate:"required,nefield=X"`
}

type AnalyzeRequest struct {
	SymbolX            string  `json:"symbol_x" validate:"required"`
	SymbolY            string  `json:"symbol_y" validate:"required,nefield=SymbolX"`
	RegressionLookback string  `json:"regression_lookback" default:"2Y" validate:"required"`
	OULookback         string  `json:"ou_lookback" default:"26W" validate:"required"`
	Threshold          float64 `json:"threshold" default:"1.5" validate:"gt=0,lte=10"`
	From               string  `json:"from"`
	To                 string  `json:"to"`
}

type ScanRequest struct {
	Pairs              []PairRef `json:"pairs" validate:"required,min=1,max=200,dive"`
	RegressionLookback string    `json:"regression_lookback" default:"2Y" validate:"required"`
	OULookback         string    `json:"ou_lookback" default:"26W" validate:"required"`
	Threshold          float64   `json:"threshold" default:"1.5" validate:"gt=0,lte=10"`
	OnlyMeanReverting  bool      `json:"only_mean_reverting"`
}

// StreamQuery drives the websocket scan stream.
type StreamQuery struct {
	Pairs              string  `query:"pairs" validate:"required"`
	RegressionLookback string  `query:"regression_lookback" default:"2Y"`
	OULookback         string  `query:"ou_lookback" default:"26W"`
	Threshold          float64 `query:"threshold" default:"1.5" validate:"gt=0,lte=10"`
}

// ScanItem is one pair outcome of a scan; Error is set when the pair failed structurally.
type ScanItem struct {
	SymbolX string           `json:"symbol_x"`
	SymbolY string           `json:"symbol_y"`
	Result  *AnalysisSummary `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}
