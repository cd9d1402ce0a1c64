package models

// Requests for the signals HTTP endpoints. Defined in domain for consistency and reuse.

type GenerateSignalsRequest struct {
	CoinCount int `query:"coin_count" json:"coin_count" default:"15" validate:"gte=1,lte=50"`
}

type PerformersRequest struct {
	N int `query:"n" json:"n" default:"3" validate:"gte=1,lte=50"`
}

type CoinsRequest struct {
	Limit   int  `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=250"`
	Reasons bool `query:"reasons" json:"reasons"`
}

type AnalyzeRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type StartScanRequest struct {
	IntervalSeconds int `query:"interval" json:"interval" default:"900" validate:"gte=30,lte=86400"`
}
