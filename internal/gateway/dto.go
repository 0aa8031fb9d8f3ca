package gateway

import "portfolio-riskv1/internal/model"

// SummaryEnvelope is the WS broadcast message pushed after each refresh.
type SummaryEnvelope struct {
	Type    string                  `json:"type"` // "summary"
	Seq     int64                   `json:"seq"`
	TS      string                  `json:"ts"`
	Summary *model.PortfolioSummary `json:"summary"`
	Groups  []model.PortfolioGroup  `json:"groups,omitempty"`
}

// PositionOut is one flattened row for /api/positions. Stocks and options
// share the table; option-only fields are omitted for stocks.
type PositionOut struct {
	Underlying string `json:"underlying"`
	Kind       string `json:"kind"` // "STOCK" or "OPTION"
	Label      string `json:"label"`
	Quantity   int64  `json:"quantity"`

	Price                float64 `json:"price"`
	Beta                 float64 `json:"beta"`
	Exposure             float64 `json:"exposure"` // market exposure / delta exposure
	BetaAdjustedExposure float64 `json:"beta_adjusted_exposure"`

	Delta    float64 `json:"delta,omitempty"`
	Notional float64 `json:"notional,omitempty"`
	Expiry   string  `json:"expiry,omitempty"`
	CashLike bool    `json:"cash_like,omitempty"`
}

// AdvisorResponse is the /api/advisor reply.
type AdvisorResponse struct {
	Commentary string `json:"commentary"`
	Model      string `json:"model,omitempty"`
}
