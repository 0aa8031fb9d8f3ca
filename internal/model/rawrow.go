package model

// RawRow is one already-tokenized row from a brokerage holdings export.
// The ingest layer produces these; the classifier consumes them. The engine
// never touches the CSV file itself.
type RawRow struct {
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`   // signed; negative = short
	LastPrice   float64 `json:"last_price"` // per share / per contract-share
	Beta        float64 `json:"beta"`       // optional; 0 when the export has no beta column
	HasBeta     bool    `json:"has_beta"`
}
