package types

// AccountInfo represents the current account state as reported by the venue.
type AccountInfo struct {
	// Balance is the realized cash balance (excluding floating P&L)
	Balance float64 `json:"balance" yaml:"balance"`
	// Equity is the total account value (balance + floating P&L)
	Equity float64 `json:"equity" yaml:"equity"`
	// Margin is the margin currently locked by open positions
	Margin float64 `json:"margin" yaml:"margin"`
	// FreeMargin is the margin available for new positions
	FreeMargin float64 `json:"free_margin" yaml:"free_margin"`
	// MarginLevel is equity / margin * 100, or 0 when no margin is used
	MarginLevel float64 `json:"margin_level" yaml:"margin_level"`
}
