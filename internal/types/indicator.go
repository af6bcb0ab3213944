package types

// IndicatorKind names one indicator series supplied by the feed. The raw
// computation lives outside this system; the analyzer only consumes the
// latest N values of each series.
type IndicatorKind string

const (
	IndicatorFastMA     IndicatorKind = "fast_ma"
	IndicatorSlowMA     IndicatorKind = "slow_ma"
	IndicatorATR        IndicatorKind = "atr"
	IndicatorRSI        IndicatorKind = "rsi"
	IndicatorMACD       IndicatorKind = "macd"
	IndicatorMACDSignal IndicatorKind = "macd_signal"
)
