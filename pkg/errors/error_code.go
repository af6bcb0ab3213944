package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidSymbol        ErrorCode = 102
	ErrCodeInvalidVolume        ErrorCode = 103
	ErrCodeInvalidStops         ErrorCode = 104
	ErrCodeInvalidPrice         ErrorCode = 105
	ErrCodeInvalidOrderRequest  ErrorCode = 106
	ErrCodeMissingParameter     ErrorCode = 107

	// Feed errors (200-299)
	ErrCodeFeedUnavailable ErrorCode = 200
	ErrCodeFeedDataMissing ErrorCode = 201
	ErrCodeFeedCopyFailed  ErrorCode = 202

	// Signal errors (300-399)
	ErrCodeSignalEvaluation  ErrorCode = 300
	ErrCodeSignalMisordered  ErrorCode = 301
	ErrCodeSignalZeroStop    ErrorCode = 302

	// Risk errors (400-499)
	ErrCodeRiskZeroDistance  ErrorCode = 400
	ErrCodeRiskZeroEquity    ErrorCode = 401
	ErrCodeRiskSizingFailed  ErrorCode = 402

	// Trade/venue errors (500-599)
	ErrCodeOrderFailed     ErrorCode = 500
	ErrCodeRequote         ErrorCode = 501
	ErrCodeOffQuotes       ErrorCode = 502
	ErrCodeServerBusy      ErrorCode = 503
	ErrCodeTimeout         ErrorCode = 504
	ErrCodeTradeDisabled   ErrorCode = 505
	ErrCodeNoMoney         ErrorCode = 506
	ErrCodeTicketNotFound  ErrorCode = 507
	ErrCodeNotOwned        ErrorCode = 508
	ErrCodeMarketClosed    ErrorCode = 509

	// Portfolio errors (600-699)
	ErrCodeAccountQueryFailed ErrorCode = 600
	ErrCodeHistoryQueryFailed ErrorCode = 601

	// Engine errors (700-799)
	ErrCodeEngineNotInitialized     ErrorCode = 700
	ErrCodeEngineInitFailed         ErrorCode = 701
	ErrCodeEngineAlreadyInitialized ErrorCode = 702
)
