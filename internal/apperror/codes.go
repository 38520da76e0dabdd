package apperror

// Code identifies a class of failure across the monitor.
type Code string

// General error codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Chain access
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeInvalidPrivateKey        Code = "INVALID_PRIVATE_KEY"
	CodeSignerUnavailable        Code = "SIGNER_UNAVAILABLE"
	CodeGasPriceAboveMax         Code = "GAS_PRICE_ABOVE_MAX"
)

// Quoting
const (
	CodeQuoteFailed      Code = "QUOTE_FAILED"
	CodeRouterCallFailed Code = "ROUTER_CALL_FAILED"
	CodeInvalidQuote     Code = "INVALID_QUOTE"
	CodePriceFeedFailed  Code = "PRICE_FEED_FAILED"
)

// Trade execution
const (
	CodeTradeSubmitFailed Code = "TRADE_SUBMIT_FAILED"
	CodeTradeReverted     Code = "TRADE_REVERTED"
	CodeReceiptTimeout    Code = "RECEIPT_TIMEOUT"
)

// Monitor loop
const (
	CodeCycleFailed Code = "CYCLE_FAILED"
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)

// Persistence
const (
	CodeLogWriteFailed Code = "LOG_WRITE_FAILED"
	CodeJournalFailed  Code = "JOURNAL_FAILED"
)
