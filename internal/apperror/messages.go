package apperror

var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input provided",
	CodeInvalidState:       "Invalid state for this operation",
	CodeConfigurationError: "Configuration error",
	CodeServiceTimeout:     "Service request timeout",
	CodeRateLimitExceeded:  "Rate limit exceeded",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "An unknown error occurred",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeInvalidPrivateKey:        "Private key is malformed",
	CodeSignerUnavailable:        "No signing key configured",
	CodeGasPriceAboveMax:         "Gas price exceeds the configured maximum",

	CodeQuoteFailed:      "Failed to build price quote",
	CodeRouterCallFailed: "Router getAmountsOut call failed",
	CodeInvalidQuote:     "Router returned an unusable quote",
	CodePriceFeedFailed:  "ETH/USD price feed unavailable",

	CodeTradeSubmitFailed: "Failed to submit arbitrage transaction",
	CodeTradeReverted:     "Arbitrage transaction reverted",
	CodeReceiptTimeout:    "Timed out waiting for transaction receipt",

	CodeCycleFailed: "Monitoring cycle failed",
	CodeCircuitOpen: "Circuit breaker is open",

	CodeLogWriteFailed: "Failed to append to trade log",
	CodeJournalFailed:  "Trade journal write failed",
}

// Message returns the default human-readable message for a code.
func Message(code Code) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return string(code)
}
