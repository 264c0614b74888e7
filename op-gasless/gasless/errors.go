package gasless

import "errors"

// Every stage failure wraps exactly one of these, so callers can classify it with errors.Is.
var (
	// ErrInput is returned for malformed user supplied values, before any network call is made.
	ErrInput = errors.New("invalid input")
	// ErrChainQuery is returned when a read-only chain call fails or its result cannot be decoded.
	ErrChainQuery = errors.New("chain query failed")
	// ErrEncoding is returned when calldata or typed data cannot be assembled.
	ErrEncoding = errors.New("encoding failed")
	// ErrSigning is returned when the forward request cannot be signed.
	ErrSigning = errors.New("signing failed")
	// ErrEstimationTimeout is returned when no gas estimate succeeded within the configured duration.
	ErrEstimationTimeout = errors.New("gas estimation timed out")
	// ErrGasAboveCeiling is returned when the chain estimates more gas than the configured ceiling allows.
	ErrGasAboveCeiling = errors.New("gas estimate above ceiling")
	// ErrSubmission is returned when the relay rejected the request or could not be reached.
	ErrSubmission = errors.New("relay submission failed")
)
