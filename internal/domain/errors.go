package domain

import "errors"

var (
	// ErrEmptyResponse is returned when the model returned no text at all
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrTruncatedUnparsable is returned when a length-limited response could
	// not be repaired into parseable output
	ErrTruncatedUnparsable = errors.New("response truncated and unparsable")

	// ErrMalformedResponse is returned when the response failed to parse as
	// the expected structure; wrapped errors carry a bounded excerpt
	ErrMalformedResponse = errors.New("model returned malformed response")

	// ErrInvalidStructure is returned when the parsed response is missing the
	// items array or it has the wrong shape
	ErrInvalidStructure = errors.New("invalid response structure: missing items array")

	// ErrNoItemsExtracted is returned when the response parsed cleanly but
	// contained zero items
	ErrNoItemsExtracted = errors.New("no items extracted from receipt")

	// ErrVisionAPIFailure is returned when the vision model request fails
	ErrVisionAPIFailure = errors.New("vision API request failed")

	// ErrReceiptNotFound is returned when a receipt does not exist or belongs
	// to another user
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrReceiptHasNoImage is returned when a parse is requested for a receipt
	// without a stored image
	ErrReceiptHasNoImage = errors.New("receipt has no image")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")
)
