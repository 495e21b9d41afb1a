package docidcodec

import "errors"

// ErrBaseNotAbsolute indicates New was given a relative base URL.
var ErrBaseNotAbsolute = errors.New("docidcodec: base url must be absolute")

// ErrMalformedId indicates a URL path could not be decoded to a DocId:
// it is outside the codec's base path, or decodes to an empty string.
var ErrMalformedId = errors.New("docidcodec: malformed docid path")

// InvalidBaseError wraps a base-URL parse or shape failure from New.
type InvalidBaseError struct {
	Base  string
	Cause error
}

func (e *InvalidBaseError) Error() string {
	return "docidcodec: invalid base url " + e.Base + ": " + e.Cause.Error()
}

func (e *InvalidBaseError) Unwrap() error {
	return e.Cause
}
