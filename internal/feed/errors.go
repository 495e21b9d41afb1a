package feed

import "errors"

// ErrTransient marks a feed-send failure that a retry might overcome:
// network I/O errors and HTTP 5xx responses.
var ErrTransient = errors.New("feed: transient send failure")

// ErrPermanent marks a feed-send failure that retrying will not fix: HTTP
// 4xx or a response body that does not contain the literal "Success".
var ErrPermanent = errors.New("feed: permanent send failure")
