// Package docidcodec maps opaque DocIds to absolute URLs and back.
//
// It is deliberately standalone (no dependency on the root adaptor package
// beyond the DocId type it is handed as a string) so it can be unit tested
// and reused without pulling in the HTTP or SAML stack.
package docidcodec

import (
	"log"
	"net/url"
	"strings"
)

// defaultLogger is the package-level swappable logger: packages meant to
// be usable standalone get a plain *log.Logger default instead of
// requiring a slog.Logger from the caller.
var defaultLogger = log.New(log.Writer(), "docidcodec: ", log.LstdFlags)

// SetLogger replaces the package-level logger used for decode-failure
// diagnostics.
func SetLogger(l *log.Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Codec converts between DocId strings and the absolute URLs the Appliance
// uses to request document content.
type Codec struct {
	baseURL *url.URL
}

// New builds a Codec whose encoded URLs are rooted at base, e.g.
// "http://host:1234/doc/". base must be an absolute URL; its path is
// normalized to end in "/".
func New(base string) (*Codec, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, &InvalidBaseError{Base: base, Cause: err}
	}
	if !u.IsAbs() {
		return nil, &InvalidBaseError{Base: base, Cause: ErrBaseNotAbsolute}
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Codec{baseURL: u}, nil
}

// Encode maps id to an absolute URL under the codec's base path. Every byte
// of id outside the RFC 3986 unreserved set is percent-escaped, except '/'
// which is passed through unescaped so that docids that are themselves
// path-shaped stay readable in server logs.
func (c *Codec) Encode(id string) string {
	segments := strings.Split(id, "/")
	for i, seg := range segments {
		segments[i] = escapeSegment(seg)
	}
	u := *c.baseURL
	u.Path = c.baseURL.Path + id
	u.RawPath = c.baseURL.EscapedPath() + strings.Join(segments, "/")
	return u.String()
}

// Decode reverses Encode. It fails with ErrMalformedId if raw is not
// rooted at the codec's base path, or if the escaped path decodes to an
// empty string.
func (c *Codec) Decode(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrMalformedId
	}

	var encodedPath string
	if u.IsAbs() {
		if u.Scheme != c.baseURL.Scheme || u.Host != c.baseURL.Host {
			return "", ErrMalformedId
		}
		encodedPath = u.EscapedPath()
	} else {
		encodedPath = raw
	}

	if !strings.HasPrefix(encodedPath, c.baseURL.Path) {
		return "", ErrMalformedId
	}
	rest := strings.TrimPrefix(encodedPath, c.baseURL.Path)

	segments := strings.Split(rest, "/")
	for i, seg := range segments {
		unescaped, err := url.PathUnescape(seg)
		if err != nil {
			defaultLogger.Printf("decode: bad percent-escape in segment %q of %q", seg, raw)
			return "", ErrMalformedId
		}
		segments[i] = unescaped
	}
	id := strings.Join(segments, "/")
	if id == "" {
		return "", ErrMalformedId
	}
	return id, nil
}

// isUnreserved reports whether b is in RFC 3986's unreserved set
// (A-Za-z0-9-._~); everything else in a path segment gets percent-escaped.
func isUnreserved(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '.' || b == '_' || b == '~':
		return true
	default:
		return false
	}
}

func escapeSegment(seg string) string {
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			b.WriteByte('%')
			b.WriteByte(hexDigit(c >> 4))
			b.WriteByte(hexDigit(c & 0x0f))
		}
	}
	return b.String()
}

func hexDigit(n byte) byte {
	const digits = "0123456789ABCDEF"
	return digits[n]
}
