package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHasChangedSinceLastAccessNoHeaderAlwaysChanged(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/doc/1", nil)
	req := newRequest(r, "1")

	assert.True(t, req.HasChangedSinceLastAccess(time.Now()))
	assert.True(t, req.HasChangedSinceLastAccess(time.Time{}))
}

func TestHasChangedSinceLastAccessZeroLastModifiedAlwaysChanged(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/doc/1", nil)
	r.Header.Set("If-Modified-Since", time.Now().Format(http.TimeFormat))
	req := newRequest(r, "1")

	assert.True(t, req.HasChangedSinceLastAccess(time.Time{}))
}

func TestHasChangedSinceLastAccessComparesAgainstHeader(t *testing.T) {
	since := time.Now()
	r := httptest.NewRequest(http.MethodGet, "/doc/1", nil)
	r.Header.Set("If-Modified-Since", since.Format(http.TimeFormat))
	req := newRequest(r, "1")

	assert.False(t, req.HasChangedSinceLastAccess(since.Add(-time.Minute)))
	assert.True(t, req.HasChangedSinceLastAccess(since.Add(time.Minute)))
}

func TestHasChangedSinceLastAccessIgnoresMalformedHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/doc/1", nil)
	r.Header.Set("If-Modified-Since", "not-a-date")
	req := newRequest(r, "1")

	assert.True(t, req.HasChangedSinceLastAccess(time.Now()))
}
