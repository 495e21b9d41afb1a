package feed_test

import (
	"strings"
	"testing"
	"time"

	"github.com/opendocfeed/adaptor/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeDeterministicOrder(t *testing.T) {
	lastMod := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	records := []feed.Record{
		{URL: "http://gsa.example.com/doc/1", LastModified: &lastMod, Metadata: map[string]string{"z": "1", "a": "2"}},
		{URL: "http://gsa.example.com/doc/2", Delete: true},
	}

	var b1, b2 strings.Builder
	require.NoError(t, feed.Compose(&b1, feed.Header{DataSource: "ds", FeedType: feed.TypeFullReplace}, records))
	require.NoError(t, feed.Compose(&b2, feed.Header{DataSource: "ds", FeedType: feed.TypeFullReplace}, records))

	assert.Equal(t, b1.String(), b2.String(), "identical input must produce byte-identical output")
	assert.True(t, strings.Index(b1.String(), "doc/1") < strings.Index(b1.String(), "doc/2"), "records must appear in input order")

	// metadata attributes are sorted, so "a" precedes "z" regardless of map order
	assert.True(t, strings.Index(b1.String(), `name="a"`) < strings.Index(b1.String(), `name="z"`))
	assert.Contains(t, b1.String(), `action="delete"`)
	assert.Contains(t, b1.String(), "<feedtype>full</feedtype>")
}

func TestComposeEmitsAclFragment(t *testing.T) {
	records := []feed.Record{
		{
			URL: "http://gsa.example.com/doc/1",
			Acl: &feed.AclFragment{
				PermitUsers: []string{"alice"},
				DenyGroups:  []string{"contractors"},
			},
		},
	}
	var b strings.Builder
	require.NoError(t, feed.Compose(&b, feed.Header{DataSource: "ds", FeedType: feed.TypeMetadataOnly}, records))

	out := b.String()
	assert.Contains(t, out, `<acl>`)
	assert.Contains(t, out, `access="permit"`)
	assert.Contains(t, out, `>alice<`)
	assert.Contains(t, out, `access="deny"`)
	assert.Contains(t, out, `>contractors<`)
}

func TestComposeEscapesSpecialCharacters(t *testing.T) {
	records := []feed.Record{{URL: `http://gsa.example.com/doc/a&b"c`}}
	var b strings.Builder
	require.NoError(t, feed.Compose(&b, feed.Header{DataSource: "ds", FeedType: feed.TypeIncremental}, records))
	assert.NotContains(t, b.String(), `a&b"c`)
	assert.Contains(t, b.String(), "&amp;")
}
