package docidcodec_test

import (
	"testing"

	"github.com/opendocfeed/adaptor/internal/docidcodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	c, err := docidcodec.New("http://gsa.example.com:5678/doc/")
	require.NoError(t, err)

	cases := []string{
		"1001",
		"folder/1001",
		"has spaces",
		"weird?chars#here",
		"unicode-éè",
		"a/b/c/d",
	}
	for _, id := range cases {
		t.Run(id, func(t *testing.T) {
			encoded := c.Encode(id)
			decoded, err := c.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, id, decoded)
		})
	}
}

func TestEncodeLeavesSlashUnescapedButEscapesSpace(t *testing.T) {
	c, err := docidcodec.New("http://gsa.example.com/doc")
	require.NoError(t, err)
	assert.Equal(t, "http://gsa.example.com/doc/1001", c.Encode("1001"))
	assert.Equal(t, "http://gsa.example.com/doc/a/b%20c", c.Encode("a/b c"))
}

func TestDecodeRejectsForeignHost(t *testing.T) {
	c, err := docidcodec.New("http://gsa.example.com/doc/")
	require.NoError(t, err)
	_, err = c.Decode("http://evil.example.com/doc/1001")
	assert.ErrorIs(t, err, docidcodec.ErrMalformedId)
}

func TestDecodeRejectsOutsideBase(t *testing.T) {
	c, err := docidcodec.New("http://gsa.example.com/doc/")
	require.NoError(t, err)
	_, err = c.Decode("http://gsa.example.com/other/1001")
	assert.ErrorIs(t, err, docidcodec.ErrMalformedId)
}

func TestDecodeRejectsEmptyId(t *testing.T) {
	c, err := docidcodec.New("http://gsa.example.com/doc/")
	require.NoError(t, err)
	_, err = c.Decode("http://gsa.example.com/doc/")
	assert.ErrorIs(t, err, docidcodec.ErrMalformedId)
}

func TestDecodeRejectsBadEscape(t *testing.T) {
	c, err := docidcodec.New("http://gsa.example.com/doc/")
	require.NoError(t, err)
	_, err = c.Decode("http://gsa.example.com/doc/%zz")
	assert.ErrorIs(t, err, docidcodec.ErrMalformedId)
}

func TestDecodeAcceptsRelativePath(t *testing.T) {
	c, err := docidcodec.New("http://gsa.example.com/doc/")
	require.NoError(t, err)
	decoded, err := c.Decode("/doc/1001")
	require.NoError(t, err)
	assert.Equal(t, "1001", decoded)
}
