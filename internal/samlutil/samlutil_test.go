package samlutil_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crewjam/saml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendocfeed/adaptor/internal/samlutil"
)

func TestNewRejectsInvalidAcsURL(t *testing.T) {
	_, err := samlutil.New(samlutil.Config{
		EntityID: "https://adaptor.example.com/sp",
		AcsURL:   "://not-a-url",
	})
	assert.Error(t, err)
}

func TestMakeAuthnRequestBuildsRedirect(t *testing.T) {
	idp := &saml.EntityDescriptor{
		EntityID: "https://idp.example.com/metadata",
		IDPSSODescriptors: []saml.IDPSSODescriptor{{
			SingleSignOnServices: []saml.Endpoint{{
				Binding:  saml.HTTPRedirectBinding,
				Location: "https://idp.example.com/sso",
			}},
		}},
	}

	sp, err := samlutil.New(samlutil.Config{
		EntityID:    "https://adaptor.example.com/sp",
		AcsURL:      "https://adaptor.example.com/samlassertionconsumer",
		IdpMetadata: idp,
	})
	require.NoError(t, err)

	req, err := sp.MakeAuthnRequest("relay-token-1")
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "idp.example.com", req.RedirectURL.Host)
}

func TestParseResponseRejectsMalformedBody(t *testing.T) {
	idp := &saml.EntityDescriptor{EntityID: "https://idp.example.com/metadata"}
	sp, err := samlutil.New(samlutil.Config{
		EntityID:    "https://adaptor.example.com/sp",
		AcsURL:      "https://adaptor.example.com/samlassertionconsumer",
		IdpMetadata: idp,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/samlassertionconsumer", nil)
	req.Form = map[string][]string{"SAMLResponse": {"not-base64!!"}}

	_, err = sp.ParseResponse(req, []string{"req-1"})
	assert.ErrorIs(t, err, samlutil.ErrAuthnFailure)
}
