package samlutil

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/crewjam/saml"
)

// FetchIdpMetadata retrieves and parses the IdP's SAML metadata document,
// the one network call samlutil performs itself (SP/AuthnRequest/Response
// handling otherwise takes already-parsed metadata, keeping ServiceProvider
// easy to unit test).
func FetchIdpMetadata(ctx context.Context, url string) (*saml.EntityDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("samlutil: build metadata request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("samlutil: fetch idp metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("samlutil: idp metadata request returned %d", resp.StatusCode)
	}

	var descriptor saml.EntityDescriptor
	if err := xml.NewDecoder(resp.Body).Decode(&descriptor); err != nil {
		return nil, fmt.Errorf("samlutil: parse idp metadata: %w", err)
	}
	return &descriptor, nil
}
