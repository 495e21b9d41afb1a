package samlutil_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendocfeed/adaptor/internal/samlutil"
)

func selfSignedTLSCert(t *testing.T) (tls.Certificate, *x509.Certificate) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "adaptor-authz-signer"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        cert,
	}, cert
}

func TestSignAndVerifyAuthzResponse(t *testing.T) {
	tlsCert, cert := selfSignedTLSCert(t)

	signer := samlutil.NewAuthzSigner(dsig.TLSCertKeyStore(tlsCert))
	queries := []samlutil.AuthzQuery{
		{ID: "q1", Resource: "http://gsa.example.com/doc/1", Subject: "alice"},
	}
	doc, err := signer.SignResponse("req-1", queries, []samlutil.AuthzDecision{samlutil.AuthzPermit})
	require.NoError(t, err)
	require.NotNil(t, doc.Root())

	verifier := samlutil.NewAuthzVerifier(&dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{cert},
	}, time.Hour)

	assertion := doc.Root().FindElement(".//saml:Assertion")
	require.NotNil(t, assertion)

	validated, err := verifier.Verify(assertion, time.Now())
	require.NoError(t, err)
	assert.NotNil(t, validated)
}

func TestVerifyRejectsStaleQuery(t *testing.T) {
	_, cert := selfSignedTLSCert(t)
	verifier := samlutil.NewAuthzVerifier(&dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{cert},
	}, time.Minute)

	_, err := verifier.Verify(nil, time.Now().Add(-time.Hour))
	assert.ErrorIs(t, err, samlutil.ErrReplayed)
}

func signedAuthzQueryBody(t *testing.T, tlsCert tls.Certificate, id, resource, subject string) []byte {
	t.Helper()

	doc := etree.NewDocument()
	query := doc.CreateElement("samlp:AuthzDecisionQuery")
	query.CreateAttr("xmlns:samlp", "urn:oasis:names:tc:SAML:2.0:protocol")
	query.CreateAttr("xmlns:saml", "urn:oasis:names:tc:SAML:2.0:assertion")
	query.CreateAttr("ID", id)
	query.CreateAttr("Resource", resource)
	query.CreateAttr("IssueInstant", time.Now().UTC().Format(time.RFC3339))
	nameID := query.CreateElement("saml:Subject").CreateElement("saml:NameID")
	nameID.SetText(subject)

	ctx := dsig.NewDefaultSigningContext(dsig.TLSCertKeyStore(tlsCert))
	require.NoError(t, ctx.SetSignatureMethod(dsig.RSASHA256SignatureMethod))
	signed, err := ctx.SignEnveloped(query)
	require.NoError(t, err)
	doc.SetRoot(signed)

	body, err := doc.WriteToBytes()
	require.NoError(t, err)
	return body
}

func TestVerifyAllAcceptsProperlySignedBatch(t *testing.T) {
	tlsCert, cert := selfSignedTLSCert(t)
	body := signedAuthzQueryBody(t, tlsCert, "q1", "http://gsa.example.com/doc/1", "alice")

	queries, err := samlutil.ParseAuthzQueries(body)
	require.NoError(t, err)
	require.Len(t, queries, 1)

	verifier := samlutil.NewAuthzVerifier(&dsig.MemoryX509CertificateStore{Roots: []*x509.Certificate{cert}}, time.Hour)
	assert.NoError(t, verifier.VerifyAll(queries))
}

func TestVerifyAllRejectsUntrustedSigner(t *testing.T) {
	tlsCert, _ := selfSignedTLSCert(t)
	_, otherCert := selfSignedTLSCert(t)
	body := signedAuthzQueryBody(t, tlsCert, "q1", "http://gsa.example.com/doc/1", "alice")

	queries, err := samlutil.ParseAuthzQueries(body)
	require.NoError(t, err)

	verifier := samlutil.NewAuthzVerifier(&dsig.MemoryX509CertificateStore{Roots: []*x509.Certificate{otherCert}}, time.Hour)
	err = verifier.VerifyAll(queries)
	assert.ErrorIs(t, err, samlutil.ErrAuthnFailure)
}

func TestVerifyAllRejectsUnsignedQuery(t *testing.T) {
	_, cert := selfSignedTLSCert(t)
	body := fmt.Sprintf(`<samlp:AuthzDecisionQuery xmlns:samlp="urn:oasis:names:tc:SAML:2.0:protocol"
		ID="q1" Resource="http://gsa.example.com/doc/1" IssueInstant=%q>
		<saml:Subject xmlns:saml="urn:oasis:names:tc:SAML:2.0:assertion"><saml:NameID>alice</saml:NameID></saml:Subject>
	</samlp:AuthzDecisionQuery>`, time.Now().UTC().Format(time.RFC3339))
	queries, err := samlutil.ParseAuthzQueries([]byte(body))
	require.NoError(t, err)

	verifier := samlutil.NewAuthzVerifier(&dsig.MemoryX509CertificateStore{Roots: []*x509.Certificate{cert}}, time.Hour)
	err = verifier.VerifyAll(queries)
	assert.ErrorIs(t, err, samlutil.ErrAuthnFailure)
}

func TestSignResponseRejectsMismatchedLengths(t *testing.T) {
	tlsCert, _ := selfSignedTLSCert(t)
	signer := samlutil.NewAuthzSigner(dsig.TLSCertKeyStore(tlsCert))

	_, err := signer.SignResponse("req-1", []samlutil.AuthzQuery{{ID: "q1"}}, nil)
	assert.Error(t, err)
}
