package sso

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdPCertificate(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "idp.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func newSAMLStrategy(t *testing.T) *SAMLStrategy {
	t.Helper()
	s, err := NewSAMLStrategy(SAMLConfig{
		Name:        "corp",
		EntityID:    "https://idp.example.com/metadata",
		SSOURL:      "https://idp.example.com/sso",
		Certificate: testIdPCertificate(t),
		ServiceURL:  "https://broker.example.com",
		CallbackURL: "https://broker.example.com/corp_auth_callback",
		Attributes:  ProfileMapping{DisplayName: "displayName"},
	})
	require.NoError(t, err)
	return s
}

func TestSAMLStrategy_BeginAuth(t *testing.T) {
	s := newSAMLStrategy(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/login/corp?redirect=https://app", nil)
	require.NoError(t, s.BeginAuth(w, r, "relay-nonce"))

	assert.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "idp.example.com", loc.Host)
	assert.Equal(t, "/sso", loc.Path)
	assert.Equal(t, "relay-nonce", loc.Query().Get("RelayState"))
	assert.NotEmpty(t, loc.Query().Get("SAMLRequest"))
}

func TestSAMLStrategy_CompleteAuth_MissingResponse(t *testing.T) {
	s := newSAMLStrategy(t)

	r := httptest.NewRequest("POST", "/corp_auth_callback", nil)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err := s.CompleteAuth(context.Background(), r)
	assert.Error(t, err)
}

func TestSAMLStrategy_CompleteAuth_GarbageResponse(t *testing.T) {
	s := newSAMLStrategy(t)

	form := url.Values{"SAMLResponse": {"!!not-base64!!"}}
	r := httptest.NewRequest("POST", "/corp_auth_callback", nil)
	r.PostForm = form

	_, err := s.CompleteAuth(context.Background(), r)
	assert.Error(t, err)
}

func TestNewSAMLStrategy_Validation(t *testing.T) {
	cert := testIdPCertificate(t)

	_, err := NewSAMLStrategy(SAMLConfig{
		Name: "corp", SSOURL: "https://idp/sso", Certificate: cert,
		ServiceURL: "https://broker", CallbackURL: "https://broker/cb",
	})
	assert.Error(t, err, "missing entity id")

	_, err = NewSAMLStrategy(SAMLConfig{
		Name: "corp", EntityID: "https://idp", SSOURL: "https://idp/sso",
		Certificate: "not pem", ServiceURL: "https://broker", CallbackURL: "https://broker/cb",
	})
	assert.Error(t, err, "bad certificate")

	_, err = NewSAMLStrategy(SAMLConfig{
		Name: "", EntityID: "https://idp", SSOURL: "https://idp/sso", Certificate: cert,
		ServiceURL: "https://broker", CallbackURL: "https://broker/cb",
	})
	assert.Error(t, err, "missing name")
}
