package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OIDCProvider holds the subset of the OpenID Connect discovery document the
// server consumes: where to fetch signing keys and which scopes the clinic
// SSO can grant.
type OIDCProvider struct {
	Issuer          string   `json:"issuer"`
	TokenEndpoint   string   `json:"token_endpoint"`
	JWKSURI         string   `json:"jwks_uri"`
	ScopesSupported []string `json:"scopes_supported"`
}

// NewOIDCProvider resolves the issuer's discovery document from
// <issuer>/.well-known/openid-configuration. The document's issuer claim
// must echo the configured issuer; a mismatch means tokens would be minted
// under a different authority than the one being trusted.
func NewOIDCProvider(issuerURL string) (*OIDCProvider, error) {
	issuerURL = strings.TrimRight(issuerURL, "/")
	discoveryURL := issuerURL + "/.well-known/openid-configuration"

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(discoveryURL)
	if err != nil {
		return nil, fmt.Errorf("fetch OIDC discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OIDC discovery returned status %d", resp.StatusCode)
	}

	var provider OIDCProvider
	if err := json.NewDecoder(resp.Body).Decode(&provider); err != nil {
		return nil, fmt.Errorf("decode OIDC discovery document: %w", err)
	}

	if provider.JWKSURI == "" {
		return nil, fmt.Errorf("OIDC discovery document has no jwks_uri")
	}
	if got := strings.TrimRight(provider.Issuer, "/"); got != issuerURL {
		return nil, fmt.Errorf("OIDC issuer mismatch: configured %s, discovery reports %s", issuerURL, provider.Issuer)
	}

	return &provider, nil
}

// JWKSKeyFunc returns a jwt.Keyfunc backed by the provider's JWKS endpoint.
// Keys are cached and refetched on unknown key IDs to ride out rotation.
func (p *OIDCProvider) JWKSKeyFunc() jwt.Keyfunc {
	return jwksKeyFunc(p.JWKSURI)
}

// SupportsScope reports whether the provider advertises the given scope.
func (p *OIDCProvider) SupportsScope(scope string) bool {
	for _, s := range p.ScopesSupported {
		if s == scope {
			return true
		}
	}
	return false
}
