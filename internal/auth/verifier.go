// Package auth gates the API behind Google ID-token verification. The
// browser obtains an ID token during sign-in and sends it on every
// request; the service confirms it with Google's tokeninfo endpoint
// and only admits the account the deployment is configured for.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// HeaderName carries the ID token on API requests.
	HeaderName = "X-Id-Token"

	defaultTokenInfoURL = "https://www.googleapis.com/oauth2/v3/tokeninfo"
)

var ErrNotAuthorized = errors.New("not authorized")

type Verifier struct {
	tokenInfoURL string
	allowedEmail string
	httpClient   *http.Client
}

func NewVerifier(allowedEmail string) *Verifier {
	return &Verifier{
		tokenInfoURL: defaultTokenInfoURL,
		allowedEmail: strings.ToLower(strings.TrimSpace(allowedEmail)),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewVerifierWithEndpoint exists for tests pointing at a local
// tokeninfo server.
func NewVerifierWithEndpoint(endpoint, allowedEmail string) *Verifier {
	v := NewVerifier(allowedEmail)
	v.tokenInfoURL = endpoint
	return v
}

// Verify checks the token with the tokeninfo endpoint and returns the
// verified email. Any failure, including an email other than the
// allowed one, yields ErrNotAuthorized.
func (v *Verifier) Verify(ctx context.Context, idToken string) (string, error) {
	if strings.TrimSpace(idToken) == "" {
		return "", ErrNotAuthorized
	}

	endpoint := v.tokenInfoURL + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build tokeninfo request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", ErrNotAuthorized
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode tokeninfo response: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(info.Email))
	if email == "" || email != v.allowedEmail {
		return "", ErrNotAuthorized
	}
	return email, nil
}
