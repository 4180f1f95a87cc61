package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Verifier exchanges a bearer credential for a verified Identity.
//
// Results are never cached: every privileged use of a credential goes back
// to the provider so a token revoked upstream stops working immediately.
type Verifier struct {
	validateURL      string
	expectedClientID string
	httpClient       *http.Client
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithHTTPClient overrides the HTTP client used for introspection.
func WithHTTPClient(c *http.Client) VerifierOption {
	return func(v *Verifier) {
		v.httpClient = c
	}
}

// WithExpectedClientID rejects tokens issued to any other client id.
func WithExpectedClientID(clientID string) VerifierOption {
	return func(v *Verifier) {
		v.expectedClientID = clientID
	}
}

// NewVerifier creates a Verifier against validateURL.
func NewVerifier(validateURL string, opts ...VerifierOption) *Verifier {
	if validateURL == "" {
		validateURL = DefaultValidateURL
	}
	v := &Verifier{
		validateURL: validateURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify calls the introspection endpoint with token. Any error means the
// credential is unverified and should be discarded by the caller.
func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingCredential
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.validateURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", AuthorizationHeader(token))
	req.Header.Set("Cache-Control", "no-store")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: provider returned %d", ErrInvalidCredential, resp.StatusCode)
	}

	var ident Identity
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&ident); err != nil {
		return nil, fmt.Errorf("%w: malformed introspection body: %v", ErrInvalidCredential, err)
	}
	// App tokens validate without a user; they cannot be attributed or rate limited.
	if strings.TrimSpace(ident.StableID) == "" {
		return nil, fmt.Errorf("%w: introspection reply has no user_id", ErrInvalidCredential)
	}

	if v.expectedClientID != "" && ident.ClientID != v.expectedClientID {
		return nil, ErrClientMismatch
	}

	return &ident, nil
}
