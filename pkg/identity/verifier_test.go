package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, valid string, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		if r.Header.Get("Authorization") != "OAuth "+valid {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"status":401,"message":"invalid access token"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"client_id":"panel","login":"acidjurassic","scopes":["user:read:email"],"user_id":"4242","expires_in":5000}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifySuccess(t *testing.T) {
	srv := newProvider(t, "good", nil)
	v := NewVerifier(srv.URL)

	ident, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "acidjurassic", ident.DisplayName)
	assert.Equal(t, "4242", ident.StableID)
	assert.Equal(t, []string{"user:read:email"}, ident.Scopes)
}

func TestVerifyRejected(t *testing.T) {
	srv := newProvider(t, "good", nil)
	v := NewVerifier(srv.URL)

	_, err := v.Verify(context.Background(), "expired")
	assert.True(t, errors.Is(err, ErrInvalidCredential))
}

func TestVerifyMissingToken(t *testing.T) {
	v := NewVerifier("http://127.0.0.1:0")

	_, err := v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestVerifyNetworkFailure(t *testing.T) {
	srv := newProvider(t, "good", nil)
	url := srv.URL
	srv.Close()

	_, err := NewVerifier(url).Verify(context.Background(), "good")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidCredential))
}

func TestVerifyClientMismatch(t *testing.T) {
	srv := newProvider(t, "good", nil)
	v := NewVerifier(srv.URL, WithExpectedClientID("someone-else"))

	_, err := v.Verify(context.Background(), "good")
	assert.ErrorIs(t, err, ErrClientMismatch)
}

func TestVerifyRejectsAppToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"client_id":"panel","scopes":[],"expires_in":5000}`))
	}))
	defer srv.Close()

	ident, err := NewVerifier(srv.URL).Verify(context.Background(), "app-token")
	assert.Nil(t, ident)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyDoesNotCache(t *testing.T) {
	var calls int32
	srv := newProvider(t, "good", &calls)
	v := NewVerifier(srv.URL)

	for i := 0; i < 3; i++ {
		_, err := v.Verify(context.Background(), "good")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestParseAuthorization(t *testing.T) {
	assert.Equal(t, "abc", ParseAuthorization("OAuth abc"))
	assert.Equal(t, "abc", ParseAuthorization("Bearer abc"))
	assert.Equal(t, "abc", ParseAuthorization("oauth  abc "))
	assert.Equal(t, "", ParseAuthorization("OAuth "))
	assert.Equal(t, "", ParseAuthorization("Basic abc"))
	assert.Equal(t, "", ParseAuthorization(""))
}

func TestIdentityLabel(t *testing.T) {
	assert.Equal(t, "viewer", Identity{}.Label())
	assert.Equal(t, "bob", Identity{DisplayName: "bob"}.Label())
}
