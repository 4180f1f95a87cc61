package locator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"https://relay.example/":   "wss://relay.example/",
		"HTTPS://relay.example/":   "wss://relay.example/",
		"http://10.0.0.2:18080/":   "ws://10.0.0.2:18080/",
		"wss://already.example/":   "wss://already.example/",
		"  ws://127.0.0.1:18080/ ": "ws://127.0.0.1:18080/",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestFetchIsCacheBusted(t *testing.T) {
	var seenQuery, seenCache string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenQuery = r.URL.Query().Get("t")
		seenCache = r.Header.Get("Cache-Control")
		w.Write([]byte(`{"url":"  https://abc.trycloudflare.com/  "}`))
	}))
	defer srv.Close()

	at := time.UnixMilli(1700000000123)
	l := New(srv.URL+"/current.json", "ws://127.0.0.1:18080/", WithNow(func() time.Time { return at }))

	got, err := l.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://abc.trycloudflare.com/", got)
	assert.Equal(t, "1700000000123", seenQuery)
	assert.Equal(t, "no-cache", seenCache)
}

func TestResolveFallsBackWhenNeverKnown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := New(srv.URL, "ws://127.0.0.1:18080/")
	assert.Equal(t, "ws://127.0.0.1:18080/", l.Resolve(context.Background()))
}

func TestResolveKeepsLastGoodEndpoint(t *testing.T) {
	var fail atomic.Bool
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"url":"https://relay.example/"}`))
	}))
	defer srv.Close()

	l := New(srv.URL, "ws://127.0.0.1:18080/")
	assert.Equal(t, "wss://relay.example/", l.Resolve(context.Background()))

	fail.Store(true)
	for i := 0; i < 3; i++ {
		assert.Equal(t, "wss://relay.example/", l.Resolve(context.Background()))
	}
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, "wss://relay.example/", l.Last())
}

func TestResolveIgnoresEmptyURL(t *testing.T) {
	var body atomic.Value
	body.Store(`{"url":"http://first.example/"}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body.Load().(string)))
	}))
	defer srv.Close()

	l := New(srv.URL, "ws://127.0.0.1:18080/")
	assert.Equal(t, "ws://first.example/", l.Resolve(context.Background()))

	body.Store(`{"url":"   "}`)
	assert.Equal(t, "ws://first.example/", l.Resolve(context.Background()))

	_, err := l.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrEmptyDescriptor)
}

func TestResolveUnreachable(t *testing.T) {
	l := New("http://127.0.0.1:1/current.json", "ws://127.0.0.1:18080/",
		WithHTTPClient(&http.Client{Timeout: 200 * time.Millisecond}))
	assert.Equal(t, "ws://127.0.0.1:18080/", l.Resolve(context.Background()))
}
