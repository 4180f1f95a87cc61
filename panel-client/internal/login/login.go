// Package login runs the provider's implicit-flow login against a loopback
// page that hands the access token back to the CLI.
package login

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
)

var (
	ErrMissingClientID = errors.New("twitch client id is not configured (set TWITCH_CLIENT_ID)")
	ErrNoToken         = errors.New("redirect carried no access token")
	ErrTimeout         = errors.New("login timed out")
)

// Options configures the authorize redirect.
type Options struct {
	ClientID     string
	AuthorizeURL string
	RedirectURI  string
	Scopes       []string
}

// AuthorizeURL builds the provider authorize URL for the token flow.
func AuthorizeURL(opts Options) (string, error) {
	if strings.TrimSpace(opts.ClientID) == "" {
		return "", ErrMissingClientID
	}
	u, err := url.Parse(opts.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorize url: %w", err)
	}
	q := u.Query()
	q.Set("client_id", opts.ClientID)
	q.Set("redirect_uri", opts.RedirectURI)
	q.Set("response_type", "token")
	q.Set("scope", strings.Join(opts.Scopes, " "))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseFragment extracts access_token from a redirect fragment such as
// "#access_token=abc&scope=user%3Aread%3Aemail&token_type=bearer".
func ParseFragment(fragment string) (string, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		return "", fmt.Errorf("invalid fragment: %w", err)
	}
	if e := values.Get("error"); e != "" {
		if desc := values.Get("error_description"); desc != "" {
			return "", fmt.Errorf("provider denied login: %s", desc)
		}
		return "", fmt.Errorf("provider denied login: %s", e)
	}
	token := strings.TrimSpace(values.Get("access_token"))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Server is the loopback redirect target.
type Server struct {
	addr   string
	tokens chan string
	errs   chan error
}

func NewServer(addr string) *Server {
	return &Server{
		addr:   addr,
		tokens: make(chan string, 1),
		errs:   make(chan error, 1),
	}
}

// RedirectURI is the origin the provider must redirect back to.
func (s *Server) RedirectURI() string {
	return "http://" + s.addr + "/"
}

// Handler serves the landing page and the callback the page posts to.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.landing).Methods(http.MethodGet)
	r.HandleFunc("/callback", s.callback).Methods(http.MethodPost)
	return r
}

func (s *Server) landing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	fmt.Fprint(w, landingPage)
}

func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	token, err := ParseFragment(r.PostForm.Get("fragment"))
	if err != nil {
		select {
		case s.errs <- err:
		default:
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	select {
	case s.tokens <- token:
	default:
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "Logged in. You can close this tab.")
}

// Wait serves the loopback page until a token arrives, ctx ends, or
// timeout elapses.
func (s *Server) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l := log.L()
			l.Error().Err(err).Msg("login server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case token := <-s.tokens:
		return token, nil
	case err := <-s.errs:
		return "", err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", ctx.Err()
	}
}

const landingPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Isla Toxica login</title></head>
<body>
<p id="status">Finishing login...</p>
<script>
(function () {
  var fragment = window.location.hash.replace(/^#/, "");
  history.replaceState(null, "", window.location.pathname + window.location.search);
  var status = document.getElementById("status");
  if (!fragment) {
    status.textContent = "No token in the redirect. Run the login command again.";
    return;
  }
  fetch("/callback", {
    method: "POST",
    headers: {"Content-Type": "application/x-www-form-urlencoded"},
    body: "fragment=" + encodeURIComponent(fragment)
  }).then(function (res) { return res.text(); })
    .then(function (text) { status.textContent = text; })
    .catch(function () { status.textContent = "Could not reach the panel."; });
})();
</script>
</body>
</html>
`
