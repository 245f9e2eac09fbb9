// Package gcal is the Google Calendar sink: OAuth authorization-code
// flow, token persistence and event reconciliation for expanded
// instances.
package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"

	appLog "github.com/hadronomy/scheduler/internal/log"
)

// credentialsFile mirrors the OAuth client JSON downloaded from the
// Google Cloud console; desktop apps use "installed", web apps "web".
type credentialsFile struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadCredentials builds an oauth2 config from a credentials JSON file,
// scoped to calendar access.
func LoadCredentials(path string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gcal: read credentials file: %w", err)
	}
	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("gcal: parse credentials file: %w", err)
	}

	clientID, clientSecret := creds.Installed.ClientID, creds.Installed.ClientSecret
	if clientID == "" {
		clientID, clientSecret = creds.Web.ClientID, creds.Web.ClientSecret
	}
	if clientID == "" {
		return nil, fmt.Errorf("gcal: no client_id in credentials file (expected 'installed' or 'web' section)")
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarScope},
	}, nil
}

// savingTokenSource wraps a TokenSource and persists refreshed tokens.
type savingTokenSource struct {
	source oauth2.TokenSource
	store  TokenStore
	last   *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.source.Token()
	if err != nil {
		return nil, err
	}
	if s.last == nil || s.last.AccessToken != token.AccessToken {
		if err := s.store.SaveToken(token); err != nil {
			return nil, fmt.Errorf("gcal: save refreshed token: %w", err)
		}
		s.last = token
	}
	return token, nil
}

// Authenticate returns an HTTP client carrying OAuth credentials. On
// first run it walks the user through the authorization-code flow with
// a local callback server; afterwards the cached token is reused and
// refreshed tokens are saved back to the store transparently.
func Authenticate(ctx context.Context, conf *oauth2.Config, store TokenStore) (*http.Client, error) {
	token, err := store.LoadToken()
	if err != nil {
		return nil, err
	}
	if token == nil {
		token, err = interactiveFlow(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err := store.SaveToken(token); err != nil {
			return nil, err
		}
	}

	src := &savingTokenSource{
		source: oauth2.ReuseTokenSource(token, conf.TokenSource(ctx, token)),
		store:  store,
		last:   token,
	}
	return oauth2.NewClient(ctx, src), nil
}

// interactiveFlow prints the consent URL, receives the authorization
// code on a loopback listener and exchanges it for a token.
func interactiveFlow(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("gcal: start callback listener: %w", err)
	}
	defer listener.Close()

	conf.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	srv := &http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	srv.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code := r.URL.Query().Get("code"); code != "" {
			fmt.Fprint(w, "<html><body>Authorization complete. You can close this window.</body></html>")
			codeCh <- code
			return
		}
		msg := r.URL.Query().Get("error")
		fmt.Fprintf(w, "<html><body>Authorization failed: %s</body></html>", msg)
		errCh <- fmt.Errorf("gcal: authorization error: %s", msg)
	})
	go func() { _ = srv.Serve(listener) }()
	defer srv.Shutdown(context.Background())

	authURL := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	appLog.Info("gcal: waiting for authorization", "redirect_url", conf.RedirectURL)
	fmt.Println("Visit the following URL to authorize calendar access:")
	fmt.Println(authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-time.After(5 * time.Minute):
		return nil, fmt.Errorf("gcal: authorization timed out after 5 minutes")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("gcal: exchange authorization code: %w", err)
	}
	return token, nil
}
