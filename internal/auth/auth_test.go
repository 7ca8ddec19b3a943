package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/justestif/go-setlist-to-playlist/internal/apperrors"
	"github.com/justestif/go-setlist-to-playlist/internal/config"
	"github.com/justestif/go-setlist-to-playlist/internal/logging"
	"github.com/justestif/go-setlist-to-playlist/internal/session"
)

var fixedNow = time.Date(2024, 2, 1, 20, 0, 0, 0, time.UTC)

// tokenServer fakes the Spotify token endpoint and counts requests.
func tokenServer(t *testing.T, status int, calls *int32, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		if check != nil {
			check(r)
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Write([]byte(`{"access_token":"fresh-access","token_type":"Bearer","expires_in":3600,"refresh_token":"fresh-refresh"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAuthenticator(t *testing.T, tokenURL string) *Authenticator {
	t.Helper()
	a, err := New(config.SpotifyConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://127.0.0.1:8080/callback",
		TokenURL:     tokenURL,
	}, WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func storeCredential(t *testing.T, sess *session.Session, cred *Credential) {
	t.Helper()
	if err := (CredentialStore{}).Save(context.Background(), sess, cred); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SpotifyConfig
	}{
		{name: "missing both", cfg: config.SpotifyConfig{}},
		{name: "missing secret", cfg: config.SpotifyConfig{ClientID: "id"}},
		{name: "missing id", cfg: config.SpotifyConfig{ClientSecret: "secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if !errors.Is(err, config.ErrMissingCredentials) {
				t.Errorf("New() error = %v, want ErrMissingCredentials", err)
			}
		})
	}
}

func TestAuthenticator_AuthURL(t *testing.T) {
	a := newTestAuthenticator(t, "")

	raw := a.AuthURL("state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthURL() returned unparseable URL: %v", err)
	}

	q := u.Query()
	checks := map[string]string{
		"state":         "state-123",
		"show_dialog":   "true",
		"client_id":     "client-id",
		"response_type": "code",
		"redirect_uri":  "http://127.0.0.1:8080/callback",
	}
	for key, want := range checks {
		if got := q.Get(key); got != want {
			t.Errorf("query %s = %q, want %q", key, got, want)
		}
	}

	scope := q.Get("scope")
	for _, s := range []string{"playlist-modify-private", "user-read-email"} {
		if !strings.Contains(scope, s) {
			t.Errorf("scope %q missing %q", scope, s)
		}
	}
}

func TestAuthenticator_Exchange(t *testing.T) {
	var calls int32
	srv := tokenServer(t, http.StatusOK, &calls, func(r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("BasicAuth() = %q, %q, %v; want client credentials", user, pass, ok)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q, want authorization_code", got)
		}
		if got := r.PostForm.Get("code"); got != "the-code" {
			t.Errorf("code = %q, want the-code", got)
		}
	})
	a := newTestAuthenticator(t, srv.URL)

	cred, err := a.Exchange(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	if cred.AccessToken != "fresh-access" {
		t.Errorf("AccessToken = %q, want fresh-access", cred.AccessToken)
	}
	if cred.ExpiresIn != 3600 {
		t.Errorf("ExpiresIn = %d, want 3600", cred.ExpiresIn)
	}
	if want := fixedNow.Add(time.Hour); !cred.Expiry.Equal(want) {
		t.Errorf("Expiry = %v, want %v", cred.Expiry, want)
	}
}

func TestAuthenticator_ExchangeRejected(t *testing.T) {
	var calls int32
	srv := tokenServer(t, http.StatusBadRequest, &calls, nil)
	a := newTestAuthenticator(t, srv.URL)

	_, err := a.Exchange(context.Background(), "bad-code")
	if !errors.Is(err, apperrors.ErrAuthProvider) {
		t.Errorf("Exchange() error = %v, want ErrAuthProvider", err)
	}
}

func TestCredential_Expired(t *testing.T) {
	tests := []struct {
		name   string
		expiry time.Time
		want   bool
	}{
		{name: "future", expiry: fixedNow.Add(time.Minute), want: false},
		{name: "exactly now", expiry: fixedNow, want: true},
		{name: "past", expiry: fixedNow.Add(-time.Second), want: true},
		{name: "unset", expiry: time.Time{}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credential{AccessToken: "a", Expiry: tt.expiry}
			if got := c.Expired(fixedNow); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLifetimeSeconds(t *testing.T) {
	tests := []struct {
		name string
		tok  *oauth2.Token
		want int64
	}{
		{
			name: "expires_in field",
			tok:  &oauth2.Token{ExpiresIn: 3600},
			want: 3600,
		},
		{
			name: "raw float",
			tok:  (&oauth2.Token{}).WithExtra(map[string]any{"expires_in": float64(1800)}),
			want: 1800,
		},
		{
			name: "from expiry",
			tok:  &oauth2.Token{Expiry: fixedNow.Add(10 * time.Minute)},
			want: 600,
		},
		{
			name: "not reported",
			tok:  &oauth2.Token{},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lifetimeSeconds(tt.tok, fixedNow); got != tt.want {
				t.Errorf("lifetimeSeconds() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTokenFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name        string
		stored      []byte
		credential  *Credential
		tokenStatus int
		wantErr     error
		wantCalls   int32
		wantAccess  string
	}{
		{
			name: "fresh credential is returned as is",
			credential: &Credential{
				AccessToken:  "still-good",
				TokenType:    "Bearer",
				RefreshToken: "r1",
				ExpiresIn:    3600,
				Expiry:       fixedNow.Add(30 * time.Minute),
			},
			tokenStatus: http.StatusOK,
			wantCalls:   0,
			wantAccess:  "still-good",
		},
		{
			name: "expired credential is refreshed once",
			credential: &Credential{
				AccessToken:  "stale",
				TokenType:    "Bearer",
				RefreshToken: "r1",
				ExpiresIn:    3600,
				Expiry:       fixedNow.Add(-time.Minute),
			},
			tokenStatus: http.StatusOK,
			wantCalls:   1,
			wantAccess:  "fresh-access",
		},
		{
			name:        "missing credential",
			tokenStatus: http.StatusOK,
			wantErr:     apperrors.ErrUnauthenticated,
		},
		{
			name:        "malformed credential",
			stored:      []byte("{not json"),
			tokenStatus: http.StatusOK,
			wantErr:     apperrors.ErrMalformedCredential,
		},
		{
			name:        "credential without access token",
			stored:      []byte(`{"refresh_token":"r1"}`),
			tokenStatus: http.StatusOK,
			wantErr:     apperrors.ErrMalformedCredential,
		},
		{
			name: "refresh rejected",
			credential: &Credential{
				AccessToken:  "stale",
				RefreshToken: "revoked",
				Expiry:       fixedNow.Add(-time.Minute),
			},
			tokenStatus: http.StatusBadRequest,
			wantErr:     apperrors.ErrAuthProvider,
			wantCalls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			var calls int32
			srv := tokenServer(t, tt.tokenStatus, &calls, func(r *http.Request) {
				if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
					t.Errorf("grant_type = %q, want refresh_token", got)
				}
				if _, _, ok := r.BasicAuth(); !ok {
					t.Error("refresh request missing basic auth")
				}
			})

			fetcher := NewTokenFetcher(newTestAuthenticator(t, srv.URL), logging.Discard())
			sess := session.New("s1", session.NewMemoryStore(time.Hour))
			if tt.credential != nil {
				storeCredential(t, sess, tt.credential)
			}
			if tt.stored != nil {
				if err := sess.Set(ctx, CredentialKey, tt.stored); err != nil {
					t.Fatal(err)
				}
			}

			cred, err := fetcher.Fetch(ctx, sess)

			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("token endpoint calls = %d, want %d", got, tt.wantCalls)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Fetch() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if cred.AccessToken != tt.wantAccess {
				t.Errorf("AccessToken = %q, want %q", cred.AccessToken, tt.wantAccess)
			}
			if cred.Expired(fixedNow) {
				t.Errorf("Fetch() returned credential expiring at %v, want after %v", cred.Expiry, fixedNow)
			}
		})
	}
}

func TestTokenFetcher_RefreshOverwritesSession(t *testing.T) {
	ctx := context.Background()
	var calls int32
	srv := tokenServer(t, http.StatusOK, &calls, nil)
	fetcher := NewTokenFetcher(newTestAuthenticator(t, srv.URL), logging.Discard())

	sess := session.New("s1", session.NewMemoryStore(time.Hour))
	storeCredential(t, sess, &Credential{
		AccessToken:  "stale",
		RefreshToken: "r1",
		Expiry:       fixedNow.Add(-time.Hour),
	})

	if _, err := fetcher.Fetch(ctx, sess); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	data, err := sess.Get(ctx, CredentialKey)
	if err != nil {
		t.Fatal(err)
	}
	var stored Credential
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("stored credential is not JSON: %v", err)
	}
	if stored.AccessToken != "fresh-access" {
		t.Errorf("stored AccessToken = %q, want fresh-access", stored.AccessToken)
	}
	if stored.RefreshToken != "fresh-refresh" {
		t.Errorf("stored RefreshToken = %q, want fresh-refresh", stored.RefreshToken)
	}
	if want := fixedNow.Add(time.Hour); !stored.Expiry.Equal(want) {
		t.Errorf("stored Expiry = %v, want %v", stored.Expiry, want)
	}

	// A second fetch uses the refreshed credential without another refresh.
	if _, err := fetcher.Fetch(ctx, sess); err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("token endpoint calls = %d, want 1", got)
	}
}

func TestAuthenticator_TokenWithoutLifetime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new","token_type":"Bearer"}`))
	}))
	t.Cleanup(srv.Close)
	a := newTestAuthenticator(t, srv.URL)
	ctx := context.Background()

	if _, err := a.Exchange(ctx, "the-code"); !errors.Is(err, apperrors.ErrAuthProvider) {
		t.Errorf("Exchange() error = %v, want ErrAuthProvider", err)
	}
	if _, err := a.Refresh(ctx, &Credential{RefreshToken: "r1"}); !errors.Is(err, apperrors.ErrAuthProvider) {
		t.Errorf("Refresh() error = %v, want ErrAuthProvider", err)
	}

	// The expired credential in the session is left as it was.
	sess := session.New("s1", session.NewMemoryStore(time.Hour))
	stale := &Credential{AccessToken: "stale", RefreshToken: "r1", Expiry: fixedNow.Add(-time.Hour)}
	storeCredential(t, sess, stale)

	fetcher := NewTokenFetcher(a, logging.Discard())
	if _, err := fetcher.Fetch(ctx, sess); !errors.Is(err, apperrors.ErrAuthProvider) {
		t.Errorf("Fetch() error = %v, want ErrAuthProvider", err)
	}
	got, err := (CredentialStore{}).Load(ctx, sess)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.AccessToken != "stale" {
		t.Errorf("stored AccessToken = %q, want stale", got.AccessToken)
	}
}

func TestCredentialStore_Present(t *testing.T) {
	ctx := context.Background()
	store := CredentialStore{}
	sess := session.New("s1", session.NewMemoryStore(time.Hour))

	if ok, _ := store.Present(ctx, sess); ok {
		t.Error("Present() = true before save")
	}
	storeCredential(t, sess, &Credential{AccessToken: "a"})
	if ok, _ := store.Present(ctx, sess); !ok {
		t.Error("Present() = false after save")
	}
	if err := store.Delete(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if ok, _ := store.Present(ctx, sess); ok {
		t.Error("Present() = true after delete")
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	b, _ := GenerateState()

	if len(a) != 32 {
		t.Errorf("len(state) = %d, want 32", len(a))
	}
	if a == b {
		t.Error("GenerateState() returned the same value twice")
	}
}
