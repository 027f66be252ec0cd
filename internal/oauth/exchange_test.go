package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

type tokenServer struct {
	tokenStatus  int
	tokenBody    string
	userStatus   int
	gotGrantType string
	gotCode      string
	gotRefresh   string
}

func (s *tokenServer) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() failed: %v", err)
		}
		s.gotGrantType = r.PostForm.Get("grant_type")
		s.gotCode = r.PostForm.Get("code")
		s.gotRefresh = r.PostForm.Get("refresh_token")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.tokenStatus)
		fmt.Fprint(w, s.tokenBody)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(s.userStatus)
		fmt.Fprint(w, `{"email":"user@example.com","name":"User"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(ClientConfig{
		ClientID:     "cid",
		ClientSecret: "csecret",
		RedirectURL:  "http://localhost:8888/oauth-callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: srv.URL + "/userinfo",
		HTTPClient:  srv.Client(),
	})
}

func TestClient_Exchange(t *testing.T) {
	ts := &tokenServer{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"access-1","refresh_token":"refresh-1","expires_in":3599,"token_type":"Bearer"}`,
		userStatus:  http.StatusOK,
	}
	client := newTestClient(ts.start(t))

	tok, err := client.Exchange(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if ts.gotGrantType != "authorization_code" || ts.gotCode != "auth-code" {
		t.Errorf("token request grant=%q code=%q", ts.gotGrantType, ts.gotCode)
	}
	if tok.AccessToken != "access-1" || tok.RefreshToken != "refresh-1" {
		t.Errorf("tokens = %q/%q", tok.AccessToken, tok.RefreshToken)
	}
	if tok.ExpiresIn < 3590 || tok.ExpiresIn > 3599 {
		t.Errorf("ExpiresIn = %d, want about 3599", tok.ExpiresIn)
	}
	if tok.Email != "user@example.com" {
		t.Errorf("Email = %q, want user@example.com", tok.Email)
	}
	if tok.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer", tok.TokenType)
	}
}

func TestClient_ExchangeUserInfoFailure(t *testing.T) {
	ts := &tokenServer{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"access-1","expires_in":60}`,
		userStatus:  http.StatusInternalServerError,
	}
	client := newTestClient(ts.start(t))

	tok, err := client.Exchange(context.Background(), "code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if tok.Email != "" {
		t.Errorf("Email = %q, want empty when userinfo fails", tok.Email)
	}
}

func TestClient_ExchangeErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"Rejected", http.StatusBadRequest, `{"error":"invalid_grant"}`},
		{"ServerError", http.StatusInternalServerError, `oops`},
		{"Malformed", http.StatusOK, `{not json`},
		{"NoAccessToken", http.StatusOK, `{"refresh_token":"r"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := &tokenServer{tokenStatus: tt.status, tokenBody: tt.body, userStatus: http.StatusOK}
			client := newTestClient(ts.start(t))

			_, err := client.Exchange(context.Background(), "code")
			var exErr *ExchangeError
			if !errors.As(err, &exErr) {
				t.Fatalf("Exchange() error = %v, want *ExchangeError", err)
			}
		})
	}
}

func TestClient_Refresh(t *testing.T) {
	ts := &tokenServer{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"access-2","expires_in":3600,"token_type":"Bearer"}`,
	}
	client := newTestClient(ts.start(t))

	tok, err := client.Refresh(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if ts.gotGrantType != "refresh_token" || ts.gotRefresh != "refresh-1" {
		t.Errorf("refresh request grant=%q refresh=%q", ts.gotGrantType, ts.gotRefresh)
	}
	if tok.AccessToken != "access-2" {
		t.Errorf("AccessToken = %q, want access-2", tok.AccessToken)
	}
	if tok.RefreshToken != "refresh-1" {
		t.Errorf("RefreshToken = %q, want the old one kept", tok.RefreshToken)
	}
}

func TestClient_RefreshRejected(t *testing.T) {
	ts := &tokenServer{tokenStatus: http.StatusBadRequest, tokenBody: `{"error":"invalid_grant"}`}
	client := newTestClient(ts.start(t))

	_, err := client.Refresh(context.Background(), "revoked")
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		t.Fatalf("Refresh() error = %v, want *oauth2.RetrieveError", err)
	}
	if re.Response.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", re.Response.StatusCode)
	}

	if _, err := client.Refresh(context.Background(), ""); err == nil {
		t.Error("Refresh() with empty token should fail")
	}
}

func TestClient_AuthCodeURL(t *testing.T) {
	client := NewClient(ClientConfig{ClientID: "cid", RedirectURL: RedirectURL("127.0.0.1:8888")})

	raw := client.AuthCodeURL("state-1")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse() failed: %v", err)
	}
	q := u.Query()

	checks := map[string]string{
		"client_id":     "cid",
		"state":         "state-1",
		"access_type":   "offline",
		"prompt":        "consent",
		"response_type": "code",
		"redirect_uri":  "http://localhost:8888/oauth-callback",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if !strings.Contains(q.Get("scope"), "cloud-platform") {
		t.Errorf("scope = %q, want cloud-platform", q.Get("scope"))
	}
	if !strings.HasPrefix(raw, "https://accounts.google.com/") {
		t.Errorf("AuthCodeURL() = %q, want Google consent screen", raw)
	}
}

func TestRedirectURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"127.0.0.1:8888", "http://localhost:8888/oauth-callback"},
		{"127.0.0.1:9999", "http://localhost:9999/oauth-callback"},
		{"garbage", "http://localhost:8888/oauth-callback"},
	}
	for _, tt := range tests {
		if got := RedirectURL(tt.addr); got != tt.want {
			t.Errorf("RedirectURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
