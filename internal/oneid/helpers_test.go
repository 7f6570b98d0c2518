package oneid

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testCode  = "auth-code-0123456789"
	testToken = "access-token-abcdef"
	testPIN   = "12345678901234"
)

type stubResponse struct {
	status int
	body   string
}

// fakeProvider mimics OneID's single endpoint that dispatches on grant_type.
type fakeProvider struct {
	mu       sync.Mutex
	replies  map[string]stubResponse
	received []url.Values
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{replies: map[string]stubResponse{
		GrantTypeAuthorizationCode:   {http.StatusOK, `{"access_token":"` + testToken + `","token_type":"Bearer","expires_in":"3600"}`},
		GrantTypeAccessTokenIdentify: {http.StatusOK, `{"pin":"` + testPIN + `","first_name":"ALI","sur_name":"VALIYEV","mid_name":"SOBIR O'G'LI"}`},
		GrantTypeLogOut:              {http.StatusOK, `{}`},
	}}
}

func (f *fakeProvider) reply(grant string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[grant] = stubResponse{status, body}
}

func (f *fakeProvider) requests() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.received...)
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.mu.Lock()
	f.received = append(f.received, q)
	reply, ok := f.replies[q.Get("grant_type")]
	f.mu.Unlock()
	if !ok {
		reply = stubResponse{http.StatusBadRequest, `{"error":"unsupported_grant_type"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.status)
	_, _ = w.Write([]byte(reply.body))
}

func testConfig(baseURL string) ProviderConfig {
	return ProviderConfig{
		BaseURL:      baseURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example.uz/auth/oneid/callback",
		Scope:        "openid profile",
		RetryTimes:   1,
		RetryDelay:   time.Millisecond,
		Timeout:      2 * time.Second,
		VerifySSL:    true,
	}
}

func newTestClient(t *testing.T, f *fakeProvider, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := New(testConfig(srv.URL), opts...)
	require.NoError(t, err)
	return c
}

// closedServerURL returns a URL nothing listens on.
func closedServerURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}
