package oneid

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationURL(t *testing.T) {
	cfg := testConfig("https://sso.egov.uz")
	c, err := New(cfg)
	require.NoError(t, err)

	got := c.AuthorizationURL("state-xyz")

	prefix := cfg.BaseURL + DefaultEndpoint + "?"
	require.True(t, strings.HasPrefix(got, prefix), got)

	q, err := url.ParseQuery(strings.TrimPrefix(got, prefix))
	require.NoError(t, err)
	assert.Equal(t, "one_code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, cfg.RedirectURI, q.Get("redirect_uri"))
	assert.Equal(t, "openid profile", q.Get("scope"))
	assert.Equal(t, "state-xyz", q.Get("state"))
	assert.Empty(t, q.Get("client_secret"))
}

func TestAuthorizationURL_ScopeAlwaysSent(t *testing.T) {
	for _, scope := range []string{"", "openid"} {
		cfg := testConfig("https://sso.egov.uz")
		cfg.Scope = scope
		c, err := New(cfg)
		require.NoError(t, err)

		u, err := url.Parse(c.AuthorizationURL("s"))
		require.NoError(t, err)
		q := u.Query()
		require.Contains(t, q, "scope", "scope %q", scope)
		assert.Equal(t, scope, q.Get("scope"))
	}
}

func TestAuthorizationURL_Deterministic(t *testing.T) {
	c, err := New(testConfig("https://sso.egov.uz"))
	require.NoError(t, err)
	assert.Equal(t, c.AuthorizationURL("s"), c.AuthorizationURL("s"))
}

func TestAuthorizationURL_CustomEndpoint(t *testing.T) {
	cfg := testConfig("https://sso.egov.uz/")
	cfg.Endpoints.Authorization = "/sso/oauth/authorize"
	c, err := New(cfg)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(c.AuthorizationURL("s"), "https://sso.egov.uz/sso/oauth/authorize?"))
}

func TestExchangeCode_SendsContractParameters(t *testing.T) {
	f := newFakeProvider()
	c := newTestClient(t, f)

	tok, err := c.ExchangeCode(context.Background(), testCode)
	require.NoError(t, err)
	assert.Equal(t, testToken, tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, int64(3600), tok.ExpiresIn)

	reqs := f.requests()
	require.Len(t, reqs, 1)
	q := reqs[0]
	assert.Equal(t, "one_authorization_code", q.Get("grant_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "client-secret", q.Get("client_secret"))
	assert.Equal(t, "https://app.example.uz/auth/oneid/callback", q.Get("redirect_uri"))
	assert.Equal(t, testCode, q.Get("code"))
}

func TestExchangeCode_Rejected(t *testing.T) {
	f := newFakeProvider()
	f.reply(GrantTypeAuthorizationCode, http.StatusBadRequest, `{"error":"invalid_grant"}`)
	c := newTestClient(t, f)

	tok, err := c.ExchangeCode(context.Background(), testCode)
	require.Error(t, err)
	assert.Nil(t, tok)
	assert.True(t, IsRejected(err))

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, http.StatusBadRequest, oe.StatusCode)
	assert.JSONEq(t, `{"error":"invalid_grant"}`, string(oe.Body))
}

func TestExchangeCode_Malformed(t *testing.T) {
	for name, body := range map[string]string{
		"not json":      `<html>oops</html>`,
		"missing token": `{"token_type":"Bearer"}`,
		"empty token":   `{"access_token":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFakeProvider()
			f.reply(GrantTypeAuthorizationCode, http.StatusOK, body)
			c := newTestClient(t, f)

			_, err := c.ExchangeCode(context.Background(), testCode)
			assert.True(t, IsParse(err), "got %v", err)
		})
	}
}

func TestExchangeCode_Transport(t *testing.T) {
	c, err := New(testConfig(closedServerURL(t)))
	require.NoError(t, err)

	_, err = c.ExchangeCode(context.Background(), testCode)
	assert.True(t, IsTransport(err))

	token, ok := c.AccessToken(context.Background(), testCode)
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestUserInfo_ReturnsMapping(t *testing.T) {
	f := newFakeProvider()
	c := newTestClient(t, f)

	data, err := c.UserInfo(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, testPIN, data["pin"])

	q := f.requests()[0]
	assert.Equal(t, "one_access_token_identify", q.Get("grant_type"))
	assert.Equal(t, "openid profile", q.Get("scope"))
	assert.Equal(t, testToken, q.Get("access_token"))
	assert.Equal(t, "https://app.example.uz/auth/oneid/callback", q.Get("redirect_uri"))
}

func TestUserInfo_SurfacesErrors(t *testing.T) {
	f := newFakeProvider()
	f.reply(GrantTypeAccessTokenIdentify, http.StatusUnauthorized, `{"error":"invalid_token"}`)
	c := newTestClient(t, f)

	_, err := c.UserInfo(context.Background(), testToken)
	assert.True(t, IsRejected(err))

	f.reply(GrantTypeAccessTokenIdentify, http.StatusOK, `{"first_name":"ALI"}`)
	_, err = c.UserInfo(context.Background(), testToken)
	require.True(t, IsBusinessRule(err))
	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "pin", oe.Field)
	assert.Equal(t, http.StatusOK, oe.StatusCode)
	assert.JSONEq(t, `{"first_name":"ALI"}`, string(oe.Body))

	_, err = c.UserInfo(context.Background(), "short")
	assert.True(t, IsValidation(err))

	tc, cerr := New(testConfig(closedServerURL(t)))
	require.NoError(t, cerr)
	_, err = tc.UserInfo(context.Background(), testToken)
	assert.True(t, IsTransport(err))
}

func TestValidateToken(t *testing.T) {
	f := newFakeProvider()
	c := newTestClient(t, f)
	assert.True(t, c.ValidateToken(context.Background(), testToken))

	f.reply(GrantTypeAccessTokenIdentify, http.StatusOK, `{"first_name":"ALI"}`)
	assert.False(t, c.ValidateToken(context.Background(), testToken))

	f.reply(GrantTypeAccessTokenIdentify, http.StatusInternalServerError, `oops`)
	assert.False(t, c.ValidateToken(context.Background(), testToken))
}

type recordedCall struct {
	op, outcome string
}

type fakeRecorder struct {
	calls []recordedCall
}

func (r *fakeRecorder) ObserveCall(op, outcome string, _ time.Duration) {
	r.calls = append(r.calls, recordedCall{op, outcome})
}

func TestRecorderObservesOutboundCalls(t *testing.T) {
	f := newFakeProvider()
	f.reply(GrantTypeLogOut, http.StatusForbidden, `denied`)
	rec := &fakeRecorder{}
	c := newTestClient(t, f, WithRecorder(rec))

	c.Handle(context.Background(), testCode)
	c.Logout(context.Background(), testToken)

	assert.Equal(t, []recordedCall{
		{OpToken, "ok"},
		{OpHandle, "ok"},
		{OpLogout, "rejected"},
	}, rec.calls)
}

func TestFailureLog_MasksCredentials(t *testing.T) {
	var buf bytes.Buffer
	f := newFakeProvider()
	f.reply(GrantTypeAuthorizationCode, http.StatusBadRequest, `{"error":"invalid_grant"}`)
	c := newTestClient(t, f, WithLogger(zerolog.New(&buf), zerolog.WarnLevel))

	c.Handle(context.Background(), testCode)

	out := buf.String()
	assert.Contains(t, out, `"message":"OneID: Token request rejected"`)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"operation":"token"`)
	assert.Contains(t, out, `"code":"auth***"`)
	assert.NotContains(t, out, testCode)
}

func TestFailureLog_Disabled(t *testing.T) {
	var buf bytes.Buffer
	f := newFakeProvider()
	f.reply(GrantTypeAuthorizationCode, http.StatusBadRequest, `{}`)
	c := newTestClient(t, f, WithLogger(zerolog.New(&buf).Level(zerolog.Disabled), zerolog.InfoLevel))

	c.Handle(context.Background(), testCode)
	assert.Zero(t, buf.Len())
}
