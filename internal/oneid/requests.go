package oneid

import (
	"net/http"
	"net/url"

	"github.com/gsarma/oneid/internal/httpclient"
)

// Provider literals for each flow variant.
const (
	ResponseTypeCode             = "one_code"
	GrantTypeAuthorizationCode   = "one_authorization_code"
	GrantTypeAccessTokenIdentify = "one_access_token_identify"
	GrantTypeLogOut              = "one_log_out"
)

func (c ProviderConfig) tokenRequest(code string) httpclient.Request {
	return httpclient.Request{
		Method: http.MethodPost,
		Path:   c.Endpoints.Token,
		Query: url.Values{
			"grant_type":    {GrantTypeAuthorizationCode},
			"client_id":     {c.ClientID},
			"client_secret": {c.ClientSecret},
			"redirect_uri":  {c.RedirectURI},
			"code":          {code},
		},
	}
}

func (c ProviderConfig) handleRequest(accessToken string) httpclient.Request {
	return httpclient.Request{
		Method: http.MethodPost,
		Path:   c.Endpoints.UserInfo,
		Query: url.Values{
			"grant_type":    {GrantTypeAccessTokenIdentify},
			"client_id":     {c.ClientID},
			"client_secret": {c.ClientSecret},
			"scope":         {c.Scope},
			"redirect_uri":  {c.RedirectURI},
			"access_token":  {accessToken},
		},
	}
}

func (c ProviderConfig) logoutRequest(accessToken string) httpclient.Request {
	return httpclient.Request{
		Method: http.MethodPost,
		Path:   c.Endpoints.Logout,
		Query: url.Values{
			"grant_type":    {GrantTypeLogOut},
			"client_id":     {c.ClientID},
			"client_secret": {c.ClientSecret},
			"scope":         {c.Scope},
			"access_token":  {accessToken},
		},
	}
}
