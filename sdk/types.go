package oneid

// HandleRequest is the body of POST {prefix}/handle. State is optional and
// only checked when the login was started through RedirectURL.
type HandleRequest struct {
	Code  string `json:"code"`
	State string `json:"state,omitempty"`
}

type LogoutRequest struct {
	AccessToken string `json:"access_token"`
}

// AuthResult mirrors the gateway's login outcome.
type AuthResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Token   *string        `json:"token"`
	Status  *int           `json:"status"`
	Data    map[string]any `json:"data"`
	Error   *string        `json:"error"`
}

// PIN returns the national identifier from Data, or "".
func (r *AuthResult) PIN() string {
	s, _ := r.Data["pin"].(string)
	return s
}

type LogoutResult struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Status  *int    `json:"status"`
	Error   *string `json:"error"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	Configured bool   `json:"configured"`
}
