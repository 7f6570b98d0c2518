package oneid

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Handle runs the full login pipeline for an authorization code: exchange
// the code, fetch the profile, require the identifier field. It produces
// exactly one result and never retries across steps; codes are single-use.
func (c *Client) Handle(ctx context.Context, code string) AuthResult {
	if errs := ValidateAuthorizationCode(code); len(errs) > 0 {
		c.record(OpHandle, "OneID: Invalid authorization code", "code", code, errs)
		return authFailure("Invalid authorization code", nil, nil, joinMessages(errs))
	}

	tok, err := c.ExchangeCode(ctx, code)
	if err != nil {
		var oe *Error
		if errors.As(err, &oe) && oe.Kind == KindRejected {
			return authFailure("Could not obtain access token from OneID", intPtr(oe.StatusCode), nil, string(oe.Body))
		}
		return authFailure("Could not obtain access token from OneID", nil, nil, ErrTagTokenNull)
	}

	data, resp, ferr := c.fetchProfile(ctx, OpHandle, tok.AccessToken)
	if ferr != nil {
		c.recordProfileError(OpHandle, "Handle", "code", code, ferr)
		switch ferr.Kind {
		case KindTransport:
			return authFailure("Transport error while calling OneID handle endpoint", nil, nil, ferr.Err.Error())
		case KindRejected:
			return authFailure("OneID handle request failed", intPtr(ferr.StatusCode), nil, string(ferr.Body))
		default:
			return authFailure("Failed to parse OneID handle response", nil, nil, ferr.Err.Error())
		}
	}

	key := c.cfg.PINField
	if _, ok := data[key]; !ok {
		c.record(OpHandle, fmt.Sprintf("OneID: Handle payload missing '%s'", key), "code", code, string(resp.Body))
		return authFailure(fmt.Sprintf("OneID handle response is missing required '%s'", key),
			intPtr(resp.StatusCode), data, ErrTagMissingKey)
	}

	if unknown := c.unknownFields(data); len(unknown) > 0 {
		c.log.Debug().Str("operation", OpHandle).Strs("fields", unknown).Msg("OneID: Handle payload has undeclared fields")
	}

	accessToken := tok.AccessToken
	return AuthResult{
		Success: true,
		Message: "Authorized successfully",
		Token:   &accessToken,
		Status:  intPtr(resp.StatusCode),
		Data:    data,
	}
}

// Logout ends the provider session for accessToken. Rejections are reported,
// not retried.
func (c *Client) Logout(ctx context.Context, accessToken string) LogoutResult {
	if errs := ValidateAccessToken(accessToken); len(errs) > 0 {
		c.record(OpLogout, "OneID: Logout rejected invalid token", "token", accessToken, errs)
		detail := joinMessages(errs)
		return LogoutResult{Success: false, Message: "Invalid access token", Error: &detail}
	}

	resp, err := c.send(ctx, OpLogout, c.cfg.logoutRequest(accessToken))
	if err != nil {
		c.record(OpLogout, "OneID: Logout transport error", "token", accessToken, err.Error())
		detail := err.Error()
		return LogoutResult{Success: false, Message: "Failed to log out (transport error)", Error: &detail}
	}
	if !resp.IsSuccess() {
		c.record(OpLogout, "OneID: Logout rejected", "token", accessToken, rejection(resp))
		body := string(resp.Body)
		return LogoutResult{Success: false, Message: "Failed to log out", Status: intPtr(resp.StatusCode), Error: &body}
	}
	return LogoutResult{Success: true, Message: "Logged out successfully", Status: intPtr(resp.StatusCode)}
}

// unknownFields lists profile keys that are neither required nor optional.
func (c *Client) unknownFields(data map[string]any) []string {
	if len(c.cfg.OptionalFields) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(c.cfg.RequiredFields)+len(c.cfg.OptionalFields)+1)
	known[c.cfg.PINField] = struct{}{}
	for _, f := range c.cfg.RequiredFields {
		known[f] = struct{}{}
	}
	for _, f := range c.cfg.OptionalFields {
		known[f] = struct{}{}
	}
	var out []string
	for k := range data {
		if _, ok := known[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
