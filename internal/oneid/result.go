package oneid

import "strings"

// Error tags carried in AuthResult.Error for pipeline short-circuits.
const (
	ErrTagTokenNull  = "token_null"
	ErrTagMissingKey = "missing_key"
)

// AuthResult is the outcome of Handle. When Success is true, Data is non-nil
// and contains the configured identifier field.
type AuthResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Token   *string        `json:"token"`
	Status  *int           `json:"status"`
	Data    map[string]any `json:"data"`
	Error   *string        `json:"error"`
}

// Profile decodes Data into a typed record. It returns nil for failed results.
func (r AuthResult) Profile() *UserProfile {
	if !r.Success || r.Data == nil {
		return nil
	}
	p, err := DecodeProfile(r.Data)
	if err != nil {
		return nil
	}
	return p
}

// PIN returns the national identifier, or "" when absent.
func (r AuthResult) PIN() string {
	return stringify(r.Data["pin"])
}

// FullName returns the provider's full_name field, or "" when absent.
func (r AuthResult) FullName() string {
	return stringify(r.Data["full_name"])
}

// IsValidUser reports a successful result whose profile has a PIN and both names.
func (r AuthResult) IsValidUser() bool {
	if !r.Success || r.Data == nil {
		return false
	}
	for _, field := range []string{"pin", "first_name", "sur_name"} {
		if isEmpty(r.Data[field]) {
			return false
		}
	}
	return true
}

// Mapped renames profile keys to application names using mapping
// (application name -> provider key). Keys absent from Data are skipped.
func (r AuthResult) Mapped(mapping map[string]string) map[string]any {
	out := make(map[string]any, len(mapping))
	for name, key := range mapping {
		if v, ok := r.Data[key]; ok {
			out[name] = v
		}
	}
	return out
}

// MappedProfile applies the configured field mapping to a result.
func (c *Client) MappedProfile(r AuthResult) map[string]any {
	return r.Mapped(c.cfg.FieldMapping)
}

// LogoutResult is the outcome of Logout.
type LogoutResult struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Status  *int    `json:"status"`
	Error   *string `json:"error"`
}

func authFailure(message string, status *int, data map[string]any, detail string) AuthResult {
	return AuthResult{
		Success: false,
		Message: message,
		Status:  status,
		Data:    data,
		Error:   &detail,
	}
}

func intPtr(v int) *int { return &v }

func joinMessages(msgs []string) string {
	return strings.Join(msgs, "; ")
}
