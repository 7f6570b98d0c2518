package oneid

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	tinPattern            = regexp.MustCompile(`^\d{9}$`)
	birthDateCompact      = regexp.MustCompile(`^\d{8}$`)
	birthDateISO          = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	validAuthMethods      = []string{AuthMethodLoginPassword, AuthMethodMobile, AuthMethodPKCS, AuthMethodLegalPKCS, AuthMethodQR}
	defaultRequiredFields = []string{"pin", "first_name", "sur_name", "mid_name"}
)

// ValidateAuthorizationCode checks the shape of a callback code: present and
// 10 to 500 characters.
func ValidateAuthorizationCode(code string) []string {
	return validateVar("code", code, "required,min=10,max=500")
}

// ValidateAccessToken checks the shape of an access token: present and 10
// to 1000 characters.
func ValidateAccessToken(token string) []string {
	return validateVar("access_token", token, "required,min=10,max=1000")
}

func validateVar(field, value, tag string) []string {
	err := getValidator().Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{fmt.Sprintf("The %s field is invalid.", field)}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("The %s field is required.", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("The %s field must be at least %s characters.", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("The %s field is invalid.", field))
		}
	}
	return msgs
}

// ValidateUserData checks a raw profile against OneID's documented schema.
// required lists keys that must be present and non-empty; nil selects the
// default set. The result is empty when the profile is valid.
func ValidateUserData(data map[string]any, required []string) []string {
	if required == nil {
		required = defaultRequiredFields
	}
	errs := make([]string, 0)

	for _, field := range required {
		if v, ok := data[field]; !ok || isEmpty(v) {
			errs = append(errs, fmt.Sprintf("Required field '%s' is missing or empty", field))
		}
	}

	if v, ok := present(data, "pin"); ok && !pinPattern.MatchString(stringify(v)) {
		errs = append(errs, "PIN must be exactly 14 digits")
	}
	if v, ok := present(data, "user_type"); ok && !oneOf(stringify(v), UserTypeIndividual, UserTypeLegalEntity) {
		errs = append(errs, "User type must be either I (Individual) or L (Legal entity)")
	}
	if v, ok := present(data, "auth_method"); ok && !oneOf(stringify(v), validAuthMethods...) {
		errs = append(errs, "Invalid authentication method")
	}
	if v, ok := present(data, "ret_cd"); ok && !oneOf(stringify(v), "0", "1") {
		errs = append(errs, "Return code must be 0 (success) or 1 (failure)")
	}
	if v, ok := present(data, "birth_date"); ok && !isEmpty(v) {
		s := stringify(v)
		if !birthDateCompact.MatchString(s) && !birthDateISO.MatchString(s) {
			errs = append(errs, "Birth date must be in YYYYMMDD or YYYY-MM-DD format")
		}
	}
	if entities, ok := data["legal_info"].([]any); ok {
		for i, raw := range entities {
			entity, _ := raw.(map[string]any)
			if !tinPattern.MatchString(stringify(entity["tin"])) {
				errs = append(errs, fmt.Sprintf("Legal entity #%d: TIN must be exactly 9 digits", i))
			}
			if isEmpty(entity["le_name"]) {
				errs = append(errs, fmt.Sprintf("Legal entity #%d: Legal entity name is required", i))
			}
		}
	}
	return errs
}

// ValidateUserData validates against the client's configured required fields.
func (c *Client) ValidateUserData(data map[string]any) []string {
	return ValidateUserData(data, c.cfg.RequiredFields)
}

// ConfigurationErrors validates the client's own configuration.
func (c *Client) ConfigurationErrors() []string {
	return c.cfg.Validate()
}

// Configured reports a usable configuration.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

// present returns the value for key when it exists and is not null.
func present(data map[string]any, key string) (any, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// isEmpty treats null, "", false and empty collections as empty.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}
