package oneid

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Authentication methods reported in auth_method.
const (
	AuthMethodLoginPassword = "LOGINPASSMETHOD"
	AuthMethodMobile        = "MOBILEMETHOD"
	AuthMethodPKCS          = "PKCSMETHOD"
	AuthMethodLegalPKCS     = "LEPKCSMETHOD"
	AuthMethodQR            = "QR"
)

// User types reported in user_type.
const (
	UserTypeIndividual  = "I"
	UserTypeLegalEntity = "L"
)

var pinPattern = regexp.MustCompile(`^\d{14}$`)

// LegalEntity is one organisation the user may act for.
type LegalEntity struct {
	IsBasic bool   `json:"is_basic"`
	TIN     string `json:"tin"`
	Acronym string `json:"acron_UZ"`
	LETIN   string `json:"le_tin"`
	Name    string `json:"le_name"`
}

func (l *LegalEntity) UnmarshalJSON(b []byte) error {
	var w struct {
		IsBasic flexBool   `json:"is_basic"`
		TIN     flexString `json:"tin"`
		Acronym flexString `json:"acron_UZ"`
		LETIN   flexString `json:"le_tin"`
		Name    flexString `json:"le_name"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*l = LegalEntity{
		IsBasic: w.IsBasic.value(),
		TIN:     string(w.TIN),
		Acronym: string(w.Acronym),
		LETIN:   string(w.LETIN),
		Name:    string(w.Name),
	}
	return nil
}

// UserProfile is the typed view of a OneID profile. Every field is optional;
// keys OneID sends that are not modelled here are kept in Extra.
type UserProfile struct {
	Valid            *bool
	ValidationMethod []string
	PIN              string
	UserID           string
	FullName         string
	PassportNo       string
	BirthDate        string
	SurName          string
	FirstName        string
	MidName          string
	UserType         string
	SessionID        string
	RetCode          string
	AuthMethod       string
	PKCSLegalTIN     string
	LegalInfo        []LegalEntity
	Extra            map[string]any
}

var profileKeys = map[string]struct{}{
	"valid": {}, "validation_method": {}, "pin": {}, "user_id": {}, "full_name": {},
	"pport_no": {}, "birth_date": {}, "sur_name": {}, "first_name": {}, "mid_name": {},
	"user_type": {}, "sess_id": {}, "ret_cd": {}, "auth_method": {}, "pkcs_legal_tin": {},
	"legal_info": {},
}

func (p *UserProfile) UnmarshalJSON(b []byte) error {
	var w struct {
		Valid            flexBool      `json:"valid"`
		ValidationMethod flexStrings   `json:"validation_method"`
		PIN              flexString    `json:"pin"`
		UserID           flexString    `json:"user_id"`
		FullName         flexString    `json:"full_name"`
		PassportNo       flexString    `json:"pport_no"`
		BirthDate        flexString    `json:"birth_date"`
		SurName          flexString    `json:"sur_name"`
		FirstName        flexString    `json:"first_name"`
		MidName          flexString    `json:"mid_name"`
		UserType         flexString    `json:"user_type"`
		SessionID        flexString    `json:"sess_id"`
		RetCode          flexString    `json:"ret_cd"`
		AuthMethod       flexString    `json:"auth_method"`
		PKCSLegalTIN     flexString    `json:"pkcs_legal_tin"`
		LegalInfo        []LegalEntity `json:"legal_info"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}

	*p = UserProfile{
		ValidationMethod: []string(w.ValidationMethod),
		PIN:              string(w.PIN),
		UserID:           string(w.UserID),
		FullName:         string(w.FullName),
		PassportNo:       string(w.PassportNo),
		BirthDate:        string(w.BirthDate),
		SurName:          string(w.SurName),
		FirstName:        string(w.FirstName),
		MidName:          string(w.MidName),
		UserType:         string(w.UserType),
		SessionID:        string(w.SessionID),
		RetCode:          string(w.RetCode),
		AuthMethod:       string(w.AuthMethod),
		PKCSLegalTIN:     string(w.PKCSLegalTIN),
		LegalInfo:        w.LegalInfo,
	}
	if w.Valid.set {
		v := w.Valid.v
		p.Valid = &v
	}
	for k, v := range raw {
		if _, known := profileKeys[k]; known {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = v
	}
	return nil
}

// DecodeProfile converts a raw profile mapping into a UserProfile.
func DecodeProfile(data map[string]any) (*UserProfile, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	var p UserProfile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// IsVerified reports a validated account with at least one validation method.
func (p *UserProfile) IsVerified() bool {
	return p.Valid != nil && *p.Valid && len(p.ValidationMethod) > 0
}

func (p *UserProfile) IsIndividual() bool  { return p.UserType == UserTypeIndividual }
func (p *UserProfile) IsLegalEntity() bool { return p.UserType == UserTypeLegalEntity }

// IsAuthorized reports ret_cd "0", OneID's success code.
func (p *UserProfile) IsAuthorized() bool { return p.RetCode == "0" }

// HasValidPIN reports a 14-digit PIN.
func (p *UserProfile) HasValidPIN() bool { return pinPattern.MatchString(p.PIN) }

// BasicLegalEntity returns the entity flagged is_basic, else the first one.
func (p *UserProfile) BasicLegalEntity() (LegalEntity, bool) {
	for _, e := range p.LegalInfo {
		if e.IsBasic {
			return e, true
		}
	}
	if len(p.LegalInfo) > 0 {
		return p.LegalInfo[0], true
	}
	return LegalEntity{}, false
}

// DisplayName prefers full_name and falls back to "surname first middle".
func (p *UserProfile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return strings.Join(strings.Fields(p.SurName+" "+p.FirstName+" "+p.MidName), " ")
}

// ParsedBirthDate parses birth_date in either YYYYMMDD or YYYY-MM-DD form.
func (p *UserProfile) ParsedBirthDate() (time.Time, bool) {
	var layout string
	switch len(p.BirthDate) {
	case 8:
		layout = "20060102"
	case 10:
		layout = time.DateOnly
	default:
		return time.Time{}, false
	}
	t, err := time.Parse(layout, p.BirthDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AuthMethodName is a human-readable label for AuthMethod.
func (p *UserProfile) AuthMethodName() string {
	return authMethodName(p.AuthMethod)
}

// ValidationMethodNames labels each entry of ValidationMethod.
func (p *UserProfile) ValidationMethodNames() []string {
	names := make([]string, 0, len(p.ValidationMethod))
	for _, m := range p.ValidationMethod {
		switch m {
		case AuthMethodPKCS, AuthMethodMobile:
			names = append(names, authMethodName(m))
		default:
			names = append(names, "Unknown method")
		}
	}
	return names
}

func authMethodName(m string) string {
	switch m {
	case AuthMethodLoginPassword:
		return "Login and password"
	case AuthMethodMobile:
		return "Mobile-ID"
	case AuthMethodPKCS:
		return "Digital signature"
	case AuthMethodLegalPKCS:
		return "Legal entity digital signature"
	case AuthMethodQR:
		return "QR code"
	default:
		return "Unknown method"
	}
}

// flexString accepts a JSON string, number or bool. OneID is not consistent
// about quoting numeric codes.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = flexString(stringify(v))
	return nil
}

type flexBool struct {
	v   bool
	set bool
}

func (f *flexBool) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		f.v = t
	case string:
		f.v = strings.EqualFold(t, "true") || t == "1"
	case float64:
		f.v = t != 0
	default:
		return fmt.Errorf("cannot use %T as bool", v)
	}
	f.set = true
	return nil
}

func (f flexBool) value() bool { return f.set && f.v }

// flexStrings accepts either a list of strings or a single string.
type flexStrings []string

func (s *flexStrings) UnmarshalJSON(b []byte) error {
	var list []any
	if err := json.Unmarshal(b, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			out = append(out, stringify(v))
		}
		*s = out
		return nil
	}
	var one any
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	if one == nil || stringify(one) == "" {
		*s = nil
		return nil
	}
	*s = []string{stringify(one)}
	return nil
}

// stringify renders scalar JSON values as text; nil and composites become "".
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	default:
		return ""
	}
}
