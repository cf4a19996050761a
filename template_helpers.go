package forgeauth

import (
	"errors"
	"net/mail"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"
)

var TemplateAccountKey = "current_account"

// TemplateHelpers returns helper functions for view engines rendering the
// login and registration pages.
//
// In templates:
//
//	{% if current_account %}
//	{% if record|field_error:"email" %}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
	}
}

// TemplateHelpersWithAccount returns template helpers with a specific
// account set as current_account.
func TemplateHelpersWithAccount(account *Account) map[string]any {
	helpers := TemplateHelpers()
	if account != nil {
		helpers[TemplateAccountKey] = account
	}
	return helpers
}

// GetTemplateAccount pulls the current account the middleware stored in the
// router context locals.
func GetTemplateAccount(ctx router.Context, key string) (any, bool) {
	if key == "" {
		key = TemplateAccountKey
	}

	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	return raw, true
}

func isAuthenticated(value any) bool {
	switch v := value.(type) {
	case *Account:
		return v != nil
	case Session:
		return v != nil && v.GetAccountID() != ""
	default:
		return false
	}
}

// splitIdentifier routes a single form field into the username/email pair
// Login expects. Anything that parses as an address is treated as email.
func splitIdentifier(identifier string) (username, email string) {
	identifier = strings.TrimSpace(identifier)
	if _, err := mail.ParseAddress(identifier); err == nil {
		return "", identifier
	}
	return identifier, ""
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map views can render next to inputs.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidatePhoneNumber accepts empty values and otherwise requires a number
// that parses and validates for the given default region.
func ValidatePhoneNumber(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if _, err := NormalizePhone(s, region); err != nil {
			return errors.New("must be a valid phone number")
		}
		return nil
	}
}

// NormalizePhone parses a raw phone number and returns it in E.164 form.
func NormalizePhone(raw, region string) (string, error) {
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", err
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("invalid phone number")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
