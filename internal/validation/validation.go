package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Nigerian mobile numbers: leading 0, operator prefix, 8 more digits.
var phoneRegex = regexp.MustCompile(`^0(70|80|81|90|91)\d{8}$`)

// networkCodes maps a recognized network name to the provider's identifier.
var networkCodes = map[string]int{
	"MTN":     1,
	"Glo":     2,
	"9mobile": 3,
	"Airtel":  4,
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidatedClaim is a claim that passed input validation.
type ValidatedClaim struct {
	Network      string
	NetworkCode  int
	MobileNumber string
}

// ValidateClaim checks a claim's network and phone number. Missing fields
// fail before any format check runs.
func ValidateClaim(network, mobileNumber string) (ValidatedClaim, error) {
	network = SanitizeString(network)
	mobileNumber = SanitizeString(mobileNumber)

	if network == "" {
		return ValidatedClaim{}, &ValidationError{
			Field:   "network",
			Message: "is required",
		}
	}
	if mobileNumber == "" {
		return ValidatedClaim{}, &ValidationError{
			Field:   "mobile_number",
			Message: "is required",
		}
	}

	name, code, ok := lookupNetwork(network)
	if !ok {
		return ValidatedClaim{}, &ValidationError{
			Field:   "network",
			Message: fmt.Sprintf("unknown network '%s', must be one of MTN, Glo, 9mobile, Airtel", network),
		}
	}

	if !phoneRegex.MatchString(mobileNumber) {
		return ValidatedClaim{}, &ValidationError{
			Field:   "mobile_number",
			Message: "must be an 11-digit Nigerian mobile number",
		}
	}

	return ValidatedClaim{
		Network:      name,
		NetworkCode:  code,
		MobileNumber: mobileNumber,
	}, nil
}

// lookupNetwork matches the network name case-insensitively against the
// fixed enumeration, returning the canonical name and provider code.
func lookupNetwork(network string) (string, int, bool) {
	for name, code := range networkCodes {
		if strings.EqualFold(name, network) {
			return name, code, true
		}
	}
	return "", 0, false
}

// SanitizeString strips control characters and surrounding whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}
