// Package phone normalizes the mobile numbers used for GCash payouts.
package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Region is the default region for numbers written without a country code
const Region = "PH"

var (
	// ErrEmpty is returned for a blank number
	ErrEmpty = errors.New("phone number cannot be empty")
	// ErrInvalid is returned when the number cannot be dialed
	ErrInvalid = errors.New("invalid phone number")
	// ErrNotPHMobile is returned for valid numbers that are not Philippine mobiles
	ErrNotPHMobile = errors.New("GCash requires a Philippine mobile number")
)

// NormalizeGCash parses a GCash number such as "0917 123 4567" or
// "+63 917 123 4567" and returns it in E.164 format.
func NormalizeGCash(number string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", ErrEmpty
	}

	parsed, err := phonenumbers.Parse(number, Region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", ErrInvalid
	}
	if phonenumbers.GetRegionCodeForNumber(parsed) != Region {
		return "", ErrNotPHMobile
	}

	switch phonenumbers.GetNumberType(parsed) {
	case phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE:
	default:
		return "", ErrNotPHMobile
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
