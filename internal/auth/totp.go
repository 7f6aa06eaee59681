package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// The admin panel's authenticator settings.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

func cleanSecret(secret string) string {
	return strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
}

// GenerateTOTP returns the current code for secret.
func GenerateTOTP(secret string) (string, error) {
	return GenerateTOTPAt(secret, time.Now())
}

// GenerateTOTPAt returns the code for secret valid at t.
func GenerateTOTPAt(secret string, t time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("totp secret cannot be empty")
	}
	passcode, err := totp.GenerateCodeCustom(cleanSecret(secret), t.UTC(), totpOpts)
	if err != nil {
		return "", fmt.Errorf("failed to generate totp code: %w", err)
	}
	return passcode, nil
}

func ValidateTOTP(passcode, secret string) (bool, error) {
	if secret == "" {
		return false, fmt.Errorf("totp secret cannot be empty")
	}
	if passcode == "" {
		return false, fmt.Errorf("passcode cannot be empty")
	}
	valid, err := totp.ValidateCustom(passcode, cleanSecret(secret), time.Now().UTC(), totpOpts)
	if err != nil {
		return false, fmt.Errorf("failed to validate totp code: %w", err)
	}
	return valid, nil
}
