package helpers

import (
	"crypto/rand"
	"encoding/base32"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTP helpers. Each user gets a base32 secret at registration; the
// secret is shown once during enrollment and verified on every login.

const (
	totpPeriod = 30 // seconds per step
	totpSkew   = 1  // accept codes from one adjacent step either side
	totpDigits = otp.DigitsSix
)

// NewTOTPSecret generates a random 20-byte secret encoded as base32
// without padding, the format authenticator apps expect.
func NewTOTPSecret() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b), nil
}

// ProvisioningURI builds the otpauth:// enrollment URI rendered as a QR
// code by the front end. Label is the user's email, issuer the service
// name.
func ProvisioningURI(email, secret, issuer string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("period", "30")
	v.Set("digits", "6")
	v.Set("algorithm", "SHA1")
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + email,
		RawQuery: v.Encode(),
	}
	return u.String()
}

// VerifyTOTP checks a 6-digit code against the secret at the given
// time. Codes from the previous and next 30s step are accepted (skew 1)
// to tolerate clock drift.
func VerifyTOTP(secret, code string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// GenerateTOTP produces the current code for a secret. Used by tests
// and the seed tool, never by the login path.
func GenerateTOTP(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
}
