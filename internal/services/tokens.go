package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

const (
	checkInTokenBytes = 32
	refreshTokenBytes = 32
	otpDigits         = 6
)

var otpSpace = big.NewInt(1_000_000)

// generateToken returns n random bytes encoded as unpadded base64url.
func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// generateOTP returns a zero-padded numeric code of otpDigits digits.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// otpMatches compares code against a stored hash that is still valid at now.
func otpMatches(storedHash string, expiresAt *time.Time, code string, now time.Time) bool {
	if storedHash == "" || code == "" || expiresAt == nil || !now.Before(*expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(hashToken(code))) == 1
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func pngDataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
