package helpers

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	otpMin = 100000
	otpMax = 999999

	// ResetTokenBytes is the entropy of a password reset exchange token.
	ResetTokenBytes = 32
)

var otpSpan = big.NewInt(otpMax - otpMin + 1)

// GenOTPCode draws a uniform 6-digit code in [100000, 999999] from crypto/rand.
func GenOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+otpMin), nil
}

// GenToken returns n random bytes, hex encoded.
func GenToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashSecret is the fast lookup digest for one-time codes and reset tokens.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// SecretEquals compares two digests in constant time.
func SecretEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
