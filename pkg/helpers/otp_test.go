package helpers

import (
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestGenOTPCode_FormatAndRange(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 2000; i++ {
		code, err := GenOTPCode()
		require.NoError(t, err)
		require.Regexp(t, sixDigits, code)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, otpMin)
		assert.LessOrEqual(t, n, otpMax)
		seen[code] = struct{}{}
	}
	// 2000 draws over 900000 values; collisions are possible but rare.
	assert.Greater(t, len(seen), 1900)
}

func TestGenOTPCode_SpreadsAcrossLeadingDigits(t *testing.T) {
	buckets := make(map[byte]int)
	for i := 0; i < 9000; i++ {
		code, err := GenOTPCode()
		require.NoError(t, err)
		buckets[code[0]]++
	}
	for d := byte('1'); d <= '9'; d++ {
		assert.Greater(t, buckets[d], 700, "leading digit %c underrepresented", d)
	}
	assert.Zero(t, buckets['0'])
}

func TestGenToken(t *testing.T) {
	a, err := GenToken(ResetTokenBytes)
	require.NoError(t, err)
	b, err := GenToken(ResetTokenBytes)
	require.NoError(t, err)

	assert.Len(t, a, 2*ResetTokenBytes)
	assert.Regexp(t, `^[0-9a-f]+$`, a)
	assert.NotEqual(t, a, b)
}

func TestHashSecret(t *testing.T) {
	h := HashSecret("123456")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashSecret("123456"))
	assert.NotEqual(t, h, HashSecret("123457"))
	assert.NotContains(t, h, "123456")

	assert.True(t, SecretEquals(h, HashSecret("123456")))
	assert.False(t, SecretEquals(h, HashSecret("654321")))
	assert.False(t, SecretEquals(h, ""))
}
