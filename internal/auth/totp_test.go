package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 6238 test secret ("12345678901234567890") in base32.
const testSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestGenerateTOTPAt(t *testing.T) {
	code, err := GenerateTOTPAt(testSecret, time.Unix(59, 0))
	require.NoError(t, err)
	assert.Equal(t, "287082", code)

	spaced, err := GenerateTOTPAt("gezd gnbv gy3t qojq gezd gnbv gy3t qojq", time.Unix(59, 0))
	require.NoError(t, err)
	assert.Equal(t, code, spaced)
}

func TestGenerateAndValidate(t *testing.T) {
	code, err := GenerateTOTP(testSecret)
	require.NoError(t, err)
	assert.Len(t, code, 6)

	ok, err := ValidateTOTP(code, testSecret)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTOTPErrors(t *testing.T) {
	_, err := GenerateTOTP("")
	assert.Error(t, err)

	_, err = ValidateTOTP("", testSecret)
	assert.Error(t, err)

	_, err = ValidateTOTP("123456", "")
	assert.Error(t, err)

	_, err = GenerateTOTP("not base32!")
	assert.Error(t, err)
}
