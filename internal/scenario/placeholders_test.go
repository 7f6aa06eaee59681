package scenario

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/copyleftdev/sablcheck/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVars() Vars {
	return Vars{
		AdminEmail:    "admin@example.org",
		AdminPassword: "secret",
		TOTPSecret:    "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ",
		FixturesDir:   "public",
		TOTP:          func(string) (string, error) { return "123456", nil },
	}
}

func TestResolve(t *testing.T) {
	v := testVars()
	tests := map[string]string{
		"plain":                       "plain",
		"{{admin.email}}":             "admin@example.org",
		"{{ admin.password }}":        "secret",
		"code {{admin.totp}}":         "code 123456",
		"{{fixtures}}/test_image.png": "public/test_image.png",
		"{{admin.path}}":              "/admin",
	}
	for in, want := range tests {
		got, err := v.Resolve(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestResolveErrors(t *testing.T) {
	v := testVars()
	_, err := v.Resolve("{{admin.name}}")
	assert.ErrorContains(t, err, "unknown placeholder")

	v.AdminPassword = ""
	_, err = v.Resolve("{{admin.password}}")
	assert.ErrorContains(t, err, "adminPassword")

	v.TOTP = func(string) (string, error) { return "", errors.New("totp secret cannot be empty") }
	_, err = v.Resolve("{{admin.totp}}")
	assert.Error(t, err)
}

func TestResolveTOTPDefault(t *testing.T) {
	v := testVars()
	v.TOTP = nil
	code, err := v.Resolve("{{admin.totp}}")
	require.NoError(t, err)
	assert.Len(t, code, 6)
}

func TestResolvePaths(t *testing.T) {
	v := testVars()
	paths, err := v.ResolvePaths([]string{"{{fixtures}}/test_image.png", "{{fixtures}}/../public/placeholder.svg"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("public", "test_image.png"),
		filepath.Join("public", "placeholder.svg"),
	}, paths)

	v.FixturesDir = ""
	paths, err = v.ResolvePaths([]string{"{{fixtures}}/a.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, paths)
}

func TestVarsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Target.AdminEmail = "a@b.c"
	v := VarsFromConfig(cfg.Target)
	assert.Equal(t, "a@b.c", v.AdminEmail)
	assert.Equal(t, "public", v.FixturesDir)

	cfg.Target.AdminPath = "/#/admin"
	got, err := VarsFromConfig(cfg.Target).Resolve("{{admin.path}}")
	require.NoError(t, err)
	assert.Equal(t, "/#/admin", got)
}
