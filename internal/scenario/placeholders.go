package scenario

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/copyleftdev/sablcheck/internal/auth"
	"github.com/copyleftdev/sablcheck/internal/config"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Vars supplies the run-time values behind step placeholders. Credentials
// live in configuration, never in scenario definitions.
type Vars struct {
	AdminPath     string
	AdminEmail    string
	AdminPassword string
	TOTPSecret    string
	FixturesDir   string
	// TOTP generates the code for {{admin.totp}}; defaults to auth.GenerateTOTP.
	TOTP func(secret string) (string, error)
}

func VarsFromConfig(cfg config.TargetConfig) Vars {
	return Vars{
		AdminPath:     cfg.AdminPath,
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		TOTPSecret:    cfg.TOTPSecret,
		FixturesDir:   cfg.FixturesDir,
	}
}

func (v Vars) lookup(name string) (string, error) {
	switch name {
	case "admin.path":
		if v.AdminPath == "" {
			return DefaultAdminPath, nil
		}
		return v.AdminPath, nil
	case "admin.email":
		if v.AdminEmail == "" {
			return "", fmt.Errorf("target.adminEmail is not configured")
		}
		return v.AdminEmail, nil
	case "admin.password":
		if v.AdminPassword == "" {
			return "", fmt.Errorf("target.adminPassword is not configured")
		}
		return v.AdminPassword, nil
	case "admin.totp":
		gen := v.TOTP
		if gen == nil {
			gen = auth.GenerateTOTP
		}
		return gen(v.TOTPSecret)
	case "fixtures":
		if v.FixturesDir == "" {
			return ".", nil
		}
		return v.FixturesDir, nil
	}
	return "", fmt.Errorf("unknown placeholder {{%s}}", name)
}

// Resolve substitutes every {{name}} in s. TOTP codes are generated at call
// time, so resolve right before the value is used.
func (v Vars) Resolve(s string) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	var firstErr error
	out := placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		val, err := v.lookup(name)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// ResolvePaths resolves placeholders in upload paths and cleans them.
func (v Vars) ResolvePaths(paths []string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		r, err := v.Resolve(p)
		if err != nil {
			return nil, err
		}
		out[i] = filepath.Clean(r)
	}
	return out, nil
}
