package auth

import (
	"strings"
	"unicode"

	"github.com/sstoianov/liblend/internal/common"
)

// ValidatePassword enforces the sign-up password policy. Each rule
// reports its own reason so the client can tell the user what to fix.
func ValidatePassword(password string) error {
	switch {
	case len(password) < 8:
		return common.Validation("password must be at least 8 characters long")
	case !strings.ContainsFunc(password, unicode.IsLower):
		return common.Validation("password must contain at least one lowercase character")
	case !strings.ContainsFunc(password, unicode.IsUpper):
		return common.Validation("password must contain at least one uppercase character")
	case !strings.ContainsFunc(password, unicode.IsDigit):
		return common.Validation("password must contain at least one number")
	default:
		return nil
	}
}

// ValidateEmail accepts addresses of the form user@host.tld where both
// sides consist of alphanumerics plus '.', '-', '_' and contain no "..".
func ValidateEmail(email string) error {
	if validEmail(email) {
		return nil
	}
	return common.Validation("unsupported email address")
}

func validEmail(email string) bool {
	if len(email) > 50 {
		return false
	}
	username, domain, ok := strings.Cut(email, "@")
	if !ok || !strings.Contains(domain, ".") {
		return false
	}
	for _, part := range []string{username, domain} {
		if strings.Contains(part, "..") {
			return false
		}
		for _, c := range part {
			if unicode.IsLetter(c) || unicode.IsDigit(c) {
				continue
			}
			if c != '.' && c != '-' && c != '_' {
				return false
			}
		}
	}
	return true
}

// ValidateName bounds display names; an empty name is fine.
func ValidateName(name string) error {
	if len(name) > 50 {
		return common.Validation("name is too long")
	}
	return nil
}
