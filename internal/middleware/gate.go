package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ProtectedPagePrefixes are the page routes that need a signed-in visitor.
var ProtectedPagePrefixes = []string{"/new-story", "/messages", "/teams", "/settings"}

// GateConfig configures RouteGate.
type GateConfig struct {
	// CookieName is the session credential cookie.
	CookieName string
	// Protected lists path prefixes; a prefix matches itself and anything below "prefix/".
	Protected []string
	// LoginPath is where visitors without a credential are sent.
	LoginPath string
}

// RouteGate redirects requests for protected pages to the login page when no
// credential cookie is present. The cookie's validity is not checked here; pages
// resolve the user themselves and treat an unresolvable credential as anonymous.
func RouteGate(cfg GateConfig) fiber.Handler {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.Protected == nil {
		cfg.Protected = ProtectedPagePrefixes
	}

	return func(c *fiber.Ctx) error {
		if !IsProtectedPath(c.Path(), cfg.Protected) {
			return c.Next()
		}
		if c.Cookies(cfg.CookieName) != "" {
			return c.Next()
		}
		return c.Redirect(cfg.LoginPath, fiber.StatusFound)
	}
}

// IsProtectedPath reports whether path falls under one of prefixes.
func IsProtectedPath(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
