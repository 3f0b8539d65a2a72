package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
)

const (
	// Cross-user read grants for support tooling
	ReadTimelinePermission = "read:timeline"
	ReadMasteryPermission  = "read:mastery"

	// Admin permissions (for backward compatibility)
	AdminPermission   = "admin"
	ManagerPermission = "manager"
)

// HeaderUserID is set by the gateway after it verified the caller's
// credential. The service trusts it and does no further authentication.
const (
	HeaderUserID          = "X-User-ID"
	HeaderUserPermissions = "X-User-Permissions"
)

// CallerID returns the authenticated user the gateway forwarded.
func CallerID(c fiber.Ctx) string {
	return c.Get(HeaderUserID)
}

// CanActFor reports whether the caller may touch targetUserID's records:
// their own partition, a grant of the named permission, or an elevated role.
func CanActFor(c fiber.Ctx, targetUserID, permission string) bool {
	callerID := CallerID(c)
	if callerID != "" && callerID == targetUserID {
		return true
	}

	permissions := c.Get(HeaderUserPermissions)
	if permission != "" && strings.Contains(permissions, permission) {
		return true
	}
	return strings.Contains(permissions, AdminPermission) || strings.Contains(permissions, ManagerPermission)
}
