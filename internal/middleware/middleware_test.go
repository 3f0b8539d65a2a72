package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
)

func requestStatus(t *testing.T, callerID, permissions, targetUserID, permission string) int {
	t.Helper()

	app := fiber.New()
	app.Get("/records/:userID", func(c fiber.Ctx) error {
		if !CanActFor(c, c.Params("userID"), permission) {
			return c.SendStatus(fiber.StatusForbidden)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/records/"+targetUserID, nil)
	if callerID != "" {
		req.Header.Set(HeaderUserID, callerID)
	}
	if permissions != "" {
		req.Header.Set(HeaderUserPermissions, permissions)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode
}

func TestCanActFor(t *testing.T) {
	tests := []struct {
		name        string
		callerID    string
		permissions string
		target      string
		permission  string
		expected    int
	}{
		{
			name:       "Own partition",
			callerID:   "user-1",
			target:     "user-1",
			permission: ReadTimelinePermission,
			expected:   fiber.StatusOK,
		},
		{
			name:       "Other user without grants",
			callerID:   "user-1",
			target:     "user-2",
			permission: ReadTimelinePermission,
			expected:   fiber.StatusForbidden,
		},
		{
			name:        "Named permission grant",
			callerID:    "support-1",
			permissions: ReadTimelinePermission,
			target:      "user-2",
			permission:  ReadTimelinePermission,
			expected:    fiber.StatusOK,
		},
		{
			name:        "Grant for a different resource",
			callerID:    "support-1",
			permissions: ReadMasteryPermission,
			target:      "user-2",
			permission:  ReadTimelinePermission,
			expected:    fiber.StatusForbidden,
		},
		{
			name:        "Admin override",
			callerID:    "admin-1",
			permissions: AdminPermission,
			target:      "user-2",
			permission:  ReadMasteryPermission,
			expected:    fiber.StatusOK,
		},
		{
			name:        "Manager override",
			callerID:    "manager-1",
			permissions: ManagerPermission,
			target:      "user-2",
			permission:  ReadTimelinePermission,
			expected:    fiber.StatusOK,
		},
		{
			name:       "Missing identity",
			target:     "user-2",
			permission: ReadTimelinePermission,
			expected:   fiber.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := requestStatus(t, tt.callerID, tt.permissions, tt.target, tt.permission)
			if got != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, got)
			}
		})
	}
}
