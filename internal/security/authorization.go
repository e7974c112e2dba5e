package security

import (
	"fmt"
	"log/slog"

	"github.com/yourorg/siteops/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermManageSites     Permission = "manage_sites"
	PermManageTickets   Permission = "manage_tickets"
	PermManageCrew      Permission = "manage_crew"
	PermManageMaterials Permission = "manage_materials"
	PermManageUsers     Permission = "manage_users"
	PermWriteLogs       Permission = "write_logs"
	PermToggleChecks    Permission = "toggle_checks"
	PermComment         Permission = "comment"
	PermViewSnapshot    Permission = "view_snapshot"
)

// RolePermissions maps roles to their permissions. Admins and managers
// run the operational side; workers interact with site logs only.
var RolePermissions = map[string][]Permission{
	domain.RoleAdmin: {
		PermManageSites,
		PermManageTickets,
		PermManageCrew,
		PermManageMaterials,
		PermManageUsers,
		PermWriteLogs,
		PermToggleChecks,
		PermComment,
		PermViewSnapshot,
	},
	domain.RoleManager: {
		PermManageSites,
		PermManageTickets,
		PermManageCrew,
		PermManageMaterials,
		PermWriteLogs,
		PermToggleChecks,
		PermComment,
		PermViewSnapshot,
	},
	domain.RoleWorker: {
		PermWriteLogs,
		PermToggleChecks,
		PermComment,
		PermViewSnapshot,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role string, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission validates that a role has a specific permission
func (as *AuthorizationService) ValidatePermission(role string, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", role),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("permission denied: %s role cannot %s", role, permission)
	}
	return nil
}

// GetRolePermissions returns all permissions for a role
func (as *AuthorizationService) GetRolePermissions(role string) []Permission {
	return RolePermissions[role]
}
