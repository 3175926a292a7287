package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Role is a coarse permission grouping.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Feature is an area of the application guarded by permissions.
type Feature string

const (
	FeatureDashboard      Feature = "dashboard"
	FeatureInventory      Feature = "inventory"
	FeatureInvestments    Feature = "investments"
	FeatureExpenses       Feature = "expenses"
	FeaturePartnership    Feature = "partnership"
	FeatureReports        Feature = "reports"
	FeatureUserManagement Feature = "user_management"
	FeatureDataExport     Feature = "data_export"
	FeatureDataReset      Feature = "data_reset"
)

var rolePermissions = map[Role][]Feature{
	RoleAdmin: {
		FeatureDashboard, FeatureInventory, FeatureInvestments, FeatureExpenses, FeaturePartnership,
		FeatureReports, FeatureUserManagement, FeatureDataExport, FeatureDataReset,
	},
	RoleManager: {
		FeatureDashboard, FeatureInventory, FeatureInvestments, FeatureExpenses, FeaturePartnership,
		FeatureReports, FeatureDataExport,
	},
	RoleUser: {
		FeatureDashboard, FeatureInventory, FeatureExpenses,
	},
}

// Allowed reports whether role grants feature.
func Allowed(role Role, feature Feature) bool {
	for _, f := range rolePermissions[role] {
		if f == feature {
			return true
		}
	}
	return false
}

// Permissions lists the features role grants.
func Permissions(role Role) []Feature {
	out := make([]Feature, len(rolePermissions[role]))
	copy(out, rolePermissions[role])
	return out
}

// AllUnits scopes a user to every business unit.
const AllUnits = "All"

// User represents an account able to sign in.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	Role         Role       `json:"role"`
	Unit         string     `json:"unit"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Principal is the authenticated actor attached to a request.
type Principal struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Unit     string `json:"unit"`
}

// Can reports whether the principal may use feature.
func (p Principal) Can(feature Feature) bool {
	return Allowed(p.Role, feature)
}

// CanAccessUnit reports whether the principal is scoped to unit. An empty
// unit means "every unit" and needs the All scope.
func (p Principal) CanAccessUnit(unit string) bool {
	if p.Role == RoleAdmin || strings.EqualFold(p.Unit, AllUnits) {
		return true
	}
	return unit != "" && p.Unit == unit
}

// Scope resolves the unit a query runs against: the requested unit, or the
// principal's own unit when none was requested.
func (p Principal) Scope(requested string) (string, error) {
	if requested == "" && !p.CanAccessUnit("") {
		return p.Unit, nil
	}
	if !p.CanAccessUnit(requested) {
		return "", fmt.Errorf("%w: unit %q", ErrUnitForbidden, requested)
	}
	return requested, nil
}

func principalOf(u User) Principal {
	return Principal{UserID: u.ID, Username: u.Username, Role: u.Role, Unit: u.Unit}
}

var (
	ErrUserNotFound   = fmt.Errorf("auth: user %w", shared.ErrNotFound)
	ErrUserExists     = fmt.Errorf("auth: username taken: %w", shared.ErrConflict)
	ErrInvalidRole    = fmt.Errorf("auth: role must be admin, manager or user: %w", shared.ErrValidation)
	ErrWeakPassword   = fmt.Errorf("auth: password must have at least 8 characters: %w", shared.ErrValidation)
	ErrUnitForbidden  = fmt.Errorf("auth: %w", shared.ErrForbidden)
	ErrFeatureDenied  = fmt.Errorf("auth: feature %w", shared.ErrForbidden)
	ErrSessionExpired = fmt.Errorf("auth: session expired: %w", shared.ErrInvalidCredentials)
)
