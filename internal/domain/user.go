package domain

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"
)

// Permission gates one area of the application.
type Permission string

const (
	PermDashboard Permission = "dashboard"
	PermClients   Permission = "clients"
	PermProducts  Permission = "products"
	PermOrders    Permission = "orders"
	PermRuns      Permission = "ops"
	PermKanban    Permission = "kanban"
	PermFinance   Permission = "finance"
	PermReports   Permission = "reports"
	PermConfig    Permission = "config"
)

// AllPermissions lists every permission.
func AllPermissions() []Permission {
	return []Permission{PermDashboard, PermClients, PermProducts, PermOrders, PermRuns, PermKanban, PermFinance, PermReports, PermConfig}
}

// Role is a named permission bundle.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleProduction Role = "production"
	RoleSales      Role = "sales"
	RoleViewer     Role = "viewer"
)

var rolePermissions = map[Role][]Permission{
	RoleAdmin:      AllPermissions(),
	RoleProduction: {PermDashboard, PermRuns, PermKanban, PermReports},
	RoleSales:      {PermDashboard, PermClients, PermProducts, PermOrders, PermReports},
	RoleViewer:     {PermDashboard, PermReports},
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// DefaultPermissions returns the permission bundle for r.
func (r Role) DefaultPermissions() []Permission {
	return slices.Clone(rolePermissions[r])
}

// UserStatus enables or disables login.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// User is an operator account. PasswordHash never leaves the process.
type User struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone,omitempty"`
	Role         Role         `json:"role"`
	Permissions  []Permission `json:"permissions"`
	Status       UserStatus   `json:"status"`
	PasswordHash string       `json:"password_hash,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Can reports whether the user holds perm. Admins hold everything.
func (u User) Can(perm Permission) bool {
	if u.Role == RoleAdmin {
		return true
	}
	return slices.Contains(u.Permissions, perm)
}

// Active reports whether the user may log in.
func (u User) Active() bool {
	return u.Status == UserActive
}

// Public strips the password hash.
func (u User) Public() User {
	u.PasswordHash = ""
	u.Permissions = slices.Clone(u.Permissions)
	return u
}

// NormalizeEmail lower-cases and validates an email address.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, raw)
	}
	return email, nil
}

// NormalizePermissions filters unknown permissions and falls back to the role bundle.
func NormalizePermissions(role Role, in []Permission) []Permission {
	known := AllPermissions()
	out := make([]Permission, 0, len(in))
	for _, perm := range in {
		perm = Permission(strings.ToLower(strings.TrimSpace(string(perm))))
		if !slices.Contains(known, perm) || slices.Contains(out, perm) {
			continue
		}
		out = append(out, perm)
	}
	if len(out) == 0 {
		return role.DefaultPermissions()
	}
	return out
}
