package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	// RoleOperator is platform staff; not bound to a school and must name one explicitly.
	RoleOperator    UserRole = "OPERATOR"
	RoleSchoolAdmin UserRole = "SCHOOL_ADMIN"
	RoleProfessor   UserRole = "PROFESSOR"
	RoleStudent     UserRole = "STUDENT"
)

// TenantBound reports whether the role carries its own school.
func (r UserRole) TenantBound() bool {
	return r != RoleOperator
}

// JWTClaims are the authenticated identity attached to each request.
// Token issuance happens upstream; this service only validates.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	SchoolID string   `json:"school_id,omitempty"`
	jwt.RegisteredClaims
}
