package model

import "strings"

// RoleAdmin is the role claim granting back-office access
const RoleAdmin = "Admin"

// UserSummary is what the backend reports about the token holder
type UserSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the role claim grants admin access
func (u UserSummary) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(u.Role), RoleAdmin)
}
