package enums

import "fmt"

// UserRole distinguishes regular marketplace users from platform admins.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

var validUserRoles = []UserRole{UserRoleUser, UserRoleAdmin}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	for _, valid := range validUserRoles {
		if r == valid {
			return true
		}
	}
	return false
}

// ParseUserRole converts a raw string into a UserRole.
func ParseUserRole(raw string) (UserRole, error) {
	role := UserRole(raw)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", raw)
	}
	return role, nil
}
