package roles

import (
	"slices"

	"github.com/Skotchmaster/accounts/internal/models"
)

type Right string

const (
	GetUsers    Right = "getUsers"
	ManageUsers Right = "manageUsers"
)

var rights = map[string][]Right{
	models.RoleUser:  {},
	models.RoleAdmin: {GetUsers, ManageUsers},
}

// HasAll reports whether role holds every one of required.
func HasAll(role string, required ...Right) bool {
	granted := rights[role]
	for _, r := range required {
		if !slices.Contains(granted, r) {
			return false
		}
	}
	return true
}
