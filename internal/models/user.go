package models

import "encoding/json"

// Roles
const (
	RoleAdmin  = "admin"
	RoleSeller = "vendedor"
)

// User is an entry of the remote users list
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UnmarshalJSON accepts the column names used by the different users sheets
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          flexString `json:"id"`
		Identifier  flexString `json:"identifier"`
		Username    flexString `json:"username"`
		User        flexString `json:"user"`
		DisplayName flexString `json:"displayName"`
		Password    flexString `json:"password"`
		Secret      flexString `json:"secret"`
		Role        flexString `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.ID = string(firstNonEmpty(raw.ID, raw.Identifier))
	u.Username = string(firstNonEmpty(raw.Username, raw.User, raw.DisplayName))
	u.Password = string(firstNonEmpty(raw.Password, raw.Secret))
	u.Role = string(raw.Role)
	return nil
}

func firstNonEmpty(values ...flexString) flexString {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// AuthUser is the session view of a User; it never carries the secret
type AuthUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (u AuthUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}
