package role

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// ErrUnknownRole is returned when a value does not name a known role.
var ErrUnknownRole = errors.New("unknown role")

// ErrUnknownPermission is returned when a value does not name a known permission.
var ErrUnknownPermission = errors.New("unknown permission")

// Role is the closed set of roles a principal can hold.
type Role string

const (
	Owner     Role = "owner"
	Admin     Role = "admin"
	Undefined Role = "undefined"
)

// Roles lists every known role, most privileged first.
var Roles = []Role{Owner, Admin, Undefined}

// Parse returns the Role named by s. Unknown names fail with ErrUnknownRole;
// there is no fallback role.
func Parse(s string) (Role, error) {
	switch Role(s) {
	case Owner, Admin, Undefined:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, err := Parse(string(r))
	return err == nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
	}
	return []byte(r), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Scan implements sql.Scanner. A stored value outside the known set is an
// error, never a silent downgrade.
func (r *Role) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return fmt.Errorf("%w: NULL", ErrUnknownRole)
	default:
		return fmt.Errorf("role: cannot scan %T", src)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
	}
	return string(r), nil
}

// GormDataType tells gorm to store roles as text.
func (Role) GormDataType() string {
	return "text"
}

// Permission is the closed set of capabilities a role can carry.
type Permission string

const (
	ConfigureSettings Permission = "configure_settings"
	InviteUsers       Permission = "invite_users"
	ViewAllActors     Permission = "view_all_actors"
)

// Permissions lists every known permission.
var Permissions = []Permission{ConfigureSettings, InviteUsers, ViewAllActors}

// ParsePermission returns the Permission named by s.
func ParsePermission(s string) (Permission, error) {
	switch Permission(s) {
	case ConfigureSettings, InviteUsers, ViewAllActors:
		return Permission(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
}

func (p Permission) String() string {
	return string(p)
}
