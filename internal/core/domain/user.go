package domain

import "time"

// Role is the fixed set of account roles. Each role owns a static set of
// permissions; there is no runtime role administration.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Permission is a single fine-grained authority owned by a role.
type Permission string

const (
	PermAdminRead   Permission = "admin:read"
	PermAdminCreate Permission = "admin:create"
	PermAdminUpdate Permission = "admin:update"
	PermAdminDelete Permission = "admin:delete"
	PermUserRead    Permission = "user:read"
	PermUserCreate  Permission = "user:create"
	PermUserUpdate  Permission = "user:update"
	PermUserDelete  Permission = "user:delete"
)

// rolePermissions is the static Role → Permission table. Admins hold the
// full user permission set in addition to their own.
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermAdminRead, PermAdminCreate, PermAdminUpdate, PermAdminDelete,
		PermUserRead, PermUserCreate, PermUserUpdate, PermUserDelete,
	},
	RoleUser: {
		PermUserRead, PermUserCreate, PermUserUpdate, PermUserDelete,
	},
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permissions returns the static permission set for the role.
func (r Role) Permissions() []Permission {
	perms := rolePermissions[r]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// Authorities returns the authority strings granted to the role: every
// permission string plus a "ROLE_<NAME>" marker.
func (r Role) Authorities() []string {
	perms := rolePermissions[r]
	out := make([]string, 0, len(perms)+1)
	for _, p := range perms {
		out = append(out, string(p))
	}
	return append(out, "ROLE_"+string(r))
}

// User models an account in the workshop backend. Accounts are created
// disabled and become enabled once email verification completes. Deletion is
// a soft delete; physically purging flagged rows is the purge sweeper's job.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstname"`
	LastName     string    `json:"lastname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Enabled      bool      `json:"enabled"`
	MobileNumber string    `json:"mobile_number,omitempty"`
	DateOfBirth  string    `json:"date_of_birth,omitempty"`
	Address      string    `json:"address,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Email verification state, set at registration and on resend.
	VerificationCode      string    `json:"-"`
	VerificationExpiresAt time.Time `json:"-"`

	// Password reset state, set by the forgot-password flow.
	ResetCode      string    `json:"-"`
	ResetExpiresAt time.Time `json:"-"`

	Deleted   bool      `json:"-"`
	DeletedAt time.Time `json:"-"`
}

// FullName returns the display name used in outbound email.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Principal is the authenticated identity the gate attaches to a request.
// It travels explicitly on the request context rather than in any ambient
// global state.
type Principal struct {
	UserID      string
	Email       string
	Role        Role
	Authorities []string
	RemoteIP    string
}

// HasAuthority reports whether the principal holds the given authority string.
func (p Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}
