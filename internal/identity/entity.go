// AngelaMos | 2026
// entity.go

package identity

import (
	"context"
	"time"

	"github.com/carterperez-dev/eventhub/internal/middleware"
)

type Role string

const (
	RoleUnknown Role = ""
	RoleUser    Role = "User"
	RoleHoster  Role = "Hoster"
	RoleAdmin   Role = "Admin"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) Valid() bool {
	return r.rank() > 0
}

func (r Role) rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleHoster:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// CanUpgradeTo reports whether an admin may move a profile from r to next.
// Roles only ever move up; re-applying the current role is allowed.
func (r Role) CanUpgradeTo(next Role) bool {
	return next.Valid() && r.Valid() && next.rank() >= r.rank()
}

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// Profile is the per-principal record holding the authorization role.
type Profile struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Role      Role      `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Caller is the resolved identity behind a request.
type Caller struct {
	ID    string
	Email string
	Role  Role
}

func (c Caller) Authenticated() bool {
	return c.ID != ""
}

func (c Caller) Is(roles ...Role) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

func CallerFromContext(ctx context.Context) Caller {
	return Caller{
		ID:    middleware.GetUserID(ctx),
		Email: middleware.GetUserEmail(ctx),
		Role:  Role(middleware.GetUserRole(ctx)),
	}
}
