package auth

import "shop-api/internal/domain"

// Identity is what the auth gate hands to a handler once the bearer token
// has been resolved to a stored user.
type Identity struct {
	UserID uint
	Email  string
	Role   domain.Role
}

func IdentityOf(u *domain.User) *Identity {
	return &Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func (i *Identity) IsAdmin() bool { return i != nil && i.Role == domain.RoleAdmin }
