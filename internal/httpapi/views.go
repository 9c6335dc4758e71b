package httpapi

import (
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
)

type userView struct {
	ID               string     `json:"id"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	FirstName        string     `json:"first_name,omitempty"`
	LastName         string     `json:"last_name,omitempty"`
	Active           bool       `json:"active"`
	EmailVerified    bool       `json:"email_verified"`
	PhoneVerified    bool       `json:"phone_verified"`
	Provider         string     `json:"provider"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toUserView(u *goIdentity.User) *userView {
	if u == nil {
		return nil
	}
	return &userView{
		ID:               u.ID,
		Email:            u.Email,
		Phone:            u.Phone,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Active:           u.Active,
		EmailVerified:    u.EmailVerified,
		PhoneVerified:    u.PhoneVerified,
		Provider:         u.Provider,
		TwoFactorEnabled: u.TwoFactorEnabled,
		DeletedAt:        u.DeletedAt,
		CreatedAt:        u.CreatedAt,
	}
}

type tokensView struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func toTokensView(p *goIdentity.TokenPair) *tokensView {
	if p == nil {
		return nil
	}
	return &tokensView{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

type loginView struct {
	User              *userView   `json:"user,omitempty"`
	Tokens            *tokensView `json:"tokens,omitempty"`
	RequiresTwoFactor bool        `json:"requires_two_factor,omitempty"`
	UserID            string      `json:"user_id,omitempty"`
}

func toLoginView(res *goIdentity.LoginResult) loginView {
	v := loginView{
		User:              toUserView(res.User),
		Tokens:            toTokensView(res.Tokens),
		RequiresTwoFactor: res.RequiresTwoFactor,
	}
	if res.RequiresTwoFactor {
		v.UserID = res.UserID
	}
	return v
}

type catalogView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

func toRoleView(r goIdentity.Role) catalogView {
	return catalogView{ID: r.ID, Name: r.Name, Description: r.Description}
}

func toPermissionView(p goIdentity.Permission) catalogView {
	return catalogView{ID: p.ID, Name: p.Name, Description: p.Description}
}
