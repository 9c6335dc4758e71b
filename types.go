package goIdentity

import (
	"time"
)

// ProviderLocal is the provider name of accounts created by Register.
const ProviderLocal = "local"

// System role names. Both are protected from deletion.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User is the persisted account record.
//
// Empty strings mean "absent" for the optional fields (Email, Phone,
// PasswordHash, Provider, ProviderID, TwoFactorSecret, RefreshTokenHash,
// OTPCode, ResetTokenHash). Zero times mean "absent" for the expiry fields.
type User struct {
	ID        string
	Email     string
	Phone     string
	FirstName string
	LastName  string

	PasswordHash string

	Active        bool
	EmailVerified bool
	PhoneVerified bool
	DeletedAt     *time.Time

	Provider   string
	ProviderID string

	TwoFactorEnabled bool
	TwoFactorSecret  string

	RefreshTokenHash string

	OTPCode      string
	OTPExpiresAt time.Time

	ResetTokenHash string
	ResetExpiresAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deleted reports whether the account was soft-deleted.
func (u *User) Deleted() bool {
	return u != nil && u.DeletedAt != nil
}

// Usable reports whether the account may authenticate.
func (u *User) Usable() bool {
	return u != nil && u.Active && !u.Deleted()
}

// Verified reports whether at least one contact channel was verified.
func (u *User) Verified() bool {
	return u != nil && (u.EmailVerified || u.PhoneVerified)
}

// NewUser carries the fields of a user row to be created.
type NewUser struct {
	ID            string
	Email         string
	Phone         string
	FirstName     string
	LastName      string
	PasswordHash  string
	Active        bool
	EmailVerified bool
	Provider      string
	ProviderID    string
	CreatedAt     time.Time
}

// UserUpdate is a partial update applied atomically to one user row.
//
// Non-nil pointer fields are written. Clear* flags null the matching
// nullable field or pair and win over a value set in the same update.
// Expect* fields are guards: the store must apply the update only if the
// current column equals the expected value, and return ErrRecordStale
// otherwise. An empty expected string matches a null column.
type UserUpdate struct {
	Email     *string
	Phone     *string
	FirstName *string
	LastName  *string

	PasswordHash *string

	Active        *bool
	EmailVerified *bool
	PhoneVerified *bool
	DeletedAt     *time.Time

	Provider   *string
	ProviderID *string

	TwoFactorEnabled     *bool
	TwoFactorSecret      *string
	ClearTwoFactorSecret bool

	RefreshTokenHash  *string
	ClearRefreshToken bool

	OTPCode      *string
	OTPExpiresAt *time.Time
	ClearOTP     bool

	ResetTokenHash *string
	ResetExpiresAt *time.Time
	ClearReset     bool

	ExpectRefreshTokenHash *string
	ExpectOTPCode          *string
	ExpectResetTokenHash   *string
}

// Apply writes the update onto u. Guards are not evaluated. In-memory stores
// use it after checking the guards themselves.
func (upd UserUpdate) Apply(u *User) {
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Active != nil {
		u.Active = *upd.Active
	}
	if upd.EmailVerified != nil {
		u.EmailVerified = *upd.EmailVerified
	}
	if upd.PhoneVerified != nil {
		u.PhoneVerified = *upd.PhoneVerified
	}
	if upd.DeletedAt != nil {
		deletedAt := *upd.DeletedAt
		u.DeletedAt = &deletedAt
	}
	if upd.Provider != nil {
		u.Provider = *upd.Provider
	}
	if upd.ProviderID != nil {
		u.ProviderID = *upd.ProviderID
	}
	if upd.TwoFactorEnabled != nil {
		u.TwoFactorEnabled = *upd.TwoFactorEnabled
	}
	if upd.TwoFactorSecret != nil {
		u.TwoFactorSecret = *upd.TwoFactorSecret
	}
	if upd.ClearTwoFactorSecret {
		u.TwoFactorSecret = ""
	}
	if upd.RefreshTokenHash != nil {
		u.RefreshTokenHash = *upd.RefreshTokenHash
	}
	if upd.ClearRefreshToken {
		u.RefreshTokenHash = ""
	}
	if upd.OTPCode != nil {
		u.OTPCode = *upd.OTPCode
	}
	if upd.OTPExpiresAt != nil {
		u.OTPExpiresAt = *upd.OTPExpiresAt
	}
	if upd.ClearOTP {
		u.OTPCode = ""
		u.OTPExpiresAt = time.Time{}
	}
	if upd.ResetTokenHash != nil {
		u.ResetTokenHash = *upd.ResetTokenHash
	}
	if upd.ResetExpiresAt != nil {
		u.ResetExpiresAt = *upd.ResetExpiresAt
	}
	if upd.ClearReset {
		u.ResetTokenHash = ""
		u.ResetExpiresAt = time.Time{}
	}
}

// GuardsHold reports whether the Expect* guards of upd match u.
func (upd UserUpdate) GuardsHold(u *User) bool {
	if upd.ExpectRefreshTokenHash != nil && u.RefreshTokenHash != *upd.ExpectRefreshTokenHash {
		return false
	}
	if upd.ExpectOTPCode != nil && u.OTPCode != *upd.ExpectOTPCode {
		return false
	}
	if upd.ExpectResetTokenHash != nil && u.ResetTokenHash != *upd.ExpectResetTokenHash {
		return false
	}
	return true
}

// Role is a named group of permissions.
type Role struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission is a named capability.
type Permission struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoleWithPermissions is a role together with its granted permissions.
type RoleWithPermissions struct {
	Role
	Permissions []Permission
}

// TokenPayload is the content embedded in both session tokens.
type TokenPayload struct {
	UserID string
	Email  *string
	Roles  []string
}

// TokenPair holds an access token and its refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Principal is the authenticated caller produced by VerifyAccessToken.
// It is passed explicitly into authorization calls.
type Principal struct {
	UserID string
	Email  *string
	Roles  []string
}

// HasRole reports whether the principal's token carries role.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// LoginResult is returned by Login, LinkFederatedIdentity and LoginWithProvider.
//
// When RequiresTwoFactor is true, Tokens and User are nil and the caller must
// complete the login with VerifyTwoFactor(UserID, code).
type LoginResult struct {
	User              *User
	Tokens            *TokenPair
	RequiresTwoFactor bool
	UserID            string
}

// RegisterRequest is the input of Register.
type RegisterRequest struct {
	Email     string
	Phone     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileUpdate is the input of UpdateProfile. Nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// FederatedProfile is an identity asserted by an external provider.
type FederatedProfile struct {
	Provider      string
	ProviderID    string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	DisplayName   string
}

// TwoFactorSetup is returned by GenerateTwoFactorSecret.
type TwoFactorSetup struct {
	Secret string
	URI    string
	QRCode string
}

// Channel is the delivery channel of a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Purpose tells the notification sender which template a code belongs to.
type Purpose string

const (
	PurposeVerification  Purpose = "verification"
	PurposePasswordReset Purpose = "password_reset"
)

// Notification is one code to deliver.
type Notification struct {
	Channel Channel
	Address string
	Code    string
	Purpose Purpose
	UserID  string
}
