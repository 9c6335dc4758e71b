package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, phone, first_name, last_name, password_hash, active,
	email_verified, phone_verified, deleted_at, provider, provider_id,
	two_factor_enabled, two_factor_secret, refresh_token_hash, otp_code,
	otp_expires_at, reset_token_hash, reset_expires_at, created_at, updated_at`

func scanUser(row pgx.Row) (*goIdentity.User, error) {
	var (
		u                                       goIdentity.User
		email, phone, passwordHash, providerID  *string
		secret, refreshHash, otpCode, resetHash *string
		otpExpires, resetExpires, deletedAt     *time.Time
	)
	err := row.Scan(
		&u.ID,
		&email,
		&phone,
		&u.FirstName,
		&u.LastName,
		&passwordHash,
		&u.Active,
		&u.EmailVerified,
		&u.PhoneVerified,
		&deletedAt,
		&u.Provider,
		&providerID,
		&u.TwoFactorEnabled,
		&secret,
		&refreshHash,
		&otpCode,
		&otpExpires,
		&resetHash,
		&resetExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goIdentity.ErrRecordNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.Email = derefString(email)
	u.Phone = derefString(phone)
	u.PasswordHash = derefString(passwordHash)
	u.ProviderID = derefString(providerID)
	u.TwoFactorSecret = derefString(secret)
	u.RefreshTokenHash = derefString(refreshHash)
	u.OTPCode = derefString(otpCode)
	u.OTPExpiresAt = derefTime(otpExpires)
	u.ResetTokenHash = derefString(resetHash)
	u.ResetExpiresAt = derefTime(resetExpires)
	if deletedAt != nil {
		t := deletedAt.UTC()
		u.DeletedAt = &t
	}
	return &u, nil
}

func (s *Store) findUser(ctx context.Context, where string, args ...any) (*goIdentity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	return scanUser(s.db.QueryRow(ctx, query, args...))
}

// FindUserByID implements goIdentity.CredentialStore.
func (s *Store) FindUserByID(ctx context.Context, userID string) (*goIdentity.User, error) {
	return s.findUser(ctx, `id = $1`, userID)
}

// FindUserByEmail implements goIdentity.CredentialStore.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*goIdentity.User, error) {
	return s.findUser(ctx, `email = $1`, email)
}

// FindUserByPhone implements goIdentity.CredentialStore.
func (s *Store) FindUserByPhone(ctx context.Context, phone string) (*goIdentity.User, error) {
	return s.findUser(ctx, `phone = $1`, phone)
}

// FindUserByProvider implements goIdentity.CredentialStore.
func (s *Store) FindUserByProvider(ctx context.Context, provider, providerID string) (*goIdentity.User, error) {
	return s.findUser(ctx, `provider = $1 AND provider_id = $2`, provider, providerID)
}

// FindUserByResetToken implements goIdentity.CredentialStore.
func (s *Store) FindUserByResetToken(ctx context.Context, tokenHash string) (*goIdentity.User, error) {
	return s.findUser(ctx, `reset_token_hash = $1`, tokenHash)
}

// CreateUser implements goIdentity.CredentialStore.
func (s *Store) CreateUser(ctx context.Context, in goIdentity.NewUser) (*goIdentity.User, error) {
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}
	query := `
		INSERT INTO users (id, email, phone, first_name, last_name, password_hash, active,
			email_verified, provider, provider_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, query,
		in.ID,
		nullString(in.Email),
		nullString(in.Phone),
		in.FirstName,
		in.LastName,
		nullString(in.PasswordHash),
		in.Active,
		in.EmailVerified,
		in.Provider,
		nullString(in.ProviderID),
		createdAt,
	))
	if err != nil {
		return nil, mapWriteError("insert user", err)
	}
	return u, nil
}

// assignments collects "column = $n" fragments and their arguments.
type assignments struct {
	sets []string
	args []any
}

func (a *assignments) arg(v any) string {
	a.args = append(a.args, v)
	return fmt.Sprintf("$%d", len(a.args))
}

func (a *assignments) set(column string, v any) {
	a.sets = append(a.sets, column+" = "+a.arg(v))
}

func (a *assignments) null(column string) {
	a.sets = append(a.sets, column+" = NULL")
}

func userAssignments(upd goIdentity.UserUpdate, now time.Time) *assignments {
	a := &assignments{}
	if upd.Email != nil {
		a.set("email", nullString(*upd.Email))
	}
	if upd.Phone != nil {
		a.set("phone", nullString(*upd.Phone))
	}
	if upd.FirstName != nil {
		a.set("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		a.set("last_name", *upd.LastName)
	}
	if upd.PasswordHash != nil {
		a.set("password_hash", nullString(*upd.PasswordHash))
	}
	if upd.Active != nil {
		a.set("active", *upd.Active)
	}
	if upd.EmailVerified != nil {
		a.set("email_verified", *upd.EmailVerified)
	}
	if upd.PhoneVerified != nil {
		a.set("phone_verified", *upd.PhoneVerified)
	}
	if upd.DeletedAt != nil {
		a.set("deleted_at", *upd.DeletedAt)
	}
	if upd.Provider != nil {
		a.set("provider", *upd.Provider)
	}
	if upd.ProviderID != nil {
		a.set("provider_id", nullString(*upd.ProviderID))
	}
	if upd.TwoFactorEnabled != nil {
		a.set("two_factor_enabled", *upd.TwoFactorEnabled)
	}
	switch {
	case upd.ClearTwoFactorSecret:
		a.null("two_factor_secret")
	case upd.TwoFactorSecret != nil:
		a.set("two_factor_secret", nullString(*upd.TwoFactorSecret))
	}
	switch {
	case upd.ClearRefreshToken:
		a.null("refresh_token_hash")
	case upd.RefreshTokenHash != nil:
		a.set("refresh_token_hash", nullString(*upd.RefreshTokenHash))
	}
	if upd.ClearOTP {
		a.null("otp_code")
		a.null("otp_expires_at")
	} else {
		if upd.OTPCode != nil {
			a.set("otp_code", nullString(*upd.OTPCode))
		}
		if upd.OTPExpiresAt != nil {
			a.set("otp_expires_at", nullTime(*upd.OTPExpiresAt))
		}
	}
	if upd.ClearReset {
		a.null("reset_token_hash")
		a.null("reset_expires_at")
	} else {
		if upd.ResetTokenHash != nil {
			a.set("reset_token_hash", nullString(*upd.ResetTokenHash))
		}
		if upd.ResetExpiresAt != nil {
			a.set("reset_expires_at", nullTime(*upd.ResetExpiresAt))
		}
	}
	a.set("updated_at", now)
	return a
}

// UpdateUser implements goIdentity.CredentialStore as one UPDATE statement.
// Guards become WHERE conditions; when no row matches, a second query tells
// a missing user from a failed guard.
func (s *Store) UpdateUser(ctx context.Context, userID string, upd goIdentity.UserUpdate) (*goIdentity.User, error) {
	a := userAssignments(upd, s.now().UTC())

	where := []string{"id = " + a.arg(userID)}
	if upd.ExpectRefreshTokenHash != nil {
		where = append(where, "COALESCE(refresh_token_hash, '') = "+a.arg(*upd.ExpectRefreshTokenHash))
	}
	if upd.ExpectOTPCode != nil {
		where = append(where, "COALESCE(otp_code, '') = "+a.arg(*upd.ExpectOTPCode))
	}
	if upd.ExpectResetTokenHash != nil {
		where = append(where, "COALESCE(reset_token_hash, '') = "+a.arg(*upd.ExpectResetTokenHash))
	}

	query := `UPDATE users SET ` + strings.Join(a.sets, ", ") +
		` WHERE ` + strings.Join(where, " AND ") +
		` RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, query, a.args...))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, goIdentity.ErrRecordNotFound) {
		return nil, mapWriteError("update user", err)
	}
	if len(where) == 1 {
		return nil, goIdentity.ErrRecordNotFound
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, goIdentity.ErrRecordNotFound
	}
	return nil, goIdentity.ErrRecordStale
}

func (s *Store) queryNames(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return names, nil
}

// ListUserRoles implements goIdentity.CredentialStore.
func (s *Store) ListUserRoles(ctx context.Context, userID string) ([]string, error) {
	return s.queryNames(ctx, "list user roles", `
		SELECT r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userID)
}

// ListEffectivePermissions implements goIdentity.CredentialStore.
func (s *Store) ListEffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	return s.queryNames(ctx, "list effective permissions", `
		SELECT p.name
		FROM permissions p
		WHERE p.id IN (
			SELECT permission_id FROM user_permissions WHERE user_id = $1
			UNION
			SELECT rp.permission_id
			FROM role_permissions rp
			JOIN user_roles ur ON ur.role_id = rp.role_id
			WHERE ur.user_id = $1
		)
		ORDER BY p.name`, userID)
}
