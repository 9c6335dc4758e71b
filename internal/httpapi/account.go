package httpapi

import (
	"net/http"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/middleware"
)

type profileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type codeRequest struct {
	Code string `json:"code"`
}

func currentUserID(r *http.Request) string {
	p, _ := middleware.PrincipalFromContext(r.Context())
	return p.UserID
}

// Me handles GET /api/v1/users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.engine.GetUser(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, Response{Data: toUserView(u)})
}

// UpdateProfile handles PATCH /api/v1/users/me.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.engine.UpdateProfile(r.Context(), currentUserID(r), goIdentity.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, Response{Data: toUserView(u)})
}

// ChangePassword handles POST /api/v1/users/me/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.engine.ChangePassword(r.Context(), currentUserID(r), req.OldPassword, req.NewPassword); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMe handles DELETE /api/v1/users/me.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.SoftDeleteAccount(r.Context(), currentUserID(r)); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MyPermissions handles GET /api/v1/users/me/permissions.
func (h *Handler) MyPermissions(w http.ResponseWriter, r *http.Request) {
	names, err := h.engine.EffectivePermissions(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, Response{Data: names})
}

// SetupTwoFactor handles POST /api/v1/users/me/2fa/setup.
func (h *Handler) SetupTwoFactor(w http.ResponseWriter, r *http.Request) {
	setup, err := h.engine.GenerateTwoFactorSecret(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, Response{Data: map[string]string{
		"secret":  setup.Secret,
		"uri":     setup.URI,
		"qr_code": setup.QRCode,
	}})
}

// EnableTwoFactor handles POST /api/v1/users/me/2fa/enable.
func (h *Handler) EnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.engine.EnableTwoFactor(r.Context(), currentUserID(r), req.Code); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DisableTwoFactor handles POST /api/v1/users/me/2fa/disable.
func (h *Handler) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.engine.DisableTwoFactor(r.Context(), currentUserID(r), req.Code); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
