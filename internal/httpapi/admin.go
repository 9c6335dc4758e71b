package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type catalogRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type catalogPatchRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type rolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids"`
}

type statusRequest struct {
	Active bool `json:"active"`
}

// ListRoles handles GET /api/v1/admin/roles.
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.engine.ListRoles(r.Context())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	out := make([]catalogView, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleView(role))
	}
	writeJSON(w, http.StatusOK, Response{Data: out})
}

// CreateRole handles POST /api/v1/admin/roles.
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req catalogRequest
	if !decode(w, r, &req) {
		return
	}
	role, err := h.engine.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Data: toRoleView(*role)})
}

// GetRole handles GET /api/v1/admin/roles/{id}.
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.engine.GetRole(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	view := toRoleView(role.Role)
	for _, p := range role.Permissions {
		view.Permissions = append(view.Permissions, p.Name)
	}
	writeJSON(w, http.StatusOK, Response{Data: view})
}

// UpdateRole handles PATCH /api/v1/admin/roles/{id}.
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req catalogPatchRequest
	if !decode(w, r, &req) {
		return
	}
	role, err := h.engine.UpdateRole(r.Context(), chi.URLParam(r, "id"), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, Response{Data: toRoleView(*role)})
}

// DeleteRole handles DELETE /api/v1/admin/roles/{id}.
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteRole(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GrantRolePermissions handles POST /api/v1/admin/roles/{id}/permissions.
func (h *Handler) GrantRolePermissions(w http.ResponseWriter, r *http.Request) {
	h.editRolePermissions(w, r, true)
}

// RevokeRolePermissions handles DELETE /api/v1/admin/roles/{id}/permissions.
func (h *Handler) RevokeRolePermissions(w http.ResponseWriter, r *http.Request) {
	h.editRolePermissions(w, r, false)
}

func (h *Handler) editRolePermissions(w http.ResponseWriter, r *http.Request, grant bool) {
	var req rolePermissionsRequest
	if !decode(w, r, &req) {
		return
	}
	roleID := chi.URLParam(r, "id")
	edit := h.engine.RevokeRolePermissions
	if grant {
		edit = h.engine.GrantRolePermissions
	}
	if err := edit(r.Context(), roleID, req.PermissionIDs); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPermissions handles GET /api/v1/admin/permissions.
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.engine.ListPermissions(r.Context())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	out := make([]catalogView, 0, len(perms))
	for _, p := range perms {
		out = append(out, toPermissionView(p))
	}
	writeJSON(w, http.StatusOK, Response{Data: out})
}

// CreatePermission handles POST /api/v1/admin/permissions.
func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var req catalogRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.engine.CreatePermission(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Data: toPermissionView(*p)})
}

// UpdatePermission handles PATCH /api/v1/admin/permissions/{id}.
func (h *Handler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	var req catalogPatchRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.engine.UpdatePermission(r.Context(), chi.URLParam(r, "id"), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, Response{Data: toPermissionView(*p)})
}

// DeletePermission handles DELETE /api/v1/admin/permissions/{id}.
func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeletePermission(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignRole handles PUT /api/v1/admin/users/{id}/roles/{name}.
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.engine.AssignRole(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name")))
}

// UnassignRole handles DELETE /api/v1/admin/users/{id}/roles/{name}.
func (h *Handler) UnassignRole(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.engine.UnassignRole(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name")))
}

// GrantUserPermission handles PUT /api/v1/admin/users/{id}/permissions/{name}.
func (h *Handler) GrantUserPermission(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.engine.GrantUserPermission(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name")))
}

// RevokeUserPermission handles DELETE /api/v1/admin/users/{id}/permissions/{name}.
func (h *Handler) RevokeUserPermission(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.engine.RevokeUserPermission(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name")))
}

// SetUserStatus handles PUT /api/v1/admin/users/{id}/status.
func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	h.noContent(w, r, h.engine.SetAccountStatus(r.Context(), chi.URLParam(r, "id"), req.Active))
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.engine.SoftDeleteAccount(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
