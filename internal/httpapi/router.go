// Package httpapi is the JSON HTTP surface of goidentityd.
package httpapi

import (
	"net"
	"net/http"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/middleware"
	"github.com/MrEthical07/goIdentity/permission"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter mounts every endpoint. metrics may be nil.
func NewRouter(engine *goIdentity.Engine, metrics http.Handler, logger *zap.Logger) http.Handler {
	h := NewHandler(engine, logger)
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(clientInfo)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Response{Data: map[string]string{"status": "ok"}})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	guard := middleware.Guard(engine)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/otp/verify", h.VerifyOTP)
		r.Post("/otp/resend", h.ResendOTP)
		r.Post("/login", h.Login)
		r.Post("/2fa/verify", h.VerifyTwoFactor)
		r.Post("/refresh", h.Refresh)
		r.Post("/providers/{method}", h.LoginWithProvider)
		r.Post("/password/forgot", h.ForgotPassword)
		r.Post("/password/reset", h.ResetPassword)

		r.With(guard).Post("/logout", h.Logout)
	})

	r.Route("/api/v1/users/me", func(r chi.Router) {
		r.Use(guard)

		r.Get("/", h.Me)
		r.Patch("/", h.UpdateProfile)
		r.Delete("/", h.DeleteMe)
		r.Post("/password", h.ChangePassword)
		r.Get("/permissions", h.MyPermissions)
		r.Post("/2fa/setup", h.SetupTwoFactor)
		r.Post("/2fa/enable", h.EnableTwoFactor)
		r.Post("/2fa/disable", h.DisableTwoFactor)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(guard)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(engine, permission.ManageRoles))
			r.Get("/roles", h.ListRoles)
			r.Post("/roles", h.CreateRole)
			r.Get("/roles/{id}", h.GetRole)
			r.Patch("/roles/{id}", h.UpdateRole)
			r.Delete("/roles/{id}", h.DeleteRole)
			r.Post("/roles/{id}/permissions", h.GrantRolePermissions)
			r.Delete("/roles/{id}/permissions", h.RevokeRolePermissions)
			r.Put("/users/{id}/roles/{name}", h.AssignRole)
			r.Delete("/users/{id}/roles/{name}", h.UnassignRole)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(engine, permission.ManagePermissions))
			r.Get("/permissions", h.ListPermissions)
			r.Post("/permissions", h.CreatePermission)
			r.Patch("/permissions/{id}", h.UpdatePermission)
			r.Delete("/permissions/{id}", h.DeletePermission)
			r.Put("/users/{id}/permissions/{name}", h.GrantUserPermission)
			r.Delete("/users/{id}/permissions/{name}", h.RevokeUserPermission)
		})

		r.With(middleware.RequirePermission(engine, permission.UpdateUser)).Put("/users/{id}/status", h.SetUserStatus)
		r.With(middleware.RequirePermission(engine, permission.DeleteUser)).Delete("/users/{id}", h.DeleteUser)
	})

	return r
}

// clientInfo attaches the caller's address and User-Agent for audit events.
func clientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := goIdentity.WithClientIP(r.Context(), ip)
		ctx = goIdentity.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
