package internaldefs

import (
	goIdentity "github.com/MrEthical07/goIdentity"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   goIdentity.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram.
type HistogramDef struct {
	ID   goIdentity.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter.
var CounterDefs = []CounterDef{
	{ID: goIdentity.MetricRegisterSuccess, Name: "goidentity_register_success_total", Help: "Successful registrations."},
	{ID: goIdentity.MetricRegisterDuplicate, Name: "goidentity_register_duplicate_total", Help: "Registrations rejected for a taken email or phone."},
	{ID: goIdentity.MetricLoginSuccess, Name: "goidentity_login_success_total", Help: "Logins that issued tokens."},
	{ID: goIdentity.MetricLoginFailure, Name: "goidentity_login_failure_total", Help: "Failed password logins."},
	{ID: goIdentity.MetricLoginTwoFactorRequired, Name: "goidentity_login_two_factor_required_total", Help: "Logins paused for a second factor."},
	{ID: goIdentity.MetricLoginPasswordUpgraded, Name: "goidentity_login_password_upgraded_total", Help: "Password hashes upgraded on login."},
	{ID: goIdentity.MetricRefreshSuccess, Name: "goidentity_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: goIdentity.MetricRefreshFailure, Name: "goidentity_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: goIdentity.MetricRefreshReplayRejected, Name: "goidentity_refresh_replay_rejected_total", Help: "Refresh tokens rejected as already rotated."},
	{ID: goIdentity.MetricLogout, Name: "goidentity_logout_total", Help: "Logouts."},
	{ID: goIdentity.MetricOTPIssued, Name: "goidentity_otp_issued_total", Help: "Verification codes issued."},
	{ID: goIdentity.MetricOTPVerifySuccess, Name: "goidentity_otp_verify_success_total", Help: "Verification codes accepted."},
	{ID: goIdentity.MetricOTPVerifyFailure, Name: "goidentity_otp_verify_failure_total", Help: "Verification codes rejected."},
	{ID: goIdentity.MetricTwoFactorEnrolled, Name: "goidentity_two_factor_enrolled_total", Help: "Accounts that enabled two-factor."},
	{ID: goIdentity.MetricTwoFactorSuccess, Name: "goidentity_two_factor_success_total", Help: "Accepted TOTP codes."},
	{ID: goIdentity.MetricTwoFactorFailure, Name: "goidentity_two_factor_failure_total", Help: "Rejected TOTP codes."},
	{ID: goIdentity.MetricTwoFactorDisabled, Name: "goidentity_two_factor_disabled_total", Help: "Accounts that disabled two-factor."},
	{ID: goIdentity.MetricFederatedLogin, Name: "goidentity_federated_login_total", Help: "Federated logins of existing accounts."},
	{ID: goIdentity.MetricFederatedSignup, Name: "goidentity_federated_signup_total", Help: "Accounts created by federated login."},
	{ID: goIdentity.MetricAuthzAllowed, Name: "goidentity_authz_allowed_total", Help: "Authorization checks that passed."},
	{ID: goIdentity.MetricAuthzDenied, Name: "goidentity_authz_denied_total", Help: "Authorization checks that failed."},
	{ID: goIdentity.MetricAuthzCacheHit, Name: "goidentity_authz_cache_hit_total", Help: "Authorization cache hits."},
	{ID: goIdentity.MetricAuthzCacheMiss, Name: "goidentity_authz_cache_miss_total", Help: "Authorization cache misses."},
	{ID: goIdentity.MetricPasswordChangeSuccess, Name: "goidentity_password_change_success_total", Help: "Password changes."},
	{ID: goIdentity.MetricPasswordResetRequest, Name: "goidentity_password_reset_request_total", Help: "Password reset requests."},
	{ID: goIdentity.MetricPasswordResetSuccess, Name: "goidentity_password_reset_success_total", Help: "Completed password resets."},
	{ID: goIdentity.MetricPasswordResetFailure, Name: "goidentity_password_reset_failure_total", Help: "Rejected password reset tokens."},
	{ID: goIdentity.MetricAccountDisabled, Name: "goidentity_account_disabled_total", Help: "Account deactivations."},
	{ID: goIdentity.MetricAccountDeleted, Name: "goidentity_account_deleted_total", Help: "Account soft deletions."},
	{ID: goIdentity.MetricDeliveryDropped, Name: "goidentity_delivery_dropped_total", Help: "Codes not queued because the delivery queue was full."},
	{ID: goIdentity.MetricInternalError, Name: "goidentity_internal_error_total", Help: "Operations failed by a store or infrastructure error."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goIdentity.MetricVerifyLatency, Name: "goidentity_verify_latency_seconds", Help: "Access token verification latency."},
}

// HistogramBounds are the bucket upper bounds in seconds, in engine bucket
// order. The last engine bucket is +Inf and has no entry.
var HistogramBounds = []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01}

// HistogramBoundSuffix names each engine bucket, +Inf included, for
// exporters without native histograms.
var HistogramBoundSuffix = []string{
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_005",
	"0_01",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
