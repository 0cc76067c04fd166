package internaldefs

import (
	"github.com/MrEthical07/sessionkit"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   sessionkit.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   sessionkit.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: sessionkit.MetricSignUpSuccess, Name: "sessionkit_signup_success_total", Help: "Accounts registered."},
	{ID: sessionkit.MetricSignUpConflict, Name: "sessionkit_signup_conflict_total", Help: "Sign-ups rejected because the email or username is taken."},
	{ID: sessionkit.MetricSignInSuccess, Name: "sessionkit_signin_success_total", Help: "Successful sign-ins."},
	{ID: sessionkit.MetricSignInFailure, Name: "sessionkit_signin_failure_total", Help: "Failed sign-ins."},
	{ID: sessionkit.MetricSignOut, Name: "sessionkit_signout_total", Help: "Credentials revoked by sign-out."},
	{ID: sessionkit.MetricAuthorizeSuccess, Name: "sessionkit_authorize_success_total", Help: "Access credentials accepted."},
	{ID: sessionkit.MetricAuthorizeRejected, Name: "sessionkit_authorize_rejected_total", Help: "Access credentials rejected."},
	{ID: sessionkit.MetricRefreshSuccess, Name: "sessionkit_refresh_success_total", Help: "Access credentials reissued from a refresh credential."},
	{ID: sessionkit.MetricRefreshFailure, Name: "sessionkit_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: sessionkit.MetricVerifySuccess, Name: "sessionkit_verify_success_total", Help: "Accounts verified."},
	{ID: sessionkit.MetricVerifyFailure, Name: "sessionkit_verify_failure_total", Help: "Rejected verification attempts."},
	{ID: sessionkit.MetricVerificationSent, Name: "sessionkit_verification_sent_total", Help: "Verification messages handed to the notifier."},
	{ID: sessionkit.MetricRecoverySuccess, Name: "sessionkit_recovery_success_total", Help: "Passwords reset by account recovery."},
	{ID: sessionkit.MetricRecoveryFailure, Name: "sessionkit_recovery_failure_total", Help: "Failed account recoveries."},
	{ID: sessionkit.MetricNotifyFailure, Name: "sessionkit_notify_failure_total", Help: "Messages the notifier failed to deliver."},
	{ID: sessionkit.MetricRateLimitHit, Name: "sessionkit_rate_limit_hit_total", Help: "Requests denied by a rate limit."},
	{ID: sessionkit.MetricBackendFailure, Name: "sessionkit_backend_failure_total", Help: "Requests failed by a store or limiter outage."},
	{ID: sessionkit.MetricPasswordRehash, Name: "sessionkit_password_rehash_total", Help: "Password digests upgraded on sign-in."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: sessionkit.MetricAuthorizeLatency, Name: "sessionkit_authorize_latency_seconds", Help: "Authorize latency."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching
// sessionkit.HistogramBucketBounds plus +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix is HistogramBounds rendered for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling short input.
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
