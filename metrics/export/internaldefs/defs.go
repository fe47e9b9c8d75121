package internaldefs

import (
	refreshguard "github.com/refreshguard/refreshguard"
)

// CounterDef defines a public type used by refreshguard APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   refreshguard.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by refreshguard APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   refreshguard.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the credential engine.
var CounterDefs = []CounterDef{
	{ID: refreshguard.MetricIssueSuccess, Name: "refreshguard_issue_success_total", Help: "Successful credential issuances."},
	{ID: refreshguard.MetricIssueFailure, Name: "refreshguard_issue_failure_total", Help: "Failed credential issuances."},
	{ID: refreshguard.MetricRotateSuccess, Name: "refreshguard_rotate_success_total", Help: "Successful credential rotations."},
	{ID: refreshguard.MetricRotateFailure, Name: "refreshguard_rotate_failure_total", Help: "Failed credential rotations."},
	{ID: refreshguard.MetricRotateExpired, Name: "refreshguard_rotate_expired_total", Help: "Rotations refused because the credential expired."},
	{ID: refreshguard.MetricReuseDetected, Name: "refreshguard_reuse_detected_total", Help: "Terminal-credential presentations that triggered the compromise response."},
	{ID: refreshguard.MetricFamilyRevoked, Name: "refreshguard_family_revoked_total", Help: "Credentials revoked by family-wide compromise responses."},
	{ID: refreshguard.MetricCredentialRevoked, Name: "refreshguard_credential_revoked_total", Help: "Credentials revoked by explicit revocation."},
	{ID: refreshguard.MetricRevokeAll, Name: "refreshguard_revoke_all_total", Help: "Bulk revocation operations."},
	{ID: refreshguard.MetricLimitEviction, Name: "refreshguard_limit_eviction_total", Help: "Credentials evicted by the per-identity session limit."},
	{ID: refreshguard.MetricSweepPurged, Name: "refreshguard_sweep_purged_total", Help: "Records removed by retention sweeps."},
}

// HistogramDefs is an exported constant or variable used by the credential engine.
var HistogramDefs = []HistogramDef{
	{ID: refreshguard.MetricValidateLatency, Name: "refreshguard_validate_latency_seconds", Help: "Access validation latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the credential engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the credential engine.
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

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form both
// exporters emit.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
