package refreshguard

import (
	"errors"
	"time"
)

// Config defines a public type used by refreshguard APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT        JWTConfig
	Credential CredentialConfig
	Sessions   SessionLimitConfig
	Sweep      SweepConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by refreshguard APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Scope         []string
	Leeway        time.Duration
	RequireIAT    bool
	KeyID         string
	VerifyKeys    map[string][]byte
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// CredentialConfig defines a public type used by refreshguard APIs.
//
// CredentialConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CredentialConfig struct {
	// RefreshTTL is the lifetime of each refresh credential, measured from
	// its own issuance. Rotation restarts the clock on the successor.
	RefreshTTL time.Duration
	// RetainExpired keeps expired records in the store past their expiry so
	// an expired presentation is reported as expired rather than unknown.
	RetainExpired time.Duration
	// RedisPrefix namespaces store keys when the Redis backend is used.
	RedisPrefix string
}

/*
====================================
SESSION LIMIT CONFIG
====================================
*/

// SessionLimitConfig defines a public type used by refreshguard APIs.
//
// SessionLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionLimitConfig struct {
	// MaxActivePerIdentity caps concurrent active credentials per identity.
	// Crossing the cap revokes the oldest credentials. Zero disables the cap.
	MaxActivePerIdentity int
}

/*
====================================
SWEEP CONFIG
====================================
*/

// SweepConfig defines a public type used by refreshguard APIs.
//
// SweepConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SweepConfig struct {
	// Interval between background purge runs. Zero disables the sweeper;
	// [Engine.Sweep] stays available for external scheduling.
	Interval time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by refreshguard APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by refreshguard APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "ed25519",
		},
		Credential: CredentialConfig{
			RefreshTTL:    7 * 24 * time.Hour,
			RetainExpired: 24 * time.Hour,
			RedisPrefix:   "rc",
		},
		Sessions: SessionLimitConfig{
			MaxActivePerIdentity: 5,
		},
		Sweep: SweepConfig{
			Interval: 0,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg

	if cfg.JWT.PrivateKey != nil {
		out.JWT.PrivateKey = append([]byte(nil), cfg.JWT.PrivateKey...)
	}
	if cfg.JWT.PublicKey != nil {
		out.JWT.PublicKey = append([]byte(nil), cfg.JWT.PublicKey...)
	}
	if cfg.JWT.Scope != nil {
		out.JWT.Scope = append([]string(nil), cfg.JWT.Scope...)
	}
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = append([]byte(nil), key...)
		}
	}

	return out
}

// Validate checks configuration invariants before the engine is built.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT.AccessTTL must be positive")
	}
	if c.Credential.RefreshTTL <= 0 {
		return errors.New("Credential.RefreshTTL must be positive")
	}
	if c.Credential.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("Credential.RefreshTTL must exceed JWT.AccessTTL")
	}
	if c.Credential.RetainExpired < 0 {
		return errors.New("Credential.RetainExpired must not be negative")
	}
	if c.Sessions.MaxActivePerIdentity < 0 {
		return errors.New("Sessions.MaxActivePerIdentity must not be negative")
	}
	if c.Sweep.Interval < 0 {
		return errors.New("Sweep.Interval must not be negative")
	}
	switch c.JWT.SigningMethod {
	case "ed25519", "hs256":
	default:
		return errors.New("JWT.SigningMethod must be ed25519 or hs256")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when auditing is enabled")
	}
	return nil
}
