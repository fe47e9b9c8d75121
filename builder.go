package refreshguard

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/refreshguard/refreshguard/credential"
	"github.com/refreshguard/refreshguard/jwt"
)

// Builder defines a public type used by refreshguard APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	redis    redis.UniversalClient
	postgres *pgxpool.Pool
	store    credential.Store

	auditSink  AuditSink
	authorizer RevokeAuthorizer

	built bool
}

// New starts a [Builder] with defaults: 15 minute access tokens, 7 day
// refresh credentials, at most 5 active credentials per identity.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis selects the Redis credential store backend.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPostgres selects the Postgres credential store backend. The schema
// from [credential.Schema] must already exist.
func (b *Builder) WithPostgres(pool *pgxpool.Pool) *Builder {
	b.postgres = pool
	return b
}

// WithStore injects a custom [credential.Store], overriding WithRedis and
// WithPostgres.
func (b *Builder) WithStore(store credential.Store) *Builder {
	b.store = store
	return b
}

// WithAuditSink sets the audit event consumer.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRevokeAuthorizer sets the gate for cross-identity bulk revocation.
func (b *Builder) WithRevokeAuthorizer(a RevokeAuthorizer) *Builder {
	b.authorizer = a
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validation latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates configuration, wires the store, and constructs the
// [Engine]. A builder can be used once.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- CREDENTIAL STORE --------
	store := b.store
	switch {
	case store != nil:
	case b.redis != nil:
		store = credential.NewRedisStore(b.redis, cfg.Credential.RedisPrefix)
	case b.postgres != nil:
		store = credential.NewPostgresStore(b.postgres)
	default:
		return nil, errors.New("credential store required: use WithRedis, WithPostgres, or WithStore")
	}

	// -------- JWT MANAGER --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Scope:         append([]string(nil), cfg.JWT.Scope...),
		Leeway:        cfg.JWT.Leeway,
		RequireIAT:    cfg.JWT.RequireIAT,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		store:      store,
		jwtManager: jm,
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:    NewMetrics(cfg.Metrics),
		authorizer: b.authorizer,
	}

	if cfg.Sweep.Interval > 0 {
		engine.startSweeper(cfg.Sweep.Interval)
	}

	b.built = true

	return engine, nil
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	return append([]byte(nil), in...)
}
