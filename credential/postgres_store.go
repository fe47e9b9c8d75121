package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the DDL for the Postgres store. Run it once at deploy time, or
// feed it to a migration tool.
//
// Timestamps are Unix milliseconds (BIGINT) so the row format carries the
// same values as the Redis blob. purge_after mirrors the Redis key TTL:
// rows are kept past expiry so expired presentations stay distinguishable
// from unknown ones, then swept.
const Schema = `
CREATE TABLE IF NOT EXISTS refresh_credentials (
	id UUID PRIMARY KEY,
	identity_id TEXT NOT NULL,
	credential_hash BYTEA NOT NULL,
	family_id UUID NOT NULL,
	status SMALLINT NOT NULL DEFAULT 0,
	created_at BIGINT NOT NULL,
	expires_at BIGINT NOT NULL,
	rotated_at BIGINT NOT NULL DEFAULT 0,
	context TEXT NOT NULL DEFAULT '',
	purge_after BIGINT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS refresh_credentials_hash_idx
	ON refresh_credentials (credential_hash);
CREATE INDEX IF NOT EXISTS refresh_credentials_identity_status_idx
	ON refresh_credentials (identity_id, status);
CREATE INDEX IF NOT EXISTS refresh_credentials_family_idx
	ON refresh_credentials (family_id);
CREATE INDEX IF NOT EXISTS refresh_credentials_purge_idx
	ON refresh_credentials (purge_after);
`

const credentialColumns = "id, identity_id, credential_hash, family_id, status, created_at, expires_at, rotated_at, context"

// PostgresStore is a pgx-backed [Store]. The rotation compare-and-set is a
// conditional UPDATE: of N concurrent rotations for the same hash, exactly
// one row update succeeds.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a [PostgresStore] on the given pool. The schema
// must already exist; see [Schema].
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Insert(ctx context.Context, c *Credential, ttl time.Duration) error {
	if c.IdentityID == "" {
		return errors.New("identityID empty")
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO refresh_credentials
			(id, identity_id, credential_hash, family_id, status, created_at, expires_at, rotated_at, context, purge_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.IdentityID, c.Hash[:], c.FamilyID, int16(c.Status),
		c.CreatedAt, c.ExpiresAt, c.RotatedAt, c.Context,
		c.CreatedAt+ttl.Milliseconds(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateHash
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (p *PostgresStore) GetByHash(ctx context.Context, hash [32]byte) (*Credential, error) {
	row := p.pool.QueryRow(ctx,
		"SELECT "+credentialColumns+" FROM refresh_credentials WHERE credential_hash = $1",
		hash[:],
	)
	return scanCredential(row)
}

func (p *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*Credential, error) {
	row := p.pool.QueryRow(ctx,
		"SELECT "+credentialColumns+" FROM refresh_credentials WHERE id = $1",
		id,
	)
	return scanCredential(row)
}

func (p *PostgresStore) Rotate(ctx context.Context, hash [32]byte, now time.Time) (*Credential, error) {
	nowMillis := now.UnixMilli()

	row := p.pool.QueryRow(ctx, `
		UPDATE refresh_credentials
		SET status = $2, rotated_at = $3
		WHERE credential_hash = $1 AND status = $4 AND expires_at > $3
		RETURNING `+credentialColumns,
		hash[:], int16(StatusRotated), nowMillis, int16(StatusActive),
	)

	c, err := scanCredential(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrCredentialNotFound) {
		return nil, err
	}

	// The conditional update matched nothing; a plain read classifies why.
	c, err = p.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if c.Expired(now) && c.Status == StatusActive {
		return nil, ErrCredentialExpired
	}
	return c, ErrCredentialNotActive
}

func (p *PostgresStore) RevokeByHash(ctx context.Context, hash [32]byte) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		"UPDATE refresh_credentials SET status = $2 WHERE credential_hash = $1 AND status = $3",
		hash[:], int16(StatusRevoked), int16(StatusActive),
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresStore) RevokeByID(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		"UPDATE refresh_credentials SET status = $2 WHERE id = $1 AND status = $3",
		id, int16(StatusRevoked), int16(StatusActive),
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresStore) RevokeFamily(ctx context.Context, familyID uuid.UUID) (int, error) {
	tag, err := p.pool.Exec(ctx,
		"UPDATE refresh_credentials SET status = $2 WHERE family_id = $1 AND status = $3",
		familyID, int16(StatusRevoked), int16(StatusActive),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *PostgresStore) RevokeAllForIdentity(ctx context.Context, identityID string) (int, error) {
	tag, err := p.pool.Exec(ctx,
		"UPDATE refresh_credentials SET status = $2 WHERE identity_id = $1 AND status = $3",
		identityID, int16(StatusRevoked), int16(StatusActive),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *PostgresStore) ActiveForIdentity(ctx context.Context, identityID string) ([]*Credential, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+credentialColumns+`
		FROM refresh_credentials
		WHERE identity_id = $1 AND status = $2 AND expires_at > $3
		ORDER BY created_at, id`,
		identityID, int16(StatusActive), time.Now().UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var active []*Credential
	for rows.Next() {
		c, scanErr := scanCredential(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		active = append(active, c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, rows.Err())
	}
	if active == nil {
		active = []*Credential{}
	}
	return active, nil
}

func (p *PostgresStore) ActiveCount(ctx context.Context, identityID string) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM refresh_credentials WHERE identity_id = $1 AND status = $2 AND expires_at > $3",
		identityID, int16(StatusActive), time.Now().UnixMilli(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

func (p *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx,
		"DELETE FROM refresh_credentials WHERE purge_after <= $1",
		now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *PostgresStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := p.pool.Ping(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

func scanCredential(row pgx.Row) (*Credential, error) {
	c := &Credential{}
	var hash []byte
	var status int16

	err := row.Scan(&c.ID, &c.IdentityID, &hash, &c.FamilyID, &status,
		&c.CreatedAt, &c.ExpiresAt, &c.RotatedAt, &c.Context)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if len(hash) != 32 {
		return nil, ErrRecordCorrupt
	}
	copy(c.Hash[:], hash)
	c.Status = Status(status)
	return c, nil
}

var _ Store = (*PostgresStore)(nil)
