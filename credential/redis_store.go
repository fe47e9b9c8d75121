package credential

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	rotateStatusNotFound  int64 = 0
	rotateStatusExpired   int64 = 1
	rotateStatusNotActive int64 = 2
	rotateStatusRotated   int64 = 3
	rotateStatusCorrupt   int64 = 4
)

const rotateCredentialScript = `
local function read_be64(s, i)
  local b1 = string.byte(s, i)
  local b2 = string.byte(s, i + 1)
  local b3 = string.byte(s, i + 2)
  local b4 = string.byte(s, i + 3)
  local b5 = string.byte(s, i + 4)
  local b6 = string.byte(s, i + 5)
  local b7 = string.byte(s, i + 6)
  local b8 = string.byte(s, i + 7)
  if not b8 then
    return nil
  end
  return ((((((((b1 * 256) + b2) * 256 + b3) * 256 + b4) * 256 + b5) * 256 + b6) * 256 + b7) * 256 + b8)
end

local function write_be64(v)
  local b = {}
  for i = 8, 1, -1 do
    b[i] = v % 256
    v = math.floor(v / 256)
  end
  return string.char(b[1], b[2], b[3], b[4], b[5], b[6], b[7], b[8])
end

local record_key = KEYS[1]
local identity_prefix = ARGV[1]
local member = ARGV[2]
local now_ms = tonumber(ARGV[3])

local data = redis.call("GET", record_key)
if not data then
  return {0}
end

if string.byte(data, 1) ~= 1 or #data < 59 then
  return {4}
end

local expires_at = read_be64(data, 43)
if not expires_at or expires_at <= now_ms then
  return {1}
end

if string.byte(data, 2) ~= 0 then
  return {2, data}
end

local id_len = string.byte(data, 59)
if not id_len or #data < 59 + id_len then
  return {4}
end
local identity = string.sub(data, 60, 59 + id_len)

local ttl = redis.call("PTTL", record_key)
if ttl <= 0 then
  return {1}
end

local updated = string.sub(data, 1, 1) .. string.char(1) .. string.sub(data, 3, 50) .. write_be64(now_ms) .. string.sub(data, 59)
redis.call("SET", record_key, updated, "PX", ttl)
redis.call("SREM", identity_prefix .. identity, member)

return {3, updated}
`

var rotateCredentialLua = redis.NewScript(rotateCredentialScript)

const revokeCredentialScript = `
local record_key = KEYS[1]
local identity_prefix = ARGV[1]
local member = ARGV[2]

local data = redis.call("GET", record_key)
if not data or string.byte(data, 1) ~= 1 or #data < 59 then
  return 0
end
if string.byte(data, 2) ~= 0 then
  return 0
end

local ttl = redis.call("PTTL", record_key)
if ttl <= 0 then
  return 0
end

local updated = string.sub(data, 1, 1) .. string.char(2) .. string.sub(data, 3)
redis.call("SET", record_key, updated, "PX", ttl)

local id_len = string.byte(data, 59)
if id_len and #data >= 59 + id_len then
  redis.call("SREM", identity_prefix .. string.sub(data, 60, 59 + id_len), member)
end

return 1
`

var revokeCredentialLua = redis.NewScript(revokeCredentialScript)

const revokeSetScript = `
local set_key = KEYS[1]
local record_prefix = ARGV[1]
local identity_prefix = ARGV[2]

local members = redis.call("SMEMBERS", set_key)
local revoked = 0

for _, member in ipairs(members) do
  local record_key = record_prefix .. member
  local data = redis.call("GET", record_key)
  if data and string.byte(data, 1) == 1 and #data >= 59 and string.byte(data, 2) == 0 then
    local ttl = redis.call("PTTL", record_key)
    if ttl > 0 then
      local updated = string.sub(data, 1, 1) .. string.char(2) .. string.sub(data, 3)
      redis.call("SET", record_key, updated, "PX", ttl)
      local id_len = string.byte(data, 59)
      if id_len and #data >= 59 + id_len then
        redis.call("SREM", identity_prefix .. string.sub(data, 60, 59 + id_len), member)
      end
      revoked = revoked + 1
    end
  end
end

return revoked
`

var revokeSetLua = redis.NewScript(revokeSetScript)

// RedisStore is a Redis-backed [Store]. Records live under hash-addressed
// keys with native TTL retention; secondary indexes track credential id,
// family membership, and the identity's active set.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a [RedisStore] on the given client. prefix sets the
// Redis key namespace; empty defaults to "rc".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rc"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func encodeHash(hash [32]byte) string {
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

func (s *RedisStore) recordKey(member string) string {
	return s.prefix + ":" + member
}

func (s *RedisStore) idKey(id uuid.UUID) string {
	return s.prefix + "id:" + id.String()
}

func (s *RedisStore) familyKey(familyID uuid.UUID) string {
	return s.prefix + "f:" + familyID.String()
}

func (s *RedisStore) identityKey(identityID string) string {
	return s.prefix + "i:" + identityID
}

func (s *RedisStore) identityPrefix() string {
	return s.prefix + "i:"
}

// Insert persists a new active record and its indexes.
//
//	Performance: 1 SETNX + 5 pipelined commands.
func (s *RedisStore) Insert(ctx context.Context, c *Credential, ttl time.Duration) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}

	member := encodeHash(c.Hash)

	ok, err := s.redis.SetNX(ctx, s.recordKey(member), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return ErrDuplicateHash
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.idKey(c.ID), member, ttl)
		pipe.SAdd(ctx, s.familyKey(c.FamilyID), member)
		pipe.Expire(ctx, s.familyKey(c.FamilyID), ttl)
		pipe.SAdd(ctx, s.identityKey(c.IdentityID), member)
		pipe.Expire(ctx, s.identityKey(c.IdentityID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// GetByHash fetches a record without mutating Redis state.
//
//	Performance: 1 GET.
func (s *RedisStore) GetByHash(ctx context.Context, hash [32]byte) (*Credential, error) {
	data, err := s.redis.Get(ctx, s.recordKey(encodeHash(hash))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return Decode(data)
}

// GetByID resolves the id index and fetches the record.
//
//	Performance: 2 GETs.
func (s *RedisStore) GetByID(ctx context.Context, id uuid.UUID) (*Credential, error) {
	member, err := s.redis.Get(ctx, s.idKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	data, err := s.redis.Get(ctx, s.recordKey(member)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return Decode(data)
}

// Rotate runs the atomic compare-and-set rotation script. Exactly one of N
// concurrent calls for the same hash observes the active record; the record
// is patched to rotated in place, keeping its TTL.
//
//	Performance: 1 EVALSHA (GET + PTTL + SET + SREM).
func (s *RedisStore) Rotate(ctx context.Context, hash [32]byte, now time.Time) (*Credential, error) {
	member := encodeHash(hash)

	raw, err := rotateCredentialLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(member)},
		s.identityPrefix(),
		member,
		now.UnixMilli(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) == 0 {
		return nil, ErrRecordCorrupt
	}
	code, ok := reply[0].(int64)
	if !ok {
		return nil, ErrRecordCorrupt
	}

	switch code {
	case rotateStatusNotFound:
		return nil, ErrCredentialNotFound
	case rotateStatusExpired:
		return nil, ErrCredentialExpired
	case rotateStatusNotActive:
		c, decodeErr := decodeReplyBlob(reply)
		if decodeErr != nil {
			return nil, decodeErr
		}
		return c, ErrCredentialNotActive
	case rotateStatusRotated:
		return decodeReplyBlob(reply)
	default:
		return nil, ErrRecordCorrupt
	}
}

func decodeReplyBlob(reply []interface{}) (*Credential, error) {
	if len(reply) < 2 {
		return nil, ErrRecordCorrupt
	}
	blob, ok := reply[1].(string)
	if !ok {
		return nil, ErrRecordCorrupt
	}
	return Decode([]byte(blob))
}

// RevokeByHash runs the single-record revocation script. Terminal and
// missing records are a no-op, which makes revocation idempotent.
//
//	Performance: 1 EVALSHA (GET + PTTL + SET + SREM).
func (s *RedisStore) RevokeByHash(ctx context.Context, hash [32]byte) (bool, error) {
	member := encodeHash(hash)

	raw, err := revokeCredentialLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(member)},
		s.identityPrefix(),
		member,
	).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	n, ok := raw.(int64)
	if !ok {
		return false, ErrRecordCorrupt
	}
	return n == 1, nil
}

// RevokeByID resolves the id index and revokes the record. Unknown ids are
// a no-op.
func (s *RedisStore) RevokeByID(ctx context.Context, id uuid.UUID) (bool, error) {
	member, err := s.redis.Get(ctx, s.idKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	raw, err := revokeCredentialLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(member)},
		s.identityPrefix(),
		member,
	).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	n, ok := raw.(int64)
	if !ok {
		return false, ErrRecordCorrupt
	}
	return n == 1, nil
}

// RevokeFamily revokes every active member of a family in one script run,
// so no rotation can interleave with a partial family sweep.
//
//	Performance: 1 EVALSHA, O(family size).
func (s *RedisStore) RevokeFamily(ctx context.Context, familyID uuid.UUID) (int, error) {
	return s.revokeSet(ctx, s.familyKey(familyID))
}

// RevokeAllForIdentity revokes every active record tracked for an identity.
//
//	Performance: 1 EVALSHA, O(active set size).
func (s *RedisStore) RevokeAllForIdentity(ctx context.Context, identityID string) (int, error) {
	return s.revokeSet(ctx, s.identityKey(identityID))
}

func (s *RedisStore) revokeSet(ctx context.Context, setKey string) (int, error) {
	raw, err := revokeSetLua.Run(
		ctx,
		s.redis,
		[]string{setKey},
		s.prefix+":",
		s.identityPrefix(),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	n, ok := raw.(int64)
	if !ok {
		return 0, ErrRecordCorrupt
	}
	return int(n), nil
}

// ActiveForIdentity fetches the identity's active records oldest first.
// Members whose records vanished, expired, or went terminal out from under
// the set are pruned as a side effect; expiry and status are terminal, so
// pruning never races a record back to life.
//
//	Performance: SMEMBERS + pipelined GETs.
func (s *RedisStore) ActiveForIdentity(ctx context.Context, identityID string) ([]*Credential, error) {
	members, err := s.redis.SMembers(ctx, s.identityKey(identityID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Credential{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(members) == 0 {
		return []*Credential{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(members))
	for i, member := range members {
		cmds[i] = pipe.Get(ctx, s.recordKey(member))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := time.Now()
	active := make([]*Credential, 0, len(members))
	var stale []interface{}

	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				stale = append(stale, members[i])
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, cmdErr)
		}
		c, decodeErr := Decode(data)
		if decodeErr != nil {
			continue
		}
		if c.Status != StatusActive || c.Expired(now) {
			// Expired records linger under the retention TTL for reuse
			// classification; they must not stay listed as sessions.
			stale = append(stale, members[i])
			continue
		}
		active = append(active, c)
	}

	if len(stale) > 0 {
		// Best effort: a failure here only delays cleanup.
		s.redis.SRem(ctx, s.identityKey(identityID), stale...)
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].CreatedAt != active[j].CreatedAt {
			return active[i].CreatedAt < active[j].CreatedAt
		}
		return string(active[i].ID[:]) < string(active[j].ID[:])
	})

	return active, nil
}

// ActiveCount returns the number of live records for an identity. The count
// classifies expiry the same way listing does, so a record retained for
// reuse classification never inflates it: the set cardinality alone would
// over-report until the retention TTL fires.
//
//	Performance: SMEMBERS + pipelined GETs.
func (s *RedisStore) ActiveCount(ctx context.Context, identityID string) (int, error) {
	active, err := s.ActiveForIdentity(ctx, identityID)
	if err != nil {
		return 0, err
	}
	return len(active), nil
}

// PurgeExpired is a no-op for Redis; native key TTLs retire records.
func (s *RedisStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

// Ping verifies connectivity and reports round-trip latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

var _ Store = (*RedisStore)(nil)
