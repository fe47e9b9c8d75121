package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func newHS256Manager(t *testing.T, cfg Config) *Manager {
	t.Helper()

	cfg.SigningMethod = MethodHS256
	if cfg.PrivateKey == nil {
		cfg.PrivateKey = []byte("test-secret")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = time.Minute
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestCreateParseHS256(t *testing.T) {
	m := newHS256Manager(t, Config{
		Issuer:   "refreshguard-test",
		Audience: "api",
		Scope:    []string{"read", "write"},
	})

	token, err := m.CreateAccess("identity-1", "cred-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.UID != "identity-1" || claims.CID != "cred-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "identity-1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if len(claims.Scope) != 2 || claims.Scope[0] != "read" {
		t.Fatalf("scope = %v", claims.Scope)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signer := newHS256Manager(t, Config{PrivateKey: []byte("secret-a")})
	verifier := newHS256Manager(t, Config{PrivateKey: []byte("secret-b")})

	token, err := signer.CreateAccess("identity-1", "")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := verifier.ParseAccess(token); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := newHS256Manager(t, Config{AccessTTL: time.Millisecond})

	token, err := m.CreateAccess("identity-1", "")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected expiry failure")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := newHS256Manager(t, Config{})
	if _, err := m.ParseAccess("not-a-token"); err == nil {
		t.Fatal("expected parse failure")
	}
}

func TestCreateParseEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "refreshguard-test",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := m.CreateAccess("identity-2", "cred-2")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.UID != "identity-2" || claims.CID != "cred-2" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestEd25519WrongKeyRejected(t *testing.T) {
	pubA, privA, _ := ed25519.GenerateKey(rand.Reader)
	pubB, _, _ := ed25519.GenerateKey(rand.Reader)
	_ = pubA

	signer, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    privA,
		PublicKey:     pubB,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := signer.CreateAccess("identity-3", "")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := signer.ParseAccess(token); err == nil {
		t.Fatal("expected verification failure with mismatched key pair")
	}
}

func TestVerifyKeysRequireKid(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)

	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub},
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := m.CreateAccess("identity-4", "")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := m.ParseAccess(token); err != nil {
		t.Fatalf("ParseAccess with kid failed: %v", err)
	}

	// A manager with verify keys but a token lacking kid must fail.
	signerNoKid, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	plain, err := signerNoKid.CreateAccess("identity-4", "")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := m.ParseAccess(plain); err == nil {
		t.Fatal("expected missing kid rejection")
	}
}

func TestNewManagerConfigValidation(t *testing.T) {
	if _, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("x")}); err == nil {
		t.Fatal("expected TTL validation error")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodHS256}); err == nil {
		t.Fatal("expected missing secret error")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: "rs256", PrivateKey: []byte("x")}); err == nil {
		t.Fatal("expected unsupported method error")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519}); err == nil {
		t.Fatal("expected missing verify key error")
	}
}
