package refreshguard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestIssueSuccess(t *testing.T) {
	engine, done := newTestEngine(t, engineTestConfig())
	defer done()

	pair, err := engine.Issue(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if pair.CredentialID == uuid.Nil || pair.FamilyID == uuid.Nil {
		t.Fatal("expected credential and family ids")
	}
	if pair.AccessExpiresIn != engineTestConfig().JWT.AccessTTL {
		t.Fatalf("AccessExpiresIn = %v", pair.AccessExpiresIn)
	}

	claims, err := engine.ValidateAccess(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if claims.UID != "alice" {
		t.Fatalf("claims.UID = %q", claims.UID)
	}
	if claims.CID != pair.CredentialID.String() {
		t.Fatalf("claims.CID = %q, want %q", claims.CID, pair.CredentialID)
	}
}

func TestIssueEmptyIdentityRejected(t *testing.T) {
	engine, done := newTestEngine(t, engineTestConfig())
	defer done()

	if _, err := engine.Issue(context.Background(), ""); !errors.Is(err, ErrIssueFailed) {
		t.Fatalf("expected ErrIssueFailed, got %v", err)
	}
}

func TestIssueStartsDistinctFamilies(t *testing.T) {
	engine, done := newTestEngine(t, engineTestConfig())
	defer done()

	a, err := engine.Issue(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	b, err := engine.Issue(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if a.FamilyID == b.FamilyID {
		t.Fatal("independent logins must start independent families")
	}
}

func TestIssueRecordsContextMetadata(t *testing.T) {
	engine, done := newTestEngine(t, engineTestConfig())
	defer done()

	ctx := WithClientIP(context.Background(), "10.1.2.3")
	ctx = WithUserAgent(ctx, "cli/1.0")

	if _, err := engine.Issue(ctx, "alice"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	infos, err := engine.ActiveCredentials(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ActiveCredentials failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 credential, got %d", len(infos))
	}
	if !strings.Contains(infos[0].Context, "10.1.2.3") || !strings.Contains(infos[0].Context, "cli/1.0") {
		t.Fatalf("context metadata missing: %q", infos[0].Context)
	}
}

func TestIssueCountsMetric(t *testing.T) {
	engine, done := newTestEngine(t, engineTestConfig())
	defer done()

	if _, err := engine.Issue(context.Background(), "alice"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricIssueSuccess] != 1 {
		t.Fatalf("MetricIssueSuccess = %d", snap.Counters[MetricIssueSuccess])
	}
}
