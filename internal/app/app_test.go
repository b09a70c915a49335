package app

import (
	"context"
	"errors"
	"testing"

	"focusflow/internal/config"
	"focusflow/internal/domain"
	"focusflow/internal/engine"
)

func TestOpenDefaultsToSQLite(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, Options{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer e.Store.Close()
	if e.AI == nil || e.AI.Configured() {
		t.Fatalf("expected unconfigured assistant without a key")
	}
	if _, err := e.CreateTask(ctx, engineTask("u1")); err != nil {
		t.Fatalf("create task: %v", err)
	}
}

func TestMongoWithoutURIFails(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverMongo
	cfg.Store.MongoURI = ""
	if _, err := OpenStore(context.Background(), Options{Workspace: t.TempDir(), Config: cfg}); !errors.Is(err, ErrMissingMongoURI) {
		t.Fatalf("expected missing uri error, got %v", err)
	}
}

func TestUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "postgres"
	if _, err := OpenStore(context.Background(), Options{Workspace: t.TempDir(), Config: cfg}); err == nil {
		t.Fatalf("expected unknown driver to fail")
	}
}

func TestIdentityChainVerifiesIssuedTokens(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Auth.TokenTTLHours = 1
	issuer, verifier, err := Identity(ctx, cfg, "secret")
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	token, id, err := issuer.IssueAnonymous("Jo")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := verifier.Verify(ctx, token)
	if err != nil || got.UserID != id.UserID || !got.Anonymous {
		t.Fatalf("verify: %v %+v", err, got)
	}
	if _, err := verifier.Verify(ctx, "garbage"); err == nil {
		t.Fatalf("expected garbage token to fail")
	}
}

func TestAssistantConfiguredWithKey(t *testing.T) {
	if !Assistant(nil, "sk-test", nil).Configured() {
		t.Fatalf("expected key to configure the assistant")
	}
	if Assistant(nil, "your_claude_api_key_here", nil).Configured() {
		t.Fatalf("placeholder key must not configure the assistant")
	}
}

func engineTask(userID string) engine.TaskCreateOptions {
	return engine.TaskCreateOptions{UserID: userID, Title: "Water plants", Category: domain.CategoryHousehold}
}
