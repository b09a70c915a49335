// Package app wires configuration into a store, identity verifiers and an
// engine for the CLI and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"focusflow/internal/ai"
	"focusflow/internal/config"
	"focusflow/internal/db"
	"focusflow/internal/engine"
	"focusflow/internal/identity"
	"focusflow/internal/migrate"
	"focusflow/internal/repo"
)

var ErrMissingMongoURI = errors.New("store driver mongo requires a mongo uri (store.mongo_uri or FOCUSFLOW_MONGO_URI)")

type Options struct {
	Workspace string
	Config    *config.Config
	// MongoURI overrides store.mongo_uri.
	MongoURI string
	// APIKey is the language-model credential; empty disables AI.
	APIKey string
	Logger *log.Logger
}

func (o Options) config() *config.Config {
	if o.Config != nil {
		return o.Config
	}
	return config.Default()
}

// OpenStore opens the configured backend. SQLite databases are migrated to
// the latest schema.
func OpenStore(ctx context.Context, opts Options) (repo.Store, error) {
	cfg := opts.config()
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Driver)) {
	case "", config.DriverSQLite:
		conn, err := db.Open(db.Config{Workspace: opts.Workspace})
		if err != nil {
			return nil, err
		}
		if _, err := migrate.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return repo.NewSQLite(conn), nil
	case config.DriverMongo:
		uri := opts.MongoURI
		if uri == "" {
			uri = cfg.Store.MongoURI
		}
		if uri == "" {
			return nil, ErrMissingMongoURI
		}
		database := cfg.Store.Database
		if database == "" {
			database = "focusflow"
		}
		return repo.OpenMongo(ctx, uri, database)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Identity builds the token issuer and the verifier chain. A Firebase
// verifier joins the chain when a credentials file is configured.
func Identity(ctx context.Context, cfg *config.Config, secret string) (*identity.Issuer, identity.Verifier, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	issuer := &identity.Issuer{Secret: secret}
	if cfg.Auth.TokenTTLHours > 0 {
		issuer.TTL = time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
	}
	chain := identity.Chain{issuer}
	if path := strings.TrimSpace(cfg.Auth.FirebaseCredentialsFile); path != "" {
		fb, err := identity.NewFirebaseVerifier(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("firebase: %w", err)
		}
		chain = append(chain, fb)
	}
	return issuer, chain, nil
}

func Assistant(cfg *config.Config, apiKey string, logger *log.Logger) *ai.Client {
	if cfg == nil {
		cfg = config.Default()
	}
	var timeout time.Duration
	if cfg.AI.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	}
	return ai.New(ai.Config{
		APIKey:              apiKey,
		Endpoint:            cfg.AI.Endpoint,
		Model:               cfg.AI.Model,
		MaxTokens:           cfg.AI.MaxTokens,
		CategorizeMaxTokens: cfg.AI.CategorizeMaxTokens,
		Timeout:             timeout,
		Logger:              logger,
	})
}

// Open returns a ready engine. The caller closes Engine.Store.
func Open(ctx context.Context, opts Options) (engine.Engine, error) {
	store, err := OpenStore(ctx, opts)
	if err != nil {
		return engine.Engine{}, err
	}
	cfg := opts.config()
	return engine.New(store, cfg, Assistant(cfg, opts.APIKey, opts.Logger)), nil
}
