package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"focusflow/internal/app"
	"focusflow/internal/config"
	"focusflow/internal/events"
	"focusflow/internal/proxy"
	"focusflow/internal/server"
)

func newProxy(cfg *config.Config, variant string) http.Handler {
	if variant == "" {
		variant = cfg.Proxy.Variant
	}
	return proxy.New(proxy.Config{
		Variant:    variant,
		APIKey:     apiKey(),
		Upstream:   cfg.Proxy.Upstream,
		APIVersion: cfg.Proxy.APIVersion,
		RateLimit:  cfg.Proxy.RateLimit,
		Burst:      cfg.Proxy.Burst,
	})
}

func listenAndServe(ctx context.Context, srv *http.Server) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			secret := viper.GetString("jwt-secret")
			if secret == "" {
				return fmt.Errorf("FOCUSFLOW_JWT_SECRET is required for bearer auth")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			e, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Store.Close()
			e.TickInterval = time.Second
			issuer, verifier, err := app.Identity(ctx, cfg, secret)
			if err != nil {
				return err
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: basePath,
				Auth:     server.AuthConfig{Verifier: verifier, Issuer: issuer},
				Proxy:    newProxy(cfg, ""),
			})
			if err != nil {
				return err
			}
			server.StartWebhooks(ctx, e)
			defer events.Log(e.Events, nil, events.TasksUpdated, events.TaskCompleted, events.TimerCompleted)()
			if !e.AI.Configured() {
				fmt.Println("warning: no language-model credential; breakdown and categorize are disabled")
			}
			fmt.Printf("Serving FocusFlow API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs, proxy at /api/claude)\n", addr, basePath, basePath)
			return listenAndServe(ctx, &http.Server{Addr: addr, Handler: handler})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func proxyCmd() *cobra.Command {
	var addr, variant string
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run the language-model relay on its own",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Proxy.Addr
			}
			mux := http.NewServeMux()
			mux.Handle("/api/claude", newProxy(cfg, variant))
			fmt.Printf("Proxy listening on http://%s/api/claude\n", addr)
			return listenAndServe(cmd.Context(), &http.Server{Addr: addr, Handler: mux})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default proxy.addr)")
	cmd.Flags().StringVar(&variant, "variant", "", "function or local (default proxy.variant)")
	return cmd
}
