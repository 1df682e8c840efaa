// cmd/masteradmin/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/auth"
	"github.com/dangerclosesec/masteradmin/internal/handler"
	"github.com/dangerclosesec/masteradmin/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
)

var serveMigrate bool

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Create the remote tables before starting (database mode)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync engine and the admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required to serve the admin API")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, serveMigrate)
	if err != nil {
		return err
	}
	defer a.Close()

	bootCtx, cancel := context.WithTimeout(ctx, cfg.Sync.ReconcileTimeout)
	err = a.engine.Bootstrap(bootCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("bootstrapping: %w", err)
	}
	a.engine.Start(ctx)

	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiryPeriod)
	admin := auth.NewAdmin(cfg.Admin.Email, cfg.Admin.PasswordHash, auth.NewPasswordHasher(), tokenManager)
	if !admin.Configured() {
		logger.Warn("no master admin credentials configured, login is disabled")
	}

	authHandler := handler.NewAuthHandler(admin)
	adminHandler := handler.NewAdminHandler(a.engine)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(a.metrics.Middleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoveryMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","backend":%q}`, a.engine.Backend())
	})
	r.Handle("/metrics", a.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(chimw.AllowContentType("application/json"))
			r.Post("/login", authHandler.LoginHandler)
			r.Post("/logout", authHandler.LogoutHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(tokenManager))

			// Long-lived stream, outside the request timeout.
			r.Get("/events", adminHandler.Events)

			r.Group(func(r chi.Router) {
				r.Use(chimw.Timeout(30 * time.Second))
				r.Use(chimw.AllowContentType("application/json"))
				adminHandler.Routes(r)
			})
		})
	})

	// The write timeout would cut the event stream, so it only bounds
	// headers here and chimw.Timeout bounds the JSON routes.
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "backend", a.engine.Backend())
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown started")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"duration", time.Since(start),
					"status", ww.Status(),
					"size", ww.BytesWritten(),
					"requestID", chimw.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func recoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						"panic", rvr,
						"stack", string(debug.Stack()),
						"requestID", chimw.GetReqID(r.Context()),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"error encountered"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
