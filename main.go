package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	intconfig "dispatch/internal/config"
	intdb "dispatch/internal/db"
	router "dispatch/internal/http"
	"dispatch/internal/http/handlers"
	"dispatch/internal/intent"
	"dispatch/internal/messaging"
	"dispatch/internal/metrics"
	"dispatch/internal/services"
	"dispatch/internal/utils"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var env intconfig.Env
	root := &cobra.Command{
		Use:           "dispatch",
		Short:         "Vehicle and driver dispatch service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if env, err = intconfig.LoadEnv(); err != nil {
				return err
			}
			_, err = utils.InitLogger(env.LogLevel)
			return err
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and the outbox drainer",
			RunE:  func(cmd *cobra.Command, args []string) error { return serve(cmd.Context(), env) },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the schema for the configured database",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := intconfig.ConnectDB(env)
				if err != nil {
					return err
				}
				defer intconfig.CloseDB()
				missing, err := intdb.MissingTables(cmd.Context(), db)
				if err != nil {
					return err
				}
				if len(missing) == 0 {
					utils.L().Info("schema already up to date", zap.String("driver", db.Dialect().Name()))
					return nil
				}
				if err := db.Migrate(cmd.Context()); err != nil {
					return err
				}
				utils.L().Info("schema ready", zap.String("driver", db.Dialect().Name()), zap.Strings("created", missing))
				return nil
			},
		},
		&cobra.Command{
			Use:   "expire-sessions",
			Short: "Sweep stale PENDING confirmation sessions to EXPIRED",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := intconfig.ConnectDB(env)
				if err != nil {
					return err
				}
				defer intconfig.CloseDB()
				n, err := services.ConfirmationService{DB: db, TTL: env.SessionTTL}.ExpireStale(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "expired %d sessions\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "drain-outbox",
			Short: "Publish pending outbox events once and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := intconfig.ConnectDB(env)
				if err != nil {
					return err
				}
				defer intconfig.CloseDB()
				pub, err := messaging.NewKafkaPublisher(env.KafkaBrokers)
				if err != nil {
					return err
				}
				defer pub.Close()
				n, err := messaging.NewOutboxDrainer(db, pub, env.OutboxDrainInterval, nil).Drain(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "published %d events\n", n)
				return nil
			},
		},
	)
	return root
}

func serve(parent context.Context, env intconfig.Env) error {
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := intconfig.ConnectDB(env)
	if err != nil {
		return err
	}
	defer intconfig.CloseDB()

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("dispatch", reg)

	var parser intent.Parser
	if env.GeminiAPIKey != "" {
		p, err := intent.NewGeminiParser(ctx, env.GeminiAPIKey, env.GeminiModel)
		if err != nil {
			return err
		}
		parser = p
	} else {
		utils.L().Warn("GEMINI_API_KEY not set, /api/actions/command is disabled")
	}

	api := &handlers.API{
		DB:                  db,
		Parser:              parser,
		Metrics:             m,
		ConflictWindow:      env.ConflictWindow,
		ConfidenceThreshold: env.ConfidenceThreshold,
		SessionTTL:          env.SessionTTL,
		EventsTopic:         env.EventsTopic,
		ParseTimeout:        env.ParseTimeout,
	}
	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           router.NewRouter(env, api, reg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.L().Info("server listening", zap.String("addr", env.AppAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if len(env.KafkaBrokers) > 0 {
		pub, err := messaging.NewKafkaPublisher(env.KafkaBrokers)
		if err != nil {
			return err
		}
		defer pub.Close()
		drainer := messaging.NewOutboxDrainer(db, pub, env.OutboxDrainInterval, m)
		g.Go(func() error {
			drainer.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		utils.L().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
