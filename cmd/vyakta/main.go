// Command vyakta runs the Vyakta blog server and its maintenance tasks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parth-105/Vyakta"
)

var version = "dev"

var (
	configPath string
	logger     *zap.Logger
	cfg        vyakta.SiteConfig
)

var rootCmd = &cobra.Command{
	Use:           "vyakta",
	Short:         "Vyakta blog CMS",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = vyakta.LoadConfig(configPath)
		if err != nil {
			return err
		}
		logger, err = vyakta.NewLogger(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app := vyakta.New(cfg, logger)
		defer app.Close()
		if err := app.Setup(ctx); err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() { errCh <- app.Start(ctx) }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			logger.Info("Received shutdown signal")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var (
	userName     string
	userEmail    string
	userPassword string
	userRole     string
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin or editor account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *vyakta.Service) error {
			u, err := svc.CreateUser(ctx, userName, userEmail, userPassword, vyakta.Role(userRole))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", u.Role, u.Email, u.ID)
			return nil
		})
	},
}

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Recompute reading time, excerpts and SEO scores for all posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *vyakta.Service) error {
			n, err := svc.Rescore(ctx)
			if err != nil {
				return err
			}
			logger.Info("rescored posts", zap.Int("changed", n))
			return nil
		})
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *vyakta.Service) error {
			n, err := svc.Reindex(ctx)
			if err != nil {
				return err
			}
			logger.Info("reindexed posts", zap.Int("documents", n))
			return nil
		})
	},
}

var recountCmd = &cobra.Command{
	Use:   "recount",
	Short: "Recount published posts for every category",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *vyakta.Service) error {
			if err := svc.RecountAll(ctx); err != nil {
				return err
			}
			logger.Info("recounted categories")
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "vyakta", version)
	},
}

// withService opens the app without serving HTTP and runs fn against its
// service.
func withService(ctx context.Context, fn func(context.Context, *vyakta.Service) error) error {
	app := vyakta.New(cfg, logger)
	defer app.Close()
	if err := app.Setup(ctx); err != nil {
		return err
	}
	return fn(ctx, app.Service)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")

	userCreateCmd.Flags().StringVar(&userName, "name", "", "Display name (required)")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Login email (required)")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Password, at least 8 characters (required)")
	userCreateCmd.Flags().StringVar(&userRole, "role", string(vyakta.RoleEditor), "admin or editor")
	userCreateCmd.MarkFlagRequired("name")
	userCreateCmd.MarkFlagRequired("email")
	userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(rescoreCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(recountCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
