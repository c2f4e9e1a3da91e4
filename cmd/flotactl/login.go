package main

import (
	"fmt"
	"os"

	"flota_console/internal/app"
	"flota_console/internal/config"
	"flota_console/internal/logger"
	"flota_console/internal/metrics"
	"flota_console/internal/session"
	"flota_console/pkg/apperrors"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session; prints the session id",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account e-mail")
	loginCmd.Flags().StringVar(&loginPassword, "password", os.Getenv("FLOTA_PASSWORD"), "account password (or FLOTA_PASSWORD)")
	_ = loginCmd.MarkFlagRequired("email")
}

// openSessions builds a session manager for one-shot commands. Logs go to
// stderr so stdout stays machine-readable.
func openSessions() (*session.Manager, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.InitWithWriter(cfg.Server.Env, os.Stderr)

	db, err := session.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := session.Migrate(db); err != nil {
		return nil, nil, err
	}
	// One-shot commands never touch attachments.
	mgr := app.NewSessionManager(cfg, db, nil, metrics.New())
	cleanup := func() {
		mgr.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return mgr, cleanup, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	if loginPassword == "" {
		return fmt.Errorf("--password or FLOTA_PASSWORD is required")
	}
	mgr, cleanup, err := openSessions()
	if err != nil {
		return err
	}
	defer cleanup()

	live, err := mgr.Login(cmd.Context(), loginEmail, loginPassword)
	if err != nil {
		return fmt.Errorf("login failed: %s", apperrors.UserMessage(err))
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Signed in as %s (%s)\n", live.User.DisplayName(), live.User.Cargo)
	fmt.Fprintln(cmd.OutOrStdout(), live.ID)
	return nil
}
