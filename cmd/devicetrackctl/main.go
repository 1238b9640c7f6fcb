package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"device-tracking-backend/config"
	"device-tracking-backend/internal/db"
	"device-tracking-backend/internal/identity"
	"device-tracking-backend/internal/store"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "devicetrackctl: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:          "devicetrackctl",
		Short:        "Device tracking administration",
		Long:         `devicetrackctl provisions users who may sign in with their phone number and manages the database schema.`,
		SilenceUsage: true,
	}
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./config/config.yaml"
	}
	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", defaultPath, "Path to the configuration file")
	cmd.AddCommand(
		c.newUserCmd(),
		c.newMigrateCmd(),
	)
	return cmd
}

func (c *cli) open(migrate bool) (*gorm.DB, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", c.configPath, err)
	}
	if migrate {
		return db.Init(&cfg.Database, zap.NewNop())
	}
	return db.Open(&cfg.Database)
}

func (c *cli) directory() (*identity.Directory, func(), error) {
	gormDB, err := c.open(true)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return identity.NewDirectory(store.NewGormStore(gormDB)), closeDB, nil
}

func (c *cli) newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(c.newUserCreateCmd(), c.newUserExistsCmd())
	return cmd
}

func (c *cli) newUserCreateCmd() *cobra.Command {
	var phone, name string
	var admin bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a phone number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, closeDB, err := c.directory()
			if err != nil {
				return err
			}
			defer closeDB()

			user, err := dir.Create(cmd.Context(), phone, name, admin)
			if err != nil {
				return fmt.Errorf("error creating user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully created user: %s (%s)\n", user.ID, user.PhoneNumber)
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number in E.164 format, e.g. +919876543210")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin claim")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func (c *cli) newUserExistsCmd() *cobra.Command {
	var phone string
	cmd := &cobra.Command{
		Use:   "exists",
		Short: "Check whether a phone number is registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, closeDB, err := c.directory()
			if err != nil {
				return err
			}
			defer closeDB()

			exists, err := dir.Exists(cmd.Context(), phone)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%t\n", exists)
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number to look up")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func (c *cli) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, err := c.open(true)
			if err != nil {
				return err
			}
			if sqlDB, err := gormDB.DB(); err == nil {
				defer sqlDB.Close()
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database schema is up to date")
			return nil
		},
	}
}
