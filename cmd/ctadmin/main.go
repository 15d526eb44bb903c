package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	changetracking "github.com/EelisK/gorm-changetracking"
)

var (
	rootCmd = &cobra.Command{
		Use:           "ctadmin",
		Short:         "Manage SQL Server change tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	dsn      string
	database string
	log      *zap.Logger

	openTracker = tracker
)

func main() {
	var err error
	log, err = zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", os.Getenv("CT_DSN"), "sqlserver connection string (env CT_DSN)")
	rootCmd.PersistentFlags().StringVar(&database, "database", "", "database name, defaults to the one in the connection string")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func tracker() (*changetracking.Tracker, error) {
	if dsn == "" {
		return nil, fmt.Errorf("ctadmin: --dsn or CT_DSN is required")
	}
	db, err := gorm.Open(sqlserver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := db.Use(&changetracking.Plugin{Config: changetracking.Config{Database: database}}); err != nil {
		return nil, err
	}
	return changetracking.From(db)
}
