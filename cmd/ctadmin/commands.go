package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	changetracking "github.com/EelisK/gorm-changetracking"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database level change tracking",
	}
	dbEnableCmd = &cobra.Command{
		Use:   "enable",
		Short: "Enable change tracking for the database",
		Args:  cobra.NoArgs,
		RunE:  dbEnable,
	}
	dbDisableCmd = &cobra.Command{
		Use:   "disable",
		Short: "Disable change tracking for the database",
		Args:  cobra.NoArgs,
		RunE:  dbDisable,
	}

	tableCmd = &cobra.Command{
		Use:   "table",
		Short: "Table level change tracking",
	}
	tableEnableCmd = &cobra.Command{
		Use:   "enable <schema.table>",
		Short: "Enable change tracking for a table",
		Args:  cobra.ExactArgs(1),
		RunE:  tableEnable,
	}
	tableDisableCmd = &cobra.Command{
		Use:   "disable <schema.table>",
		Short: "Disable change tracking for a table",
		Args:  cobra.ExactArgs(1),
		RunE:  tableDisable,
	}

	versionCmd = &cobra.Command{
		Use:   "version [schema.table]",
		Short: "Print the current change tracking version, or the minimum valid version of a table",
		Args:  cobra.MaximumNArgs(1),
		RunE:  version,
	}

	enableFlags struct {
		retention    uint
		unit         string
		autoCleanup  bool
		trackColumns bool
	}
)

func init() {
	dbEnableCmd.Flags().UintVar(&enableFlags.retention, "retention", 2, "change retention period")
	dbEnableCmd.Flags().StringVar(&enableFlags.unit, "unit", "days", "retention unit: minutes, hours or days")
	dbEnableCmd.Flags().BoolVar(&enableFlags.autoCleanup, "auto-cleanup", true, "remove expired change information automatically")
	tableEnableCmd.Flags().BoolVar(&enableFlags.trackColumns, "track-columns", false, "record which columns an update changed")

	dbCmd.AddCommand(dbEnableCmd, dbDisableCmd)
	tableCmd.AddCommand(tableEnableCmd, tableDisableCmd)
	rootCmd.AddCommand(dbCmd, tableCmd, versionCmd)
}

func dbEnable(cmd *cobra.Command, args []string) error {
	measure, err := changetracking.ParseRetentionMeasure(enableFlags.unit)
	if err != nil {
		return err
	}
	tr, err := openTracker()
	if err != nil {
		return err
	}
	name, err := tr.DatabaseName()
	if err != nil {
		return err
	}
	if err := tr.EnableDatabaseContext(cmd.Context(), enableFlags.retention, measure, enableFlags.autoCleanup); err != nil {
		return err
	}
	log.Info("change tracking enabled",
		zap.String("database", name),
		zap.Uint("retention", enableFlags.retention),
		zap.Stringer("unit", measure),
		zap.Bool("auto_cleanup", enableFlags.autoCleanup))
	return nil
}

func dbDisable(cmd *cobra.Command, args []string) error {
	tr, err := openTracker()
	if err != nil {
		return err
	}
	name, err := tr.DatabaseName()
	if err != nil {
		return err
	}
	if err := tr.DisableDatabaseContext(cmd.Context()); err != nil {
		return err
	}
	log.Info("change tracking disabled", zap.String("database", name))
	return nil
}

func tableEnable(cmd *cobra.Command, args []string) error {
	tr, err := openTracker()
	if err != nil {
		return err
	}
	if err := tr.EnableTableContext(cmd.Context(), args[0], enableFlags.trackColumns); err != nil {
		return err
	}
	log.Info("table change tracking enabled", zap.String("table", args[0]), zap.Bool("track_columns", enableFlags.trackColumns))
	return nil
}

func tableDisable(cmd *cobra.Command, args []string) error {
	tr, err := openTracker()
	if err != nil {
		return err
	}
	if err := tr.DisableTableContext(cmd.Context(), args[0]); err != nil {
		return err
	}
	log.Info("table change tracking disabled", zap.String("table", args[0]))
	return nil
}

func version(cmd *cobra.Command, args []string) error {
	tr, err := openTracker()
	if err != nil {
		return err
	}
	var v int64
	if len(args) == 1 {
		v, err = tr.MinValidVersionContext(cmd.Context(), args[0])
	} else {
		v, err = tr.CurrentVersionContext(cmd.Context())
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}
