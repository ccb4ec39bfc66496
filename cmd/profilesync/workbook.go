package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"profilesync/pkg/table/sqlitetable"
	"profilesync/pkg/ui"
)

// workbookCmd represents the workbook command
var workbookCmd = &cobra.Command{
	Use:   "workbook",
	Short: "Manage the local SQLite workbook",
}

var workbookInitCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create the profiles, queue and tags worksheets",
	Example: `  profilesync workbook init --backend sqlite --db ./profiles.db`,
	Args:    cobra.NoArgs,
	RunE:    runWorkbookInit,
}

func init() {
	rootCmd.AddCommand(workbookCmd)
	workbookCmd.AddCommand(workbookInitCmd)
}

func runWorkbookInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if !strings.EqualFold(cfg.Table.Backend, "sqlite") {
		return fmt.Errorf("workbook init only applies to the sqlite backend, configured backend is %q", cfg.Table.Backend)
	}

	store, err := sqlitetable.Open(cfg.Table.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := initWorkbook(cmd.Context(), store, cfg); err != nil {
		return err
	}
	ui.PrintSuccess("Workbook ready at " + cfg.Table.SQLitePath)
	return nil
}
