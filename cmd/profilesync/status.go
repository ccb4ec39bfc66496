package main

import (
	"github.com/spf13/cobra"
	"profilesync/pkg/checkpoint"
	"profilesync/pkg/ui"
)

var clearJournal bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the journal of the last sync run",
	Long: `Show counts from the last sync run against the configured workbook.

The journal is updated after every batch, so a run that crashed still shows
how far it got and which queue items could not be marked. The queue worksheet
stays the source of truth; the next sync picks up every PENDING item.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&clearJournal, "clear", false, "delete the journal after printing it")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	journal, err := checkpoint.NewManager(journalTarget(cfg))
	if err != nil {
		return err
	}
	run, err := journal.Load()
	if err != nil {
		return err
	}
	if run == nil {
		ui.PrintWarning("No sync run recorded for " + journalTarget(cfg))
		return nil
	}

	ui.PrintRun(ui.Output, run)
	if clearJournal {
		if err := journal.Delete(); err != nil {
			return err
		}
		ui.PrintSuccess("Journal cleared")
	}
	return nil
}
