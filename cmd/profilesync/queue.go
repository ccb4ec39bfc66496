package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"profilesync/pkg/logger"
	"profilesync/pkg/queue"
	"profilesync/pkg/ui"
)

var queueFile string

// queueCmd represents the queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and fill the queue worksheet",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every queue item with its status",
	Args:  cobra.NoArgs,
	RunE:  runQueueList,
}

var queueAddCmd = &cobra.Command{
	Use:   "add [username...]",
	Short: "Append usernames to the queue as PENDING",
	Long: `Append usernames to the queue worksheet as PENDING rows.

Usernames already present in the queue, whatever their status, are skipped.
With --file, one username per line is read from the file ("-" for stdin).`,
	Example: `  profilesync queue add alice bob
  profilesync queue add --file usernames.txt`,
	RunE: runQueueAdd,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueAddCmd)

	queueAddCmd.Flags().StringVarP(&queueFile, "file", "f", "", "read usernames from a file, one per line")
}

func openQueue(cmd *cobra.Command) (*queue.Queue, func() error, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, nil, err
	}
	l := logger.GetLogger()

	wb, err := openWorkbook(cmd.Context(), cfg, l)
	if err != nil {
		return nil, nil, err
	}
	q, err := queue.Open(cmd.Context(), wb.client, cfg.Table.QueueSheet, l)
	if err != nil {
		wb.close()
		return nil, nil, err
	}
	return q, wb.close, nil
}

func runQueueList(cmd *cobra.Command, args []string) error {
	q, closeFn, err := openQueue(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	items, err := q.List(cmd.Context())
	if err != nil {
		return err
	}
	ui.PrintQueue(ui.Output, items)
	return nil
}

func runQueueAdd(cmd *cobra.Command, args []string) error {
	identifiers := append([]string(nil), args...)
	if queueFile != "" {
		fromFile, err := readIdentifiers(queueFile)
		if err != nil {
			return err
		}
		identifiers = append(identifiers, fromFile...)
	}
	if len(identifiers) == 0 {
		return fmt.Errorf("no usernames given")
	}

	q, closeFn, err := openQueue(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	added, err := q.Add(cmd.Context(), identifiers...)
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Queued %d of %d usernames", added, len(identifiers)))
	return nil
}

func readIdentifiers(path string) ([]string, error) {
	f := os.Stdin
	if path != "-" {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
	}

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}
