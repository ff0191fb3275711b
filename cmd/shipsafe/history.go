package shipsafe

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shipsafe/shipsafe/internal/audit"
	"github.com/shipsafe/shipsafe/internal/config"
)

var (
	flagHistoryPath string
	flagHistoryDB   bool
	flagHistoryN    int
)

func init() {
	cmd := &cobra.Command{
		Use:   "history [path]",
		Short: "List previous scans",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	cmd.Flags().StringVar(&flagHistoryPath, "file", "", "history file (default: inside .git of the scanned path)")
	cmd.Flags().BoolVar(&flagHistoryDB, "db", false, "read from the Postgres history at DATABASE_URL")
	cmd.Flags().IntVarP(&flagHistoryN, "limit", "n", 20, "show at most this many scans")

	del := &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete a scan from the local history by its list index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			if err := historyLog(nil).Delete(i); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted scan", i)
			return nil
		},
	}
	cmd.AddCommand(del)
	rootCmd.AddCommand(cmd)
}

func historyLog(args []string) *audit.Log {
	if flagHistoryPath != "" {
		return audit.NewLogAt(flagHistoryPath)
	}
	root := localRoot(scanTarget(args))
	if root == "" {
		root = "."
	}
	return audit.NewLog(root)
}

func runHistory(cmd *cobra.Command, args []string) error {
	var (
		records []audit.ScanRecord
		err     error
	)
	if flagHistoryDB {
		url := config.LoadEnv().DatabaseURL
		if url == "" {
			return fmt.Errorf("--db needs DATABASE_URL")
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		store, err := audit.OpenPG(ctx, url)
		if err != nil {
			return err
		}
		defer store.Close()
		if records, err = store.Recent(ctx, flagHistoryN); err != nil {
			return err
		}
	} else {
		records, err = historyLog(args).LoadHistory()
		if err != nil {
			return err
		}
		if flagHistoryN > 0 && len(records) > flagHistoryN {
			records = records[:flagHistoryN]
		}
	}
	return audit.PrintHistory(cmd.OutOrStdout(), records)
}
