package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/docsearch/internal/indexer"
)

var (
	indexFileTypes []string
	indexMaxFiles  int
)

var indexCmd = &cobra.Command{
	Use:   "index <folder>",
	Short: "Index a folder of documents and save a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringSliceVarP(&indexFileTypes, "types", "t", nil, "extensions to index (default .pdf,.docx,.txt)")
	indexCmd.Flags().IntVarP(&indexMaxFiles, "max-files", "n", 0, "maximum files to index (0 for no limit)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid folder: %w", err)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	stats, err := a.indexer.IndexDirectory(cmd.Context(), root, &indexer.ScanOptions{
		FileTypes: indexFileTypes,
		MaxFiles:  indexMaxFiles,
	})
	if err != nil {
		return err
	}

	if !stats.SnapshotSaved {
		if err := a.engine.Snapshot(); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned %d files, indexed %d, failed %d in %s\n",
		stats.FilesScanned, stats.DocumentsIndexed, stats.DocumentsFailed, stats.Duration.Round(time.Millisecond))
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(out, "  error: %s\n", msg)
	}
	fmt.Fprintf(out, "Snapshot saved to %s\n", a.config.SnapshotDir)
	return nil
}
