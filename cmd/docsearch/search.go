package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/docsearch/internal/searcher"
	"github.com/dshills/docsearch/pkg/types"
)

var (
	searchK            int
	searchAlpha        float64
	searchNoContext    bool
	searchSemanticOnly bool
	searchFileTypes    []string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the saved snapshot",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "limit", "k", searcher.DefaultK, "number of results")
	searchCmd.Flags().Float64Var(&searchAlpha, "alpha", -1, "semantic weight in [0, 1] (default from config)")
	searchCmd.Flags().BoolVar(&searchNoContext, "no-context", false, "skip context reranking")
	searchCmd.Flags().BoolVar(&searchSemanticOnly, "semantic", false, "skip keyword fusion")
	searchCmd.Flags().StringSliceVarP(&searchFileTypes, "types", "t", nil, "only return these extensions")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	req := searcher.Request{
		Query:        strings.Join(args, " "),
		K:            searchK,
		UseContext:   a.config.Search.UseContext && !searchNoContext,
		SemanticOnly: searchSemanticOnly,
		FileTypes:    searchFileTypes,
	}
	if cmd.Flags().Changed("alpha") {
		req.Alpha = types.Float64(searchAlpha)
	}

	resp, err := a.engine.Search(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(resp.Results) == 0 {
		fmt.Fprintln(out, "No results")
		return nil
	}

	fmt.Fprintf(out, "%d results (%s, %s)\n\n", len(resp.Results), resp.Method, resp.Duration.Round(time.Microsecond))
	for _, r := range resp.Results {
		fmt.Fprintf(out, "%d. %s\n   %s\n", r.Rank, r.Record.Path, searcher.Explain(r, resp.Alpha))
	}
	return nil
}
