package pgrag

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/edgeflare/pgrag/pkg/rag"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:     "query <text>",
	Aliases: []string{"ask", "q"},
	Short:   "Answer a query using the most similar documents as context",
	Example: `  pgrag query "What can I see from N Seoul Tower?"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if topK, _ := cmd.Flags().GetInt("top-k"); topK > 0 {
			cfg.Pipeline.TopK = topK
		}
		showContext, _ := cmd.Flags().GetBool("show-context")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		answer, err := a.pipeline.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if showContext {
			printResults(out, answer.Results)
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, strings.TrimSpace(answer.Response))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "List the documents most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _ := cmd.Flags().GetInt("k")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.pipeline.Retrieve(cmd.Context(), strings.Join(args, " "), k)
		if err != nil {
			return err
		}
		printResults(cmd.OutOrStdout(), results)
		return nil
	},
}

func init() {
	queryCmd.Flags().Bool("show-context", false, "print the retrieved documents before the answer")
	queryCmd.Flags().Int("top-k", 0, "number of documents to use as context (default from config)")
	searchCmd.Flags().IntP("k", "k", 5, "number of documents to return")
	rootCmd.AddCommand(queryCmd, searchCmd)
}

func printResults(w io.Writer, results []rag.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No documents found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSIMILARITY\tTITLE")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%.4f\t%s\n", i+1, r.Similarity, r.Title)
	}
	tw.Flush()
}
