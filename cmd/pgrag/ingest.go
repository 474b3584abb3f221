package pgrag

import (
	"fmt"

	"github.com/edgeflare/pgrag/pkg/rag"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed and store documents",
	Long: `Embeds every document and inserts all of them in a single transaction. Without
--file the built-in Seoul landmark documents are ingested. If any embedding fails
nothing is stored.`,
	Example: `  pgrag ingest
  pgrag ingest --file docs.yaml --truncate`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringP("file", "f", "", "YAML or JSON file with documents (a list, or a mapping with a documents list)")
	ingestCmd.Flags().Bool("truncate", false, "remove existing documents first")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	file, _ := cmd.Flags().GetString("file")
	truncate, _ := cmd.Flags().GetBool("truncate")

	sources := rag.SampleSources()
	if file != "" {
		var err error
		if sources, err = rag.LoadSources(file); err != nil {
			return err
		}
		logger.Info("loaded documents", zap.String("file", file), zap.Int("documents", len(sources)))
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.EnsureSchema(ctx); err != nil {
		return err
	}
	if truncate {
		if err := a.store.Truncate(ctx); err != nil {
			return err
		}
	}

	n, err := a.pipeline.Ingest(ctx, sources)
	if err != nil {
		return err
	}

	total, err := a.store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d documents into %s (%d total)\n", n, cfg.Store.Table, total)
	return nil
}
