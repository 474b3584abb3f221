package pgrag

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the vector extension and the documents table",
	Long: `Creates the pgvector extension and the documents table if they do not exist, and
checks that an existing table declares the configured embedding dimension.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if index, _ := cmd.Flags().GetBool("index"); index {
			cfg.Store.CreateIndex = true
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.EnsureSchema(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Table %s ready (vector(%d))\n", cfg.Store.Table, cfg.Store.Dimensions)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("index", false, "also create an HNSW cosine index on the embedding column")
	rootCmd.AddCommand(initCmd)
}
