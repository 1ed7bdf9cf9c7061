// Command reldb is the outer collaborator the storage/index/executor/
// dispatcher packages are built to serve: a thin cobra CLI that parses SQL
// text through internal/dispatcher and drives internal/executor, the same
// way cmd/bd sits atop internal/storage without owning any storage logic
// itself.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "reldb",
	Short: "reldb - a page-file-backed relational storage engine",
	Long:  `A SQL-driven relational storage engine: slotted page files, a JSON schema catalog, B-tree indexes, and a bounded SQL dispatcher.`,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "reldb.yaml", "path to the engine config file (absent is not an error)")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(replCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "reldb:", err)
		os.Exit(1)
	}
}
