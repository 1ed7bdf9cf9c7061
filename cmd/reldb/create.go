package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corestore/reldb/internal/schemaimport"
)

var createCmd = &cobra.Command{
	Use:   "create <manifest.toml>",
	Short: "Provision a whole schema from a TOML table manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(configPath)
		if err != nil {
			return err
		}
		defer eng.Close()

		reqs, err := schemaimport.LoadFile(args[0])
		if err != nil {
			return err
		}
		for _, req := range reqs {
			ts, err := eng.exec.CreateTable(req)
			if err != nil {
				return fmt.Errorf("create table %q: %w", req.TableName, err)
			}
			fmt.Fprintf(os.Stdout, "table %q created (%d columns)\n", ts.TableName, len(ts.Columns))
		}
		return nil
	},
}
