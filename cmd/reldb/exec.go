package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var execFile string

var execCmd = &cobra.Command{
	Use:   "exec [sql]",
	Short: "Run one or more SQL statements against the engine",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text string
		switch {
		case execFile != "":
			data, err := os.ReadFile(execFile) // #nosec G304 - path supplied by caller/CLI flag
			if err != nil {
				return err
			}
			text = string(data)
		case len(args) == 1:
			text = args[0]
		default:
			return cobra.ExactArgs(1)(cmd, args)
		}

		eng, err := openEngine(configPath)
		if err != nil {
			return err
		}
		defer eng.Close()

		for _, stmt := range splitStatements(text) {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if err := execOne(eng, stmt, os.Stdout); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	execCmd.Flags().StringVarP(&execFile, "file", "f", "", "read SQL statements from a file instead of the argument")
}

// splitStatements splits a SQL script on top-level semicolons, treating
// single-quoted string literals as opaque the same way the dispatcher's
// splitTopLevel does for commas.
func splitStatements(text string) []string {
	var stmts []string
	var cur strings.Builder
	inString := false
	for _, r := range text {
		switch {
		case r == '\'':
			inString = !inString
			cur.WriteRune(r)
		case r == ';' && !inString:
			stmts = append(stmts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		stmts = append(stmts, cur.String())
	}
	return stmts
}
