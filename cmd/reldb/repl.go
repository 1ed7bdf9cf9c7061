package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "serve-repl",
	Short: "Read semicolon-terminated SQL statements from stdin until EOF or 'quit'",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(configPath)
		if err != nil {
			return err
		}
		defer eng.Close()
		return runRepl(eng, os.Stdin, os.Stdout)
	},
}

// runRepl accumulates lines until a top-level semicolon closes a statement,
// matching exec's script-splitting convention so multi-line CREATE TABLE
// statements work the same at the prompt as from a file.
func runRepl(eng *appEngine, in io.Reader, out *os.File) error {
	scanner := bufio.NewScanner(in)
	var buf strings.Builder

	prompt := func() {
		if buf.Len() == 0 {
			fmt.Fprint(out, "reldb> ")
		} else {
			fmt.Fprint(out, "   -> ")
		}
	}

	prompt()
	for scanner.Scan() {
		line := scanner.Text()
		if buf.Len() == 0 && strings.EqualFold(strings.TrimSpace(line), "quit") {
			return nil
		}
		buf.WriteString(line)
		buf.WriteString("\n")

		inString, closed := false, false
		for _, r := range buf.String() {
			switch {
			case r == '\'':
				inString = !inString
				closed = false
			case inString:
			case r == ';':
				closed = true
			case r != ' ' && r != '\t' && r != '\n' && r != '\r':
				closed = false
			}
		}
		if closed {
			for _, stmt := range splitStatements(buf.String()) {
				if strings.TrimSpace(stmt) == "" {
					continue
				}
				if err := execOne(eng, stmt, out); err != nil {
					fmt.Fprintln(out, "error:", err)
				}
			}
			buf.Reset()
		}
		prompt()
	}
	fmt.Fprintln(out)
	return scanner.Err()
}
