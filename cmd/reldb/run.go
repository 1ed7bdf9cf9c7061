package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/corestore/reldb/internal/dispatcher"
	"github.com/corestore/reldb/internal/executor"
	"github.com/corestore/reldb/internal/indexmgr"
)

// indexInfoRow flattens indexmgr.IndexInfo for tabwriter output.
type indexInfoRow struct {
	name       string
	table      string
	column     string
	unique     bool
	primary    bool
	keyCount   int
	entryCount int
}

func fromIndexInfo(infos []indexmgr.IndexInfo) []indexInfoRow {
	rows := make([]indexInfoRow, len(infos))
	for i, ix := range infos {
		rows[i] = indexInfoRow{
			name: ix.IndexName, table: ix.TableName, column: ix.ColumnName,
			unique: ix.Unique, primary: ix.Primary,
			keyCount: ix.Stats.KeyCount, entryCount: ix.Stats.EntryCount,
		}
	}
	return rows
}

// execOne parses and runs one SQL statement against eng, writing
// human-readable output to out. Mirrors cmd/bd's one-command-at-a-time
// dispatch: the CLI never batches statements into a transaction.
func execOne(eng *appEngine, sql string, out *os.File) error {
	stmt, err := dispatcher.Parse(sql)
	if err != nil {
		return err
	}
	return runStatement(eng, stmt, out)
}

func runStatement(eng *appEngine, stmt *dispatcher.Statement, out *os.File) error {
	switch stmt.Kind {
	case "CREATE_TABLE":
		ts, err := eng.exec.CreateTable(*stmt.CreateTable)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "table %q created\n", ts.TableName)
		return nil

	case "DROP_TABLE":
		if err := eng.exec.DropTable(stmt.DropTable.TableName, stmt.DropTable.IfExists); err != nil {
			return err
		}
		fmt.Fprintf(out, "table %q dropped\n", stmt.DropTable.TableName)
		return nil

	case "INSERT":
		row, err := eng.exec.Insert(*stmt.Insert)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "1 row inserted (row_id=%d)\n", row.RowID)
		return nil

	case "SELECT":
		rows, err := eng.exec.Select(*stmt.Select)
		if err != nil {
			return err
		}
		printRows(out, rows)
		fmt.Fprintf(out, "(%d row(s))\n", len(rows))
		return nil

	case "JOIN":
		rows, err := eng.exec.Join(*stmt.Join)
		if err != nil {
			return err
		}
		printRows(out, rows)
		fmt.Fprintf(out, "(%d row(s))\n", len(rows))
		return nil

	case "UPDATE":
		n, err := eng.exec.Update(*stmt.Update)
		if err != nil {
			fmt.Fprintf(out, "%d row(s) updated before failure\n", n)
			return err
		}
		fmt.Fprintf(out, "%d row(s) updated\n", n)
		return nil

	case "DELETE":
		n, err := eng.exec.Delete(*stmt.Delete)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d row(s) deleted\n", n)
		return nil

	case "SHOW_TABLES":
		printTables(out, eng)
		return nil

	case "SHOW_INDEXES":
		printIndexes(out, eng, "")
		return nil

	case "DESCRIBE":
		return printDescribe(out, eng, stmt.DescribeTable)

	case "EXPLAIN":
		return runExplain(eng, stmt.Explain, out)

	default:
		return fmt.Errorf("unhandled statement kind %q", stmt.Kind)
	}
}

func printRows(out *os.File, rows []executor.ResultRow) {
	if len(rows) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	cols := rows[0].Columns
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
	for _, r := range rows {
		for i, c := range cols {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			v := r.Get(c)
			if v.IsNull() {
				fmt.Fprint(w, "NULL")
			} else {
				fmt.Fprint(w, v.Text())
			}
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}

func printTables(out *os.File, eng *appEngine) {
	names := eng.catalog.ListTables()
	sort.Strings(names)
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "table\trows")
	for _, n := range names {
		ts, err := eng.catalog.Get(n)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\n", n, ts.RowCount)
	}
	w.Flush()
}

func printIndexes(out *os.File, eng *appEngine, table string) {
	var infos []indexInfoRow
	if table != "" {
		infos = fromIndexInfo(eng.indexes.TableIndexes(table))
	} else {
		infos = fromIndexInfo(eng.indexes.AllIndexes())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].name < infos[j].name })

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "index\ttable\tcolumn\tunique\tprimary\tkeys\tentries")
	for _, ix := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%d\t%d\n",
			ix.name, ix.table, ix.column, ix.unique, ix.primary, ix.keyCount, ix.entryCount)
	}
	w.Flush()
}

func printDescribe(out *os.File, eng *appEngine, table string) error {
	ts, err := eng.catalog.Get(table)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "column\ttype\tnullable\tdefault")
	for _, c := range ts.Columns {
		def := ""
		if c.DefaultValue != nil {
			def = *c.DefaultValue
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", c.Name, c.DataType, c.Nullable, def)
	}
	w.Flush()
	printIndexes(out, eng, table)
	return nil
}

func runExplain(eng *appEngine, inner *dispatcher.Statement, out *os.File) error {
	if err := runStatement(eng, inner, out); err != nil {
		return err
	}
	plan := eng.exec.LastPlan()
	fmt.Fprintf(out, "\nquery_type=%s table=%s index_used=%t", plan.QueryType, plan.Table, plan.IndexUsed)
	if plan.IndexUsed {
		fmt.Fprintf(out, " index_name=%s index_column=%s index_operation=%s", plan.IndexName, plan.IndexColumn, plan.IndexOperation)
	}
	fmt.Fprintf(out, " rows_scanned=%d rows_returned=%d execution_time_ms=%.3f\n",
		plan.RowsScanned, plan.RowsReturned, plan.ExecutionTimeMs)
	return nil
}
