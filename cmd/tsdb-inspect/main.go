// Command tsdb-inspect prints the contents of a saved dashboard session
// file in tabular form, for quick inspection without opening a viewer.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/grafana/tsdb/pkg/session"
)

func main() {
	path := flag.String("session", "", "Path to a dashboard session JSON file.")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: tsdb-inspect -session <path>")
		os.Exit(2)
	}

	if err := run(*path); err != nil {
		fmt.Fprintf(os.Stderr, "tsdb-inspect: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	s, err := session.Load(path)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"slot", "type", "curves"})

	for i, item := range s.Dashboard {
		curves := "-"
		if len(item.Curves) > 0 {
			curves = fmt.Sprintf("%v", item.Curves)
		}
		t.AppendRows([]table.Row{
			{i, string(item.Kind), curves},
		})
	}

	t.AppendSeparator()
	t.Render()
	return nil
}
