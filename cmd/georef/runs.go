package main

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/georef/internal/rundb"
)

func handleRuns(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	dbPath := fs.String("run-db", "", "SQLite run ledger path (required)")
	limit := fs.Int("limit", 20, "Maximum runs to list, 0 for all")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *dbPath == "" {
		return fmt.Errorf("%w: --run-db is required", errUsage)
	}

	db, err := rundb.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return listRuns(rundb.NewRunStore(db.DB), *limit, stdout)
}

func listRuns(store *rundb.RunStore, limit int, stdout io.Writer) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tWRITTEN\tSKIPPED\tDIGEST\tOUTPUT")
	for _, r := range runs {
		status := r.Status
		if r.ErrorKind != "" {
			status += " (" + r.ErrorKind + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.RunID,
			time.Unix(0, r.StartedAtNs).UTC().Format(time.RFC3339),
			status,
			r.RecordsWritten,
			r.PointsSkipped,
			r.OutputDigest,
			r.OutputPath,
		)
	}
	return tw.Flush()
}
