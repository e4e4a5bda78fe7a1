// Command georef motion-compensates a LiDAR point file against a pose
// trajectory.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/georef/internal/version"
)

func main() {
	flag.Usage = func() { printUsage(os.Stdout) }
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "run":
		err = handleRun(args, os.Stdout)
	case "check":
		err = handleCheck(args, os.Stdout)
	case "inspect":
		err = handleInspect(args, os.Stdout)
	case "runs":
		err = handleRuns(args, os.Stdout)
	case "version":
		fmt.Println(version.String())
	case "help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage(os.Stderr)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "georef %s: %v\n", command, err)
		os.Exit(exitCode(err))
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `georef - trajectory-synchronised motion compensation for mobile LiDAR

Usage: georef <command> [options]

Commands:
  run       Correct a point file against a pose file and write the result
  check     Validate that the pose file covers the point file; writes nothing
  inspect   Print a point, LAS or corrected output file's summary and records
  runs      List runs recorded in the run ledger
  version   Show georef version
  help      Show this help message

Run Flags:
  --points <file>            Input PLY point file (required)
  --poses <file>             Input pose text file (required)
  --out <file>               Output file (required)
  --config <file>            JSON or YAML configuration file
  --out-of-coverage <p>      skip | passthrough | stop
  --non-monotonic <p>        fail | skip
  --mode <m>                 delta | absolute | raw
  --compression <c>          none | zstd | lz4
  --header                   Prefix the output with a PLY header
  --plot-dir <dir>           Write PNG and HTML plots for the run
  --run-db <file>            Record the run in a SQLite ledger
  --debug                    Log header and probe details to stderr

Inspect Flags:
  -n <count>                 Records to print from each end (default 3)
  --corrected                Read the file as run output (.zst/.lz4 decompressed)
  A .las file prints its header, point count and bounds.

Examples:
  # Correct with defaults (skip uncovered points, write deltas)
  georef run --points scan.ply --poses traj.txt --out scan.corrected

  # Absolute positions, zstd output, recorded in a ledger
  georef run --points scan.ply --poses traj.txt --out scan.ply.zst \
    --mode absolute --header --compression zstd --run-db runs.db

  # Read back a compressed output
  georef inspect --corrected scan.ply.zst

  # Just check coverage
  georef check --points scan.ply --poses traj.txt`)
}
