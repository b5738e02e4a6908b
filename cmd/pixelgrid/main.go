package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/pixelgrid/internal/raster"
	"github.com/banshee-data/pixelgrid/internal/source/memory"
	"github.com/banshee-data/pixelgrid/internal/store"
	"github.com/banshee-data/pixelgrid/internal/version"

	// Source backends register their pipelines from init.
	_ "github.com/banshee-data/pixelgrid/internal/source/ggtable"
	_ "github.com/banshee-data/pixelgrid/internal/source/sqlsource"
)

const defaultDB = "pixelgrid.db"

var debugMode bool

func main() {
	flag.Usage = printUsage
	flag.BoolVar(&debugMode, "debug", false, "Log pipeline dispatch and kernel detail to stderr")
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}
	setupLogging(os.Stderr, debugMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "import":
		err = handleImport(ctx, args)
	case "datasets":
		err = handleDatasets(ctx, args)
	case "render":
		err = handleRender(ctx, args)
	case "serve":
		err = handleServe(ctx, args)
	case "migrate":
		err = handleMigrate(args)
	case "version":
		fmt.Println(version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

// setupLogging sends warnings from every package to w, and per-request
// detail too when debug is set.
func setupLogging(w io.Writer, debug bool) {
	var diag, trace io.Writer
	if debug {
		diag, trace = w, w
	}
	raster.SetLogWriters(w, diag, trace)
	store.SetLogWriters(w, diag)
	memory.SetLogWriter(diag)
}

func printUsage() {
	fmt.Println(`pixelgrid - render tabular data to fixed-size pixel grids

Usage: pixelgrid [-debug] <command> [options]

Commands:
  import     Import a CSV file into the dataset store
  datasets   List or delete stored datasets
  render     Aggregate a dataset or CSV file and write PNG, HTML or JSON
  serve      Serve the HTTP API and debug console
  migrate    Apply or roll back store migrations (up, down, version)
  version    Show pixelgrid version
  help       Show this help message

Examples:
  # Import trips.csv as "trips"
  pixelgrid import -name trips trips.csv

  # Mean fare per pixel on a 800x600 canvas
  pixelgrid render -dataset trips -x pickup_x -y pickup_y -agg mean:fare -width 800 -height 600 -out fares.png

  # Render a CSV directly, log-scaled y axis, split over 4 workers
  pixelgrid render -csv trips.csv -x distance -y duration -y-axis log -partitions 4 -out trips.html

  # Serve the API on :8080
  pixelgrid serve -listen :8080`)
}
