package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/aclements/go-gg/table"
	"github.com/banshee-data/pixelgrid/internal/api"
	"github.com/banshee-data/pixelgrid/internal/config"
	"github.com/banshee-data/pixelgrid/internal/glyph"
	"github.com/banshee-data/pixelgrid/internal/grid"
	"github.com/banshee-data/pixelgrid/internal/raster"
	"github.com/banshee-data/pixelgrid/internal/reduction"
	"github.com/banshee-data/pixelgrid/internal/render"
	"github.com/banshee-data/pixelgrid/internal/security"
	"github.com/banshee-data/pixelgrid/internal/source/ggtable"
	"github.com/banshee-data/pixelgrid/internal/source/memory"
	"github.com/banshee-data/pixelgrid/internal/store"
)

func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return st, nil
}

func handleImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dbPath := fs.String("db", defaultDB, "Dataset store path")
	name := fs.String("name", "", "Dataset name (defaults to the file name without extension)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("usage: pixelgrid import [-db path] [-name name] file.csv")
	}
	path := fs.Arg(0)
	if *name == "" {
		base := filepath.Base(path)
		*name = base[:len(base)-len(filepath.Ext(base))]
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ds, err := st.ImportCSV(ctx, *name, path, f)
	if err != nil {
		return err
	}
	fmt.Printf("imported %q: %d rows (id %s)\n", ds.Name, ds.Rows, ds.ID)
	return nil
}

func handleDatasets(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("datasets", flag.ExitOnError)
	dbPath := fs.String("db", defaultDB, "Dataset store path")
	del := fs.String("delete", "", "Delete the named dataset")
	fs.Parse(args)

	st, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if *del != "" {
		if err := st.Delete(ctx, *del); err != nil {
			return err
		}
		fmt.Printf("deleted %q\n", *del)
		return nil
	}

	list, err := st.Datasets(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tROWS\tCREATED\tSOURCE\tID")
	for _, ds := range list {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", ds.Name, ds.Rows, ds.CreatedAt.Format(time.RFC3339), ds.Source, ds.ID)
	}
	return tw.Flush()
}

// renderFlags holds the canvas and styling flags shared by render
// invocations. Only flags given on the command line override the config
// file.
type renderFlags struct {
	configPath string
	width      int
	height     int
	xRange     string
	yRange     string
	xAxis      string
	yAxis      string
	partitions int
	timeout    time.Duration
	levels     int
	logColor   bool
}

func (rf *renderFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&rf.configPath, "config", "", "Render config JSON file")
	fs.IntVar(&rf.width, "width", raster.DefaultPlotSize, "Plot width in pixels")
	fs.IntVar(&rf.height, "height", raster.DefaultPlotSize, "Plot height in pixels")
	fs.StringVar(&rf.xRange, "x-range", "", "Fixed x data range lo,hi (default from data)")
	fs.StringVar(&rf.yRange, "y-range", "", "Fixed y data range lo,hi (default from data)")
	fs.StringVar(&rf.xAxis, "x-axis", "linear", "X axis type: linear or log")
	fs.StringVar(&rf.yAxis, "y-axis", "linear", "Y axis type: linear or log")
	fs.IntVar(&rf.partitions, "partitions", 1, "Split the data and aggregate partitions in parallel")
	fs.DurationVar(&rf.timeout, "timeout", 30*time.Second, "Abort rendering after this long")
	fs.IntVar(&rf.levels, "levels", 64, "Number of palette colors")
	fs.BoolVar(&rf.logColor, "log-color", false, "Color cells by log10 of their value")
}

// config loads the config file, if any, and applies the flags set on fs.
func (rf *renderFlags) config(fs *flag.FlagSet) (*config.RenderConfig, error) {
	cfg := config.DefaultRenderConfig()
	if rf.configPath != "" {
		loaded, err := config.LoadRenderConfig(rf.configPath)
		if err != nil {
			return nil, err
		}
		cfg = cfg.Merge(loaded)
	}

	override := &config.RenderConfig{}
	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			override.PlotWidth = &rf.width
		case "height":
			override.PlotHeight = &rf.height
		case "x-range":
			if override.XRange, err = config.ParseRange(rf.xRange); err != nil {
				err = fmt.Errorf("-x-range: %w", err)
			}
		case "y-range":
			if override.YRange, err = config.ParseRange(rf.yRange); err != nil {
				err = fmt.Errorf("-y-range: %w", err)
			}
		case "x-axis":
			override.XAxisType = &rf.xAxis
		case "y-axis":
			override.YAxisType = &rf.yAxis
		case "partitions":
			override.Partitions = &rf.partitions
		case "timeout":
			d := rf.timeout.String()
			override.Timeout = &d
		case "levels":
			override.ColorLevels = &rf.levels
		case "log-color":
			override.LogColor = &rf.logColor
		}
	})
	if err != nil {
		return nil, err
	}
	cfg = cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func handleRender(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	dbPath := fs.String("db", defaultDB, "Dataset store path")
	dataset := fs.String("dataset", "", "Stored dataset name or ID")
	csvPath := fs.String("csv", "", "Render a CSV file directly instead of a stored dataset")
	x := fs.String("x", "", "X column (required)")
	y := fs.String("y", "", "Y column (required)")
	kind := fs.String("glyph", "points", "Glyph: points or lines")
	agg := fs.String("agg", "count", "Reduction: count, any, sum:col, mean:col, min:col or max:col")
	out := fs.String("out", "", "Output file; .png, .html or .json (required, - for JSON on stdout)")
	title := fs.String("title", "", "Chart title")
	var rf renderFlags
	rf.register(fs)
	fs.Parse(args)

	if *x == "" || *y == "" || *out == "" {
		return errors.New("-x, -y and -out are required")
	}
	if (*dataset == "") == (*csvPath == "") {
		return errors.New("exactly one of -dataset or -csv is required")
	}

	format := render.JSON
	if *out != "-" {
		if err := security.ValidateOutputPath(*out); err != nil {
			return err
		}
		var err error
		if format, err = render.FormatFromPath(*out); err != nil {
			return err
		}
	}

	cfg, err := rf.config(fs)
	if err != nil {
		return err
	}
	cv, err := cfg.Canvas()
	if err != nil {
		return err
	}
	s, err := reduction.Parse(*agg)
	if err != nil {
		return err
	}
	var g glyph.Glyph
	switch *kind {
	case "points", "point":
		g = glyph.Point{X: *x, Y: *y}
	case "lines", "line":
		g = glyph.Line{X: *x, Y: *y}
	default:
		return fmt.Errorf("unknown glyph %q, want points or lines", *kind)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.GetTimeout())
	defer cancel()

	var source any
	if *csvPath != "" {
		source, err = csvSource(*csvPath, cfg.GetPartitions())
		if err != nil {
			return err
		}
	} else {
		st, err := openStore(*dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		tbl, err := st.Source(ctx, *dataset)
		if err != nil {
			return err
		}
		tbl.Partitions = cfg.GetPartitions()
		source = tbl
	}

	start := time.Now()
	result, err := raster.Bypixel(ctx, source, cv, g, s)
	if err != nil {
		return err
	}
	log.Printf("aggregated %s %s onto %s in %s", g, s, cv, time.Since(start).Round(time.Millisecond))

	if *title == "" {
		*title = fmt.Sprintf("%s %s", g, s)
	}
	return writeOutput(*out, result, format, render.Options{
		Title:       *title,
		ColorLevels: cfg.GetColorLevels(),
		LogColor:    cfg.GetLogColor(),
	})
}

// csvSource reads path with go-gg. With more than one partition the
// columns are copied into a memory.Frame and split for parallel
// aggregation.
func csvSource(path string, partitions int) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tab, err := ggtable.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if partitions <= 1 {
		return tab, nil
	}
	return splitTable(tab, partitions)
}

func splitTable(tab *table.Table, partitions int) (*memory.Partitioned, error) {
	frame := memory.NewFrame()
	for _, name := range tab.Columns() {
		if err := frame.Add(name, tab.Column(name)); err != nil {
			return nil, err
		}
	}
	return memory.Split(frame, partitions)
}

func writeOutput(out string, g *grid.Grid, format render.Format, o render.Options) error {
	if out == "-" {
		return render.Write(os.Stdout, g, format, o)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := render.Write(f, g, format, o); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("wrote %s", out)
	return nil
}

func handleServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", defaultDB, "Dataset store path")
	listen := fs.String("listen", ":8080", "Listen address")
	configPath := fs.String("config", "", "Render config JSON file for request defaults")
	fs.Parse(args)

	cfg := config.DefaultRenderConfig()
	if *configPath != "" {
		loaded, err := config.LoadRenderConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = cfg.Merge(loaded)
	}

	st, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	mux := api.NewServer(st, cfg).ServeMux()
	if err := st.AttachAdminRoutes(mux); err != nil {
		return err
	}
	mux.Handle("/", http.RedirectHandler("/api/datasets", http.StatusFound))
	return api.ListenAndServe(ctx, *listen, api.Handler(mux))
}

func handleMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", defaultDB, "Dataset store path")
	fs.Parse(args)

	st, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	action := "version"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}
	switch action {
	case "up":
		if err := st.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := st.MigrateDown(); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action %q, want up, down or version", action)
	}
	return printVersion(os.Stdout, st)
}

func printVersion(w io.Writer, st *store.Store) error {
	v, dirty, err := st.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "schema version %d", v)
	if dirty {
		fmt.Fprint(w, " (dirty)")
	}
	fmt.Fprintln(w)
	return nil
}
