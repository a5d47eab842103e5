// Command visilearn learns the correlation/texture probability tables used to
// tell real scene change from illumination change in background subtraction.
//
// Usage:
//
//	visilearn [flags] { <background> <input image> <ground truth> [ - | <mask> ] } ...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	vl "visilearn/pkg/visilearn"
)

var errUsage = errors.New("usage")

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	cfg     vl.Config
	outDir  string
	samples string
	lang    vl.SourceLang
	pkg     string
	sets    []vl.ExampleSet
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, "usage: visilearn [flags] { <background> <input image> <ground truth> [ - | <mask> ] } ...\n\nFlags:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// parseArgs turns the command line into options. Usage problems are reported
// as errUsage after printing the usage text to stderr.
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("visilearn", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "JSON config file")
	outDir := fs.String("out", ".", "output directory for the LUT files")
	smoothing := fs.Float64("smoothing", 0, "additive smoothing constant (overrides config, default 0.1)")
	window := fs.Int("window", 0, "correlation window size, odd (overrides config, default 11)")
	workers := fs.Int("workers", 0, "example sets processed concurrently (overrides config, default 1)")
	samples := fs.String("samples", "", "also write every training sample to this matrix file")
	lang := fs.String("lang", string(vl.LangC), "generated LUT source: c, go, or empty for none")
	pkg := fs.String("package", "visilearn", "package name of generated Go source")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		printUsage(fs, stderr)
		return nil, errUsage
	}
	rest := fs.Args()
	if len(rest) < 4 || len(rest)%4 != 0 {
		printUsage(fs, stderr)
		return nil, errUsage
	}

	cfg := vl.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = vl.LoadConfig(*configPath); err != nil {
			return nil, err
		}
	}
	// Only flags given on the command line override the config.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "smoothing":
			cfg.Smoothing = *smoothing
		case "window":
			cfg.WindowSize = *window
		case "workers":
			cfg.Workers = *workers
		}
	})
	if *samples != "" {
		cfg.CollectSamples = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sl, err := vl.ParseSourceLang(*lang)
	if err != nil {
		return nil, err
	}

	opts := &options{cfg: cfg, outDir: *outDir, samples: *samples, lang: sl, pkg: *pkg}
	for i := 0; i < len(rest); i += 4 {
		opts.sets = append(opts.sets, vl.ExampleSet{
			Background:  rest[i],
			Input:       rest[i+1],
			GroundTruth: rest[i+2],
			Mask:        rest[i+3],
		})
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	trainer, err := vl.NewTrainer(opts.cfg, imageLoader{})
	if err != nil {
		return err
	}

	startTime := time.Now()
	result, err := trainer.Train(context.Background(), opts.sets)
	if err != nil {
		return err
	}
	for _, st := range result.Stats {
		fmt.Fprintf(stdout, "%s: %g%% inside image mask.\n", st.Name, st.Coverage())
	}

	if result.Samples != nil {
		if err := result.Samples.Save(opts.samples); err != nil {
			return fmt.Errorf("saving samples: %w", err)
		}
		fmt.Fprintf(stdout, "%d pixels stored in '%s'.\n", result.Samples.Rows(), opts.samples)
	}

	model, err := vl.Export(result.Accumulator, opts.cfg.Smoothing)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "PF = %g%%\n", 100*model.Prior)

	written, err := model.Save(opts.outDir, vl.SaveOptions{Lang: opts.lang, Package: opts.pkg})
	if err != nil {
		return err
	}
	for _, p := range written {
		fmt.Fprintf(stdout, "Wrote %s\n", p)
	}
	fmt.Fprintf(stdout, "Training: %.1fs\n", time.Since(startTime).Seconds())
	return nil
}
