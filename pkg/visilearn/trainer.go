package visilearn

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
)

// NoMask is the command-line placeholder for an example set without a mask.
const NoMask = "-"

// ExampleSet names the four images of one training example.
type ExampleSet struct {
	Background  string
	Input       string
	GroundTruth string
	// Mask is empty or NoMask when every pixel takes part.
	Mask string
}

func (s ExampleSet) Name() string { return s.Background + " - " + s.Input }

func (s ExampleSet) HasMask() bool { return s.Mask != "" && s.Mask != NoMask }

// Example is one loaded training example. All images are single-channel
// float32 with intensities in [0, 255].
type Example struct {
	Name        string
	Model       Mat
	Target      Mat
	GroundTruth Mat
	Mask        *Mat
}

// Close releases every image of the example.
func (e *Example) Close() {
	e.Model.Close()
	e.Target.Close()
	e.GroundTruth.Close()
	if e.Mask != nil {
		e.Mask.Close()
	}
}

// Validate checks that all images are present and share the model's size.
func (e *Example) Validate() error {
	if e.Model.Empty() {
		return fmt.Errorf("%s: background image is empty", e.Name)
	}
	if err := checkSameSize("input image", e.Model, e.Target); err != nil {
		return fmt.Errorf("%s: %w", e.Name, err)
	}
	if err := checkSameSize("ground truth", e.Model, e.GroundTruth); err != nil {
		return fmt.Errorf("%s: %w", e.Name, err)
	}
	if e.Mask != nil {
		if err := checkSameSize("mask", e.Model, *e.Mask); err != nil {
			return fmt.Errorf("%s: %w", e.Name, err)
		}
	}
	return nil
}

// ImageLoader decodes an image file into a single-channel float32 Mat with
// intensities in [0, 255].
type ImageLoader interface {
	LoadGray(path string) (Mat, error)
}

// LoadExample loads the images of set. Any failure is returned; a missing
// mask is only accepted when set.Mask is the NoMask placeholder or empty.
func LoadExample(loader ImageLoader, set ExampleSet) (*Example, error) {
	ex := &Example{Name: set.Name()}
	var err error
	if ex.Model, err = loader.LoadGray(set.Background); err != nil {
		return nil, fmt.Errorf("%s: can't load image: %w", set.Background, err)
	}
	if ex.Target, err = loader.LoadGray(set.Input); err != nil {
		ex.Model.Close()
		return nil, fmt.Errorf("%s: can't load image: %w", set.Input, err)
	}
	if ex.GroundTruth, err = loader.LoadGray(set.GroundTruth); err != nil {
		ex.Model.Close()
		ex.Target.Close()
		return nil, fmt.Errorf("%s: can't load image: %w", set.GroundTruth, err)
	}
	if set.HasMask() {
		mask, err := loader.LoadGray(set.Mask)
		if err != nil {
			ex.Model.Close()
			ex.Target.Close()
			ex.GroundTruth.Close()
			return nil, fmt.Errorf("%s: can't load mask: %w", set.Mask, err)
		}
		ex.Mask = &mask
	}
	return ex, nil
}

// ExampleStats summarizes the contribution of one example set.
type ExampleStats struct {
	Name    string
	Pixels  int
	InMask  int
	Visible int
	Hidden  int
}

// Coverage returns the percentage of pixels inside the mask.
func (s ExampleStats) Coverage() float64 {
	if s.Pixels == 0 {
		return 0
	}
	return 100 * float64(s.InMask) / float64(s.Pixels)
}

// Accumulator owns the state of one training run (or one partition of it):
// the visible and hidden histograms and, optionally, the raw samples.
type Accumulator struct {
	cfg     Config
	Visible *Histogram
	Hidden  *Histogram
	// Samples is nil unless Config.CollectSamples is set.
	Samples *GrowMat
}

// NewAccumulator returns an empty accumulator for cfg.
func NewAccumulator(cfg Config) (*Accumulator, error) {
	return newAccumulator(cfg, cfg.SampleCapacity)
}

func newAccumulator(cfg Config, sampleCapacity int) (*Accumulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	v, err := NewHistogram("visible", cfg.Binning)
	if err != nil {
		return nil, err
	}
	h, err := NewHistogram("hidden", cfg.Binning)
	if err != nil {
		return nil, err
	}
	acc := &Accumulator{cfg: cfg, Visible: v, Hidden: h}
	if cfg.CollectSamples {
		acc.Samples = NewGrowMat(sampleCapacity, SampleColumns)
	}
	return acc, nil
}

// AddExample compares the example's background and input images and adds
// every pixel inside the mask to the histogram selected by its ground-truth
// label.
func (a *Accumulator) AddExample(ex *Example) (ExampleStats, error) {
	stats := ExampleStats{Name: ex.Name}
	if err := ex.Validate(); err != nil {
		return stats, err
	}

	cmp, err := NewComparator(a.cfg.WindowSize, a.cfg.MaskThreshold)
	if err != nil {
		return stats, err
	}
	if err := cmp.SetModel(ex.Model, ex.Mask); err != nil {
		return stats, fmt.Errorf("%s: %w", ex.Name, err)
	}
	if err := cmp.SetImage(ex.Target); err != nil {
		return stats, fmt.Errorf("%s: %w", ex.Name, err)
	}
	ncc, texture, err := cmp.Compute()
	if err != nil {
		return stats, fmt.Errorf("%s: %w", ex.Name, err)
	}
	defer ncc.Close()
	defer texture.Close()

	gt, err := floatData("ground truth", ex.GroundTruth)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", ex.Name, err)
	}
	var mask []float32
	if ex.Mask != nil {
		if mask, err = floatData("mask", *ex.Mask); err != nil {
			return stats, fmt.Errorf("%s: %w", ex.Name, err)
		}
	}
	c := ncc.DataFloat32()
	v := texture.DataFloat32()

	stats.Pixels = ex.Model.Rows() * ex.Model.Cols()
	for i := 0; i < stats.Pixels; i++ {
		if mask != nil && !(mask[i] > a.cfg.MaskThreshold) {
			continue
		}
		stats.InMask++
		if a.Samples != nil {
			if err := a.Samples.AppendSample(c[i], v[i], gt[i]); err != nil {
				return stats, err
			}
		}
		hist := a.Hidden
		if gt[i] > a.cfg.VisibilityThreshold {
			hist = a.Visible
			stats.Visible++
		} else {
			stats.Hidden++
		}
		if err := hist.AddElem(float64(c[i]), float64(v[i]), 1); err != nil {
			return stats, err
		}
	}

	switch {
	case stats.InMask == 0:
		log.Printf("[Trainer] Warning: %s has no pixels inside the mask, it contributes no samples", ex.Name)
	case stats.Visible == 0 || stats.Hidden == 0:
		log.Printf("[Trainer] Warning: %s contributes no %s samples", ex.Name, missingClass(stats))
	}
	return stats, nil
}

func missingClass(s ExampleStats) string {
	if s.Visible == 0 {
		return "visible"
	}
	return "hidden"
}

// Merge adds the histograms and samples of other to a. Samples of other are
// appended after those already in a.
func (a *Accumulator) Merge(other *Accumulator) error {
	if err := a.Visible.Merge(other.Visible); err != nil {
		return err
	}
	if err := a.Hidden.Merge(other.Hidden); err != nil {
		return err
	}
	if a.Samples != nil && other.Samples != nil {
		return a.Samples.AppendRows(other.Samples)
	}
	return nil
}

// Result is the outcome of Trainer.Train.
type Result struct {
	*Accumulator
	// Stats has one entry per example set, in input order.
	Stats []ExampleStats
}

// Trainer runs example sets through an Accumulator.
type Trainer struct {
	cfg    Config
	loader ImageLoader
}

// NewTrainer validates cfg and returns a trainer that loads images with loader.
func NewTrainer(cfg Config, loader ImageLoader) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if loader == nil {
		return nil, fmt.Errorf("trainer: nil image loader")
	}
	return &Trainer{cfg: cfg, loader: loader}, nil
}

// Train processes every set, Config.Workers at a time, each into its own
// partial accumulator, then merges the partials in input order. Histograms do
// not depend on scheduling, and sample rows are ordered by example set, then
// row-major pixel. The first failing set aborts the run.
func (t *Trainer) Train(ctx context.Context, sets []ExampleSet) (*Result, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("trainer: no example sets")
	}

	partials := make([]*Accumulator, len(sets))
	stats := make([]ExampleStats, len(sets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Workers)
	for i, set := range sets {
		i, set := i, set
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ex, err := LoadExample(t.loader, set)
			if err != nil {
				return err
			}
			defer ex.Close()

			acc, err := newAccumulator(t.cfg, ex.Model.Rows()*ex.Model.Cols())
			if err != nil {
				return err
			}
			st, err := acc.AddExample(ex)
			if err != nil {
				return err
			}
			partials[i] = acc
			stats[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total, err := NewAccumulator(t.cfg)
	if err != nil {
		return nil, err
	}
	for _, p := range partials {
		if err := total.Merge(p); err != nil {
			return nil, err
		}
	}
	return &Result{Accumulator: total, Stats: stats}, nil
}
