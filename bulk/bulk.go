// Package bulk runs the transcription pipeline over every recording in a
// directory.
package bulk

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/logger"
	"github.com/kbukum/lifescribe/media"
	"github.com/kbukum/lifescribe/transcripts"
)

// DefaultDir is scanned when no directory is given.
const DefaultDir = "./transcriptions"

// Config is the bulk section of the lifescribe config.
type Config struct {
	Dir        string   `mapstructure:"dir" json:"dir"`
	Extensions []string `mapstructure:"extensions" json:"extensions"`
	Workers    int      `mapstructure:"workers" json:"workers" validate:"gte=0"`
	DryRun     bool     `mapstructure:"dry_run" json:"dry_run"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = DefaultDir
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
}

// Item is one recording handed to the ProcessFunc.
type Item struct {
	Path string
	Hash string
}

// ProcessFunc transcribes one recording and returns its session id.
type ProcessFunc func(ctx context.Context, item Item) (string, error)

// RecordingLookup reports recordings already stored.
type RecordingLookup interface {
	FindRecording(ctx context.Context, hash string) (*transcripts.Recording, error)
}

// Status is the outcome of one file.
type Status string

const (
	StatusDone     Status = "done"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
	StatusPlanned  Status = "planned"
	StatusCanceled Status = "canceled"
)

// Outcome reports what happened to one file.
type Outcome struct {
	Path      string
	Hash      string
	SessionID string
	Status    Status
	Err       error
	Duration  time.Duration
}

// Report lists outcomes in discovery order.
type Report struct {
	Outcomes []Outcome
}

// Count returns how many outcomes have status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Option configures a Runner.
type Option func(*Runner)

// WithLookup skips recordings whose hash lookup finds.
func WithLookup(l RecordingLookup) Option {
	return func(r *Runner) { r.lookup = l }
}

// WithOutput sets where dry runs print their plan. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// Runner processes a directory of recordings with a bounded worker pool.
type Runner struct {
	cfg     Config
	process ProcessFunc
	lookup  RecordingLookup
	out     io.Writer
	log     *logger.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg Config, process ProcessFunc, opts ...Option) *Runner {
	cfg.ApplyDefaults()
	r := &Runner{cfg: cfg, process: process, out: os.Stdout, log: logger.Get("bulk")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run discovers recordings and processes them. A failing file does not
// stop the others. Cancelling ctx stops scheduling; files not yet started
// are reported as canceled and Run returns the context error.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	files, err := media.Discover(r.cfg.Dir, r.cfg.Extensions)
	if err != nil {
		return nil, err
	}
	report := &Report{Outcomes: make([]Outcome, len(files))}
	for i, f := range files {
		report.Outcomes[i] = Outcome{Path: f, Status: StatusCanceled}
	}

	r.log.Info("bulk run starting", logger.Fields(
		logger.FieldPath, r.cfg.Dir, "files", len(files), "workers", r.cfg.Workers, "dry_run", r.cfg.DryRun,
	))

	if r.cfg.DryRun {
		for i, f := range files {
			fmt.Fprintf(r.out, "lifescribe transcribe %s\n", f)
			report.Outcomes[i].Status = StatusPlanned
		}
		return report, nil
	}

	in := make(chan int)
	var wg sync.WaitGroup
	for range r.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range in {
				if ctx.Err() != nil {
					continue
				}
				report.Outcomes[i] = r.one(ctx, files[i])
			}
		}()
	}

schedule:
	for i := range files {
		select {
		case in <- i:
		case <-ctx.Done():
			break schedule
		}
	}
	close(in)
	wg.Wait()

	r.log.Info("bulk run finished", logger.Fields(
		"done", report.Count(StatusDone),
		"skipped", report.Count(StatusSkipped),
		"failed", report.Count(StatusFailed),
		"canceled", report.Count(StatusCanceled),
	))
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) one(ctx context.Context, path string) Outcome {
	start := time.Now()
	out := Outcome{Path: path}
	finish := func(s Status, err error) Outcome {
		out.Status, out.Err, out.Duration = s, err, time.Since(start)
		if err != nil {
			r.log.Warn("recording failed", logger.Fields(logger.FieldPath, path, logger.FieldError, err.Error()))
		}
		return out
	}

	hash, err := media.HashFile(path)
	if err != nil {
		return finish(StatusFailed, err)
	}
	out.Hash = hash

	if r.lookup != nil {
		rec, err := r.lookup.FindRecording(ctx, hash)
		switch {
		case err == nil:
			out.SessionID = rec.SessionID.String()
			r.log.Info("recording already stored", logger.Fields(logger.FieldPath, path, logger.FieldSessionID, out.SessionID))
			return finish(StatusSkipped, nil)
		case !errors.HasCode(err, errors.ErrCodeNotFound):
			return finish(StatusFailed, err)
		}
	}

	session, err := r.process(ctx, Item{Path: path, Hash: hash})
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeDuplicateRecording) {
			return finish(StatusSkipped, nil)
		}
		return finish(StatusFailed, err)
	}
	out.SessionID = session
	return finish(StatusDone, nil)
}
