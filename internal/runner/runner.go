// Package runner orchestrates batch anonymization runs: file discovery,
// per-file processing, cross-file mapping accumulation, and artifact
// output. All processing is strictly sequential; the only state shared
// across files is the run-scoped global mapping.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scmtools/textveil/internal/config"
	"github.com/scmtools/textveil/internal/engine"
	"github.com/scmtools/textveil/internal/export"
	"github.com/scmtools/textveil/internal/logger"
	"github.com/scmtools/textveil/internal/scan"
	"go.uber.org/zap"
)

// Reportable run-level failures. Per-file failures never abort a run; they
// are recorded in the summary and the batch continues.
var (
	ErrNothingToDo  = errors.New("no targets given and numeric anonymization disabled")
	ErrNoInputFiles = errors.New("no .txt files found under input path")
)

// timestampLayout names the shared run timestamp used in every artifact name.
const timestampLayout = "20060102_150405"

// MappingStore persists the final mapping of a run. The PostgreSQL store
// implements it; nil disables persistence.
type MappingStore interface {
	SaveRun(ctx context.Context, runID string, entries []*engine.Entry) error
}

// Options describes one batch run.
type Options struct {
	InputPath        string
	Targets          []string
	AnonymizeNumbers bool
}

// FileError records a per-file failure that did not abort the batch.
type FileError struct {
	Path string
	Err  error
}

// Summary is the outcome of a run.
type Summary struct {
	Timestamp    string
	InputFiles   []string
	OutputFiles  []string
	SkippedFiles []string
	Errors       []FileError
	CSVPath      string
	Keywords     int
	Numbers      int
	Mapping      *engine.Mapping
}

// Runner executes batch runs with a fixed engine configuration.
type Runner struct {
	engineCfg config.EngineConfig
	output    config.OutputConfig
	store     MappingStore
	logger    *logger.Logger
}

// New creates a runner. store may be nil.
func New(engineCfg config.EngineConfig, output config.OutputConfig, store MappingStore, log *logger.Logger) *Runner {
	return &Runner{
		engineCfg: engineCfg,
		output:    output,
		store:     store,
		logger:    log,
	}
}

// Run processes every text file under opts.InputPath. Each file gets its
// own mapping built against the full target list; the per-file mapping
// drives that file's substitution and is folded into the run-global mapping
// that the CSV export and the optional store receive. Occurrence counts sum
// across files; a key's pseudonym is fixed by the file that saw it first.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if len(opts.Targets) == 0 && !opts.AnonymizeNumbers {
		return nil, ErrNothingToDo
	}

	files, err := scan.FindTextFiles(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input path: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoInputFiles
	}

	eng := engine.New(engine.Config{
		CaseInsensitive:  r.engineCfg.CaseInsensitive,
		AnonymizeNumbers: opts.AnonymizeNumbers,
	}, r.logger.Logger)

	summary := &Summary{
		Timestamp:  time.Now().Format(timestampLayout),
		InputFiles: files,
		Mapping:    engine.NewMapping(),
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		r.processFile(eng, file, opts.Targets, summary)
	}

	if summary.Mapping.Len() > 0 {
		csvPath := filepath.Join(r.outputDir(files[0]), summary.Timestamp+".csv")
		if err := export.WriteMappingCSVFile(csvPath, summary.Mapping); err != nil {
			return summary, fmt.Errorf("failed to export mapping table: %w", err)
		}
		summary.CSVPath = csvPath

		if r.store != nil {
			if err := r.store.SaveRun(ctx, summary.Timestamp, summary.Mapping.Entries()); err != nil {
				// Persistence is an audit trail, not a run requirement.
				r.logger.Warn("failed to persist mapping", zap.Error(err))
			}
		}
	}

	r.logger.Info("run complete",
		zap.Int("files", len(files)),
		zap.Int("outputs", len(summary.OutputFiles)),
		zap.Int("skipped", len(summary.SkippedFiles)),
		zap.Int("errors", len(summary.Errors)),
		zap.Int("mapping_entries", summary.Mapping.Len()),
	)

	return summary, nil
}

// processFile anonymizes a single file. Failures are recorded on the
// summary and the batch moves on.
func (r *Runner) processFile(eng *engine.Engine, file string, targets []string, summary *Summary) {
	data, err := os.ReadFile(file)
	if err != nil {
		summary.Errors = append(summary.Errors, FileError{Path: file, Err: err})
		r.logger.Warn("failed to read input file", zap.String("file", file), zap.Error(err))
		return
	}
	text := string(data)

	mapping := eng.BuildMapping(targets, text)
	summary.Mapping.Merge(mapping)

	if mapping.Len() == 0 {
		summary.SkippedFiles = append(summary.SkippedFiles, file)
		r.logger.Info("nothing to anonymize in file", zap.String("file", file))
		return
	}

	keywords := mapping.KeywordCount()
	numbers := mapping.NumericCount()

	anonymized := eng.Apply(text, mapping)

	outPath := filepath.Join(r.outputDir(file), outputName(file, summary.Timestamp))
	if err := os.WriteFile(outPath, []byte(anonymized), 0o644); err != nil {
		summary.Errors = append(summary.Errors, FileError{Path: file, Err: err})
		r.logger.Warn("failed to write output file", zap.String("file", outPath), zap.Error(err))
		return
	}

	summary.OutputFiles = append(summary.OutputFiles, outPath)
	summary.Keywords += keywords
	summary.Numbers += numbers

	r.logger.Info("file anonymized",
		zap.String("file", file),
		zap.Int("keywords", keywords),
		zap.Int("numbers", numbers),
	)
}

// outputDir resolves where artifacts for an input file go: the configured
// directory, or next to the input.
func (r *Runner) outputDir(inputFile string) string {
	if r.output.Directory != "" {
		return r.output.Directory
	}
	return filepath.Dir(inputFile)
}

// outputName builds "<stem>_anonymized_<timestamp>.txt".
func outputName(inputFile, timestamp string) string {
	base := filepath.Base(inputFile)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "_anonymized_" + timestamp + ".txt"
}
