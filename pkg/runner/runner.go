// Package runner scans many documents concurrently against one index
// snapshot and optionally records the findings history.
package runner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/sw33tLie/baseline-lite/pkg/index"
	"github.com/sw33tLie/baseline-lite/pkg/scanner"
	"github.com/sw33tLie/baseline-lite/pkg/storage"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Job is one document to scan. When Text is set the file is not read.
type Job struct {
	Path     string
	Language scanner.Language
	Text     *string
}

// Result is the outcome for one job.
type Result struct {
	Path     string
	Language scanner.Language
	Findings []baseline.Finding
	Changes  []storage.Change
	Err      error
}

// Config holds everything Run needs.
type Config struct {
	Store       *index.Store
	DB          *storage.DB // optional
	Concurrency int         // defaults to DefaultConcurrency if <= 0
	Log         Logger      // optional; nil = no logging

	// OnFileDone is called per file once it is scanned (and stored), from
	// worker goroutines.
	OnFileDone func(Result)
}

// Outcome holds the results of a run, in job order.
type Outcome struct {
	Run        storage.Run
	Results    []Result
	IsFirstRun bool
	Errors     []error // non-fatal, one per failed file
}

// Total returns the number of findings across all results.
func (o *Outcome) Total() int {
	n := 0
	for _, r := range o.Results {
		n += len(r.Findings)
	}
	return n
}

// Run scans jobs. Every job sees the same index snapshot even if the store
// is swapped mid-run. Per-file failures are collected, not returned; the
// error is non-nil only when ctx is cancelled or the run cannot be recorded.
func Run(ctx context.Context, cfg Config, jobs []Job) (*Outcome, error) {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	idx := index.Empty()
	if cfg.Store != nil {
		idx = cfg.Store.Load()
	}

	out := &Outcome{Results: make([]Result, len(jobs))}

	if cfg.DB != nil {
		n, err := cfg.DB.CountFiles(ctx)
		if err != nil {
			log.Warnf("Could not count stored files: %v", err)
		} else {
			out.IsFirstRun = n == 0
		}
		run, err := cfg.DB.NewRun(ctx)
		if err != nil {
			return nil, fmt.Errorf("recording run: %w", err)
		}
		out.Run = run
		if out.IsFirstRun && len(jobs) > 0 {
			log.Infof("First recorded scan, populating history database...")
		}
	}

	var dbMu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			res := scanOne(idx, job)
			if res.Err != nil {
				log.Warnf("Skipping %s: %v", job.Path, res.Err)
			} else {
				log.Debugf("Scanned %s (%s): %d findings", job.Path, job.Language, len(res.Findings))
			}

			if cfg.DB != nil && res.Err == nil {
				dbMu.Lock()
				changes, err := cfg.DB.UpsertFileFindings(gCtx, out.Run.ID, job.Path, res.Findings)
				dbMu.Unlock()
				if err != nil {
					log.Warnf("Database error for %s: %v", job.Path, err)
					res.Err = err
				}
				res.Changes = changes
			}

			out.Results[i] = res
			if cfg.OnFileDone != nil {
				cfg.OnFileDone(res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	for _, r := range out.Results {
		if r.Err != nil {
			out.Errors = append(out.Errors, fmt.Errorf("%s: %w", r.Path, r.Err))
		}
	}

	if cfg.DB != nil {
		out.Run.Files = len(jobs) - len(out.Errors)
		out.Run.Findings = out.Total()
		if err := cfg.DB.FinishRun(ctx, out.Run); err != nil {
			log.Warnf("Could not finish run %s: %v", out.Run.ID, err)
		}
	}
	return out, nil
}

func scanOne(idx *index.Index, job Job) Result {
	res := Result{Path: job.Path, Language: job.Language}
	s, err := scanner.New(idx, job.Language)
	if err != nil {
		res.Err = err
		return res
	}
	var text string
	if job.Text != nil {
		text = *job.Text
	} else {
		b, err := os.ReadFile(job.Path)
		if err != nil {
			res.Err = err
			return res
		}
		text = string(b)
	}
	res.Findings = s.Scan(text)
	return res
}

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".hg":          true,
	".svn":         true,
}

// SkipDir reports whether a directory is never walked for sources.
func SkipDir(name string) bool { return skipDirs[name] }

// Collect expands paths into jobs. Directories are walked and only files
// with a known extension are kept; files named explicitly are always kept,
// with lang overriding the extension when set. An explicit file with an
// unknown extension yields a job without a language, which fails when run.
func Collect(paths []string, lang scanner.Language) ([]Job, error) {
	var jobs []Job
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			l := lang
			if l == "" {
				l, _ = scanner.LanguageFromPath(p)
			}
			jobs = append(jobs, Job{Path: p, Language: l})
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && SkipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			l, ok := scanner.LanguageFromPath(path)
			if !ok {
				return nil
			}
			if lang != "" {
				l = lang
			}
			jobs = append(jobs, Job{Path: path, Language: l})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return jobs, nil
}
