package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/baseline-lite/internal/utils"
	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/sw33tLie/baseline-lite/pkg/index"
	"github.com/sw33tLie/baseline-lite/pkg/report"
	"github.com/sw33tLie/baseline-lite/pkg/runner"
	"github.com/sw33tLie/baseline-lite/pkg/scanner"
	"github.com/sw33tLie/baseline-lite/pkg/storage"
)

var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "Scan files and directories for features that are not widely available",
	Long: `Scan CSS, HTML, JavaScript and TypeScript files. Directories are walked recursively and
files are matched by extension. Use "-" to read a single document from stdin (requires --language).

Exit status is 2 when a finding reaches the --fail-on threshold.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		langFlag, _ := cmd.Flags().GetString("language")
		formatFlag, _ := cmd.Flags().GetString("format")
		failOn, _ := cmd.Flags().GetString("fail-on")
		useDB, _ := cmd.Flags().GetBool("db")
		dbPath, _ := cmd.Flags().GetString("dbpath")
		grouped, _ := cmd.Flags().GetBool("group")
		colorFlag, _ := cmd.Flags().GetString("color")

		format, err := report.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		threshold, err := parseFailOn(failOn)
		if err != nil {
			return err
		}
		policy, err := reportPolicy()
		if err != nil {
			return err
		}
		lang := scanner.Language(strings.ToLower(langFlag))
		if lang != "" && !lang.Valid() {
			return fmt.Errorf("%w: %q", scanner.ErrUnsupportedLanguage, langFlag)
		}

		jobs, err := scanJobs(args, lang, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			utils.Log.Warn("No files to scan")
			return nil
		}

		idx, err := buildIndex()
		if err != nil {
			return err
		}

		cfg := runner.Config{
			Store:       index.NewStore(idx),
			Concurrency: viper.GetInt("scan.concurrency"),
			Log:         utils.Log,
		}
		if useDB {
			db, lock, err := openLockedDB(dbPath)
			if err != nil {
				return err
			}
			defer lock.Unlock()
			defer db.Close()
			cfg.DB = db
		}

		out, err := runner.Run(context.Background(), cfg, jobs)
		if err != nil {
			return err
		}

		files := make([]report.File, 0, len(out.Results))
		var all []report.Diagnostic
		for _, r := range out.Results {
			f := report.File{Path: r.Path, Language: string(r.Language), Diagnostics: policy.Diagnostics(r.Findings)}
			if r.Err != nil {
				f.Error = r.Err.Error()
			}
			all = append(all, f.Diagnostics...)
			files = append(files, f)
		}

		opts := report.Options{Grouped: grouped, Color: useColor(colorFlag, os.Stdout)}
		if err := report.Render(cmd.OutOrStdout(), format, files, opts); err != nil {
			return err
		}

		if useDB && !out.IsFirstRun {
			printChanges(out.Results)
		}
		if len(out.Errors) > 0 {
			utils.Log.Warnf("%d of %d files could not be scanned", len(out.Errors), len(jobs))
		}

		if worst, ok := report.Worst(all); ok && threshold != 0 && worst <= threshold {
			return errFindings
		}
		return nil
	},
}

// parseFailOn maps the --fail-on flag to the least severe status that
// still fails the scan. 0 disables the check.
func parseFailOn(s string) (baseline.Status, error) {
	switch strings.ToLower(s) {
	case "", "never":
		return 0, nil
	case "newly":
		return baseline.NewlyAvailable, nil
	case "limited":
		return baseline.Limited, nil
	}
	return 0, fmt.Errorf("unknown --fail-on value %q (want newly or limited)", s)
}

func scanJobs(args []string, lang scanner.Language, stdin io.Reader) ([]runner.Job, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	var jobs []runner.Job
	var paths []string
	for _, a := range args {
		if a != "-" {
			paths = append(paths, a)
			continue
		}
		if lang == "" {
			return nil, fmt.Errorf("reading from stdin requires --language")
		}
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		text := string(b)
		jobs = append(jobs, runner.Job{Path: "-", Language: lang, Text: &text})
	}
	if len(paths) > 0 {
		collected, err := runner.Collect(paths, lang)
		if err != nil {
			return nil, err
		}
		jobs = append(collected, jobs...)
	}
	return jobs, nil
}

func useColor(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func printChanges(results []runner.Result) {
	var changes []storage.Change
	for _, r := range results {
		changes = append(changes, r.Changes...)
	}
	if len(changes) == 0 {
		utils.Log.Info("No changes since the last recorded scan")
		return
	}
	for _, c := range changes {
		fmt.Fprintf(os.Stderr, "%-7s  %s:%d:%d  %s  %s\n", c.ChangeType, c.Path, c.Line+1, c.Char+1, c.Status, c.Key)
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().String("language", "", "Force the language: css, html, javascript, javascriptreact, typescript, typescriptreact")
	scanCmd.Flags().StringP("format", "f", "text", "Output format: text, json, yaml, html")
	scanCmd.Flags().String("fail-on", "", "Exit with status 2 when findings reach this status: newly, limited")
	scanCmd.Flags().Bool("db", false, "Record findings in the history database and print changes")
	scanCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/baseline-lite/history.sqlite)")
	scanCmd.Flags().BoolP("group", "g", false, "Group findings by line")
	scanCmd.Flags().String("color", "auto", "Colorize text output: auto, always, never")
}
