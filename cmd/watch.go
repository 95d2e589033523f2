package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/baseline-lite/internal/utils"
	"github.com/sw33tLie/baseline-lite/pkg/index"
	"github.com/sw33tLie/baseline-lite/pkg/report"
	"github.com/sw33tLie/baseline-lite/pkg/runner"
	"github.com/sw33tLie/baseline-lite/pkg/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Rescan source files as they change",
	Long: `Scan the given directories, then rescan every changed CSS, HTML or script file.
The index is rebuilt when the dataset files or the config file change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		grouped, _ := cmd.Flags().GetBool("group")
		colorFlag, _ := cmd.Flags().GetString("color")
		if len(args) == 0 {
			args = []string{"."}
		}

		idx, err := buildIndex()
		if err != nil {
			return err
		}
		policy, err := reportPolicy()
		if err != nil {
			return err
		}
		store := index.NewStore(idx)
		opts := report.Options{Grouped: grouped, Color: useColor(colorFlag, os.Stdout)}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		scan := func(jobs []runner.Job) {
			if len(jobs) == 0 {
				return
			}
			out, err := runner.Run(ctx, runner.Config{
				Store:       store,
				Concurrency: viper.GetInt("scan.concurrency"),
				Log:         utils.Log,
			}, jobs)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					utils.Log.Errorf("Scan failed: %v", err)
				}
				return
			}
			files := make([]report.File, 0, len(out.Results))
			for _, r := range out.Results {
				f := report.File{Path: r.Path, Language: string(r.Language), Diagnostics: policy.Diagnostics(r.Findings)}
				if r.Err != nil {
					f.Error = r.Err.Error()
				}
				files = append(files, f)
			}
			if err := report.Render(os.Stdout, report.FormatText, files, opts); err != nil {
				utils.Log.Errorf("Rendering report: %v", err)
			}
		}

		scanAll := func() {
			jobs, err := runner.Collect(args, "")
			if err != nil {
				utils.Log.Errorf("Collecting files: %v", err)
				return
			}
			scan(jobs)
		}

		onChange := func(files []string, rebuild bool) {
			if rebuild {
				fresh, err := buildIndex()
				if err != nil {
					utils.Log.Errorf("Index rebuild failed, keeping the previous index: %v", err)
					return
				}
				if p, err := reportPolicy(); err != nil {
					utils.Log.Warnf("Keeping previous severity policy: %v", err)
				} else {
					policy = p
				}
				store.Swap(fresh)
				utils.Log.Infof("Index rebuilt: %d features", fresh.Stats().Features)
				scanAll()
				return
			}

			var existing []string
			for _, f := range files {
				if _, err := os.Stat(f); err == nil {
					existing = append(existing, f)
				} else {
					utils.Log.Debugf("%s was removed", f)
				}
			}
			jobs, err := runner.Collect(existing, "")
			if err != nil {
				utils.Log.Warnf("Collecting changed files: %v", err)
				return
			}
			scan(jobs)
		}

		paths := datasetPaths()
		w, err := watch.New(watch.Config{
			Roots:    args,
			Triggers: []string{paths.Features, paths.Compat},
			OnChange: onChange,
			Log:      utils.Log,
		})
		if err != nil {
			return err
		}
		defer w.Close()

		if viper.ConfigFileUsed() != "" {
			viper.OnConfigChange(func(e fsnotify.Event) {
				utils.Log.Infof("Config file changed: %s", e.Name)
				w.RequestRebuild()
			})
			viper.WatchConfig()
		}

		scanAll()
		utils.Log.Infof("Watching %d directories, press Ctrl+C to stop", len(args))
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolP("group", "g", false, "Group findings by line")
	watchCmd.Flags().String("color", "auto", "Colorize output: auto, always, never")
}
