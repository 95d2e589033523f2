package cmd

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/baseline-lite/internal/server"
	"github.com/sw33tLie/baseline-lite/internal/utils"
	"github.com/sw33tLie/baseline-lite/pkg/index"
	"github.com/sw33tLie/baseline-lite/pkg/storage"
	"github.com/sw33tLie/baseline-lite/pkg/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scan and lookup HTTP API",
	Long: `Start an HTTP server exposing POST /api/scan, GET /api/lookup, GET /api/index and /metrics.
The index is rebuilt and swapped in when the dataset files or the config file change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("bind")
		user, _ := cmd.Flags().GetString("username")
		pass, _ := cmd.Flags().GetString("password")
		withDB, _ := cmd.Flags().GetBool("db")
		dbPath, _ := cmd.Flags().GetString("dbpath")
		if user == "" && pass == "" {
			user = viper.GetString("server.username")
			pass = viper.GetString("server.password")
		}

		idx, err := buildIndex()
		if err != nil {
			server.IndexBuilds.WithLabelValues("error").Inc()
			return err
		}
		server.IndexBuilds.WithLabelValues("ok").Inc()
		policy, err := reportPolicy()
		if err != nil {
			return err
		}

		var db *storage.DB
		if withDB {
			db, err = openDB(dbPath, false)
			if err != nil {
				return err
			}
			defer db.Close()
		}

		srv := server.New(index.NewStore(nil), db, policy, user, pass)
		srv.Publish(idx)

		rebuild := func([]string, bool) {
			fresh, err := buildIndex()
			if err != nil {
				server.IndexBuilds.WithLabelValues("error").Inc()
				utils.Log.Errorf("Index rebuild failed, still serving the previous index: %v", err)
				return
			}
			server.IndexBuilds.WithLabelValues("ok").Inc()
			srv.Publish(fresh)
			utils.Log.Infof("Index rebuilt: %d features", fresh.Stats().Features)
		}

		paths := datasetPaths()
		w, err := watch.New(watch.Config{
			Triggers: []string{paths.Features, paths.Compat},
			OnChange: rebuild,
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

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		return srv.Start(addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("bind", "b", ":9999", "Address to bind the server to")
	serveCmd.Flags().StringP("username", "u", "", "Username for basic auth (optional)")
	serveCmd.Flags().StringP("password", "p", "", "Password for basic auth (optional)")
	serveCmd.Flags().Bool("db", false, "Expose the findings history database under /api/history")
	serveCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/baseline-lite/history.sqlite)")
}
