package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/baseline-lite/internal/utils"
	"github.com/sw33tLie/baseline-lite/pkg/storage"
)

var dbPath string

// openDB opens the history database. Unless create is set, a missing file
// is an error.
func openDB(path string, create bool) (*storage.DB, error) {
	abs, err := utils.GetAbsDBPath(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		if !create {
			return nil, fmt.Errorf("database file not found: %s", abs)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, err
		}
	}
	return storage.Open(abs)
}

// openLockedDB opens the database for writing. The caller must Unlock the
// returned lock after closing the database.
func openLockedDB(path string) (*storage.DB, *utils.DBLock, error) {
	lock, err := utils.NewDBLock(path)
	if err != nil {
		return nil, nil, err
	}
	if err := lock.Lock(); err != nil {
		return nil, nil, err
	}
	db, err := openDB(path, true)
	if err != nil {
		lock.Unlock()
		return nil, nil, err
	}
	return db, lock, nil
}

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the findings history database",
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		abs, err := utils.GetAbsDBPath(dbPath)
		if err != nil {
			return err
		}
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", abs)
		}

		// Check if sqlite3 is in PATH
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		// Print schema first
		fmt.Println("--> Database schema:")
		schemaCmd := exec.Command(sqlitePath, abs, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, abs)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints statistics about the findings in the database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(dbPath, false)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(context.Background())
		if err != nil {
			return err
		}

		if len(stats) == 0 {
			fmt.Println("No data in the database to generate stats.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "STATUS\tFILES\tFINDINGS\t")

		var totalFindings int
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t%d\t\n", s.Status, s.Files, s.Findings)
			totalFindings += s.Findings
		}

		files, err := db.CountFiles(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintln(w, " \t \t \t")
		fmt.Fprintf(w, "TOTAL\t%d\t%d\t\n", files, totalFindings)

		return w.Flush()
	},
}

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent finding changes (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		db, err := openDB(dbPath, false)
		if err != nil {
			return err
		}
		defer db.Close()
		changes, err := db.ListRecentChanges(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, c := range changes {
			ts := c.OccurredAt.Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %-7s  %s:%d:%d  %-7s  %s\n", ts, c.ChangeType, c.Path, c.Line+1, c.Char+1, c.Status, c.Key)
		}
		return nil
	},
}

var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "List the findings currently recorded",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("path")
		status, _ := cmd.Flags().GetString("status")
		since, _ := cmd.Flags().GetDuration("since")

		db, err := openDB(dbPath, false)
		if err != nil {
			return err
		}
		defer db.Close()

		opts := storage.ListOptions{PathFilter: path, Status: status}
		if since > 0 {
			opts.Since = time.Now().Add(-since)
		}
		findings, err := db.ListFindings(context.Background(), opts)
		if err != nil {
			return err
		}
		for _, f := range findings {
			fmt.Printf("%s:%d:%d  %-7s  %s  (%s)\n", f.Path, f.Line+1, f.Char+1, f.Status, f.Key, f.Label)
		}
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded scans",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		db, err := openDB(dbPath, false)
		if err != nil {
			return err
		}
		defer db.Close()
		runs, err := db.ListRuns(context.Background(), limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "STARTED\tID\tFILES\tFINDINGS")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.ID, r.Files, r.Findings)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(statsCmd)
	dbCmd.AddCommand(changesCmd)
	dbCmd.AddCommand(findingsCmd)
	dbCmd.AddCommand(runsCmd)
	dbCmd.PersistentFlags().StringVar(&dbPath, "dbpath", "", "Path to SQLite DB file (default: ~/.config/baseline-lite/history.sqlite)")

	changesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
	runsCmd.Flags().Int("limit", 20, "Number of recent runs to show")
	findingsCmd.Flags().String("path", "", "Only show findings whose path contains this string")
	findingsCmd.Flags().String("status", "", "Only show findings with this status: limited, newly")
	findingsCmd.Flags().Duration("since", 0, "Only show findings last seen within this duration (e.g. 24h)")
}
