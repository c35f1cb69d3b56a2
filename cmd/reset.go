package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/andresmejia3/livecheck/internal/utils"
	"github.com/spf13/cobra"
)

var (
	resetTables     bool
	resetAttendance bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset system state (Database tables, Attendance CSV)",
	Long:  "Clears all data. By default, it resets everything. Use flags to clear specific components.",
	Run: func(cmd *cobra.Command, args []string) {
		// If no flags are set, default to clearing EVERYTHING
		if !resetTables && !resetAttendance {
			resetTables = true
			resetAttendance = true
		}

		reader := bufio.NewReader(os.Stdin)

		if resetTables {
			if confirm(reader, "⚠️  Are you sure you want to DROP all database tables?") {
				db, err := openDB(cmd.Context())
				if err != nil {
					utils.Die("Database unavailable", err, nil)
				}
				fmt.Println("🗑️  Clearing Database...")
				if err := db.Reset(cmd.Context()); err != nil {
					utils.Die("Failed to reset database", err, nil)
				}
			}
		}

		if resetAttendance {
			if confirm(reader, fmt.Sprintf("⚠️  Are you sure you want to delete %s?", appCfg.AttendanceCSV)) {
				fmt.Println("🗑️  Clearing Attendance CSV...")
				removeFile(appCfg.AttendanceCSV)
			}
		}

		fmt.Println("✨ System Reset Complete.")
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetTables, "tables", false, "Drop PostgreSQL tables")
	resetCmd.Flags().BoolVar(&resetAttendance, "attendance", false, "Delete the attendance CSV")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
	}
}
