package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/andresmejia3/livecheck/internal/ledger"
	"github.com/andresmejia3/livecheck/internal/utils"
	"github.com/spf13/cobra"
)

var (
	attendanceDate   string
	attendanceLedger string
)

// attendanceRow is the ledger-independent form of one mark.
type attendanceRow struct {
	Name  string
	At    time.Time
	RunID string
}

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Show who was marked present on a given day",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		ctx := cmd.Context()

		day, err := parseDay(attendanceDate, time.Now())
		if err != nil {
			utils.Die("Invalid date (use YYYY-MM-DD)", err, nil)
		}

		var rows []attendanceRow
		switch strings.ToLower(attendanceLedger) {
		case ledgerPostgres:
			db, err := openDB(ctx)
			if err != nil {
				utils.Die("Database unavailable", err, nil)
			}
			recs, err := db.ListAttendance(ctx, day)
			if err != nil {
				utils.Die("Failed to read attendance", err, nil)
			}
			for _, r := range recs {
				rows = append(rows, attendanceRow{Name: r.Name, At: r.MarkedAt.Local(), RunID: r.RunID})
			}
		case ledgerCSV:
			l, err := ledger.NewCSV(appCfg.AttendanceCSV)
			if err != nil {
				utils.Die("Failed to open attendance ledger", err, nil)
			}
			recs, err := l.Records(ctx, day)
			if err != nil {
				utils.Die("Failed to read attendance", err, nil)
			}
			for _, r := range recs {
				rows = append(rows, attendanceRow{Name: r.Name, At: r.At})
			}
		default:
			utils.Die("Unknown ledger", fmt.Errorf("%q (use csv or postgres)", attendanceLedger), nil)
		}

		printAttendance(os.Stdout, day, rows)
		return nil
	},
}

func init() {
	attendanceCmd.Flags().StringVar(&attendanceDate, "date", "", "Day to show as YYYY-MM-DD (default today)")
	attendanceCmd.Flags().StringVar(&attendanceLedger, "ledger", ledgerCSV, "Attendance ledger: csv or postgres")
	rootCmd.AddCommand(attendanceCmd)
}

// parseDay parses YYYY-MM-DD in the local zone. An empty string selects the day of now.
func parseDay(s string, now time.Time) (time.Time, error) {
	if s == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	}
	return time.ParseInLocation(ledger.DateLayout, s, now.Location())
}

func printAttendance(out io.Writer, day time.Time, rows []attendanceRow) {
	if len(rows) == 0 {
		fmt.Fprintf(out, "No attendance recorded on %s.\n", day.Format(ledger.DateLayout))
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tTIME\tDATE\tRUN")
	fmt.Fprintln(w, "----\t----\t----\t---")
	for _, r := range rows {
		run := r.RunID
		if run == "" {
			run = "-"
		} else if len(run) > 8 {
			run = run[:8]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.At.Format(ledger.TimeLayout), r.At.Format(ledger.DateLayout), run)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d present on %s\n", len(rows), day.Format(ledger.DateLayout))
}
