package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/livecheck/internal/utils"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all enrolled identities in the database",
	Run: func(cmd *cobra.Command, args []string) {
		runList(cmd)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command) {
	ctx := cmd.Context()
	db, err := openDB(ctx)
	if err != nil {
		utils.Die("Database unavailable", err, nil)
	}
	identities, err := db.ListIdentities(ctx)
	if err != nil {
		utils.Die("Failed to list identities", err, nil)
	}

	if len(identities) == 0 {
		fmt.Println("No identities enrolled.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tENROLLED")
	fmt.Fprintln(w, "--\t----\t--------")

	for _, id := range identities {
		fmt.Fprintf(w, "%d\t%s\t%s\n", id.ID, id.Name, id.EnrolledAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}
