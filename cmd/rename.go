package cmd

import (
	"errors"
	"fmt"

	"github.com/andresmejia3/livecheck/internal/store"
	"github.com/andresmejia3/livecheck/internal/utils"
	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename <old_name> <new_name>",
	Short: "Rename an enrolled identity",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runRename(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(renameCmd)
}

func runRename(cmd *cobra.Command, oldName, newName string) {
	if newName == "" {
		utils.Die("Invalid name", errors.New("new name must not be empty"), nil)
	}
	ctx := cmd.Context()
	db, err := openDB(ctx)
	if err != nil {
		utils.Die("Database unavailable", err, nil)
	}

	if err := db.RenameIdentity(ctx, oldName, newName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Die("Unknown identity", err, nil)
		}
		utils.Die("Failed to rename identity", err, nil)
	}

	fmt.Printf("✅ Identity '%s' renamed to '%s'\n", oldName, newName)
}
