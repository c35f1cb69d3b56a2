package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/andresmejia3/livecheck/internal/types"
	"github.com/andresmejia3/livecheck/internal/utils"
	"github.com/andresmejia3/livecheck/internal/worker"
	"github.com/spf13/cobra"
)

var identifyThreshold float64

var identifyCmd = &cobra.Command{
	Use:   "identify <image_path>",
	Short: "Match the largest face of an image against enrolled identities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runIdentify(cmd.Context(), args[0])
	},
}

func init() {
	identifyCmd.Flags().Float64VarP(&identifyThreshold, "threshold", "t", 0, "Face matching threshold (default from config)")
	rootCmd.AddCommand(identifyCmd)
}

// largestFace returns the index of the face with the biggest box, or -1.
func largestFace(faces []types.FaceResult) int {
	best, bestArea := -1, -1
	for i, f := range faces {
		if len(f.Loc) != 4 {
			continue
		}
		area := (f.Loc[2] - f.Loc[0]) * (f.Loc[1] - f.Loc[3])
		if area > bestArea {
			best, bestArea = i, area
		}
	}
	return best
}

func runIdentify(ctx context.Context, imagePath string) error {
	if _, err := os.Stat(imagePath); os.IsNotExist(err) {
		utils.ShowError("Input file does not exist", err, nil)
		return err
	}
	threshold := identifyThreshold
	if threshold <= 0 {
		threshold = appCfg.MatchThreshold
	}

	db, err := openDB(ctx)
	if err != nil {
		utils.ShowError("Database unavailable", err, nil)
		return err
	}

	fmt.Fprintln(os.Stderr, "🚀 Starting AI Engine...")
	// We use ID 0 for this ad-hoc worker
	w, err := worker.NewModelWorker(ctx, 0, worker.Config{
		Python:      appCfg.Worker.Python,
		Script:      appCfg.Worker.Script,
		Scale:       appCfg.Worker.Scale,
		ReadTimeout: 60 * time.Second,
	})
	if err != nil {
		utils.ShowError("Failed to start AI worker", err, nil)
		return err
	}
	defer w.Close()

	imgData, err := os.ReadFile(imagePath)
	if err != nil {
		utils.ShowError("Failed to read image file", err, nil)
		return err
	}

	fmt.Fprintln(os.Stderr, "🔍 Analyzing face...")
	analysis, err := w.AnalyzeFrame(imgData)
	if err != nil {
		utils.ShowError("AI processing failed", err, w.Cmd)
		return err
	}

	idx := largestFace(analysis.Faces)
	if idx < 0 {
		fmt.Println("❌ No faces detected in the provided image.")
		return nil
	}
	if len(analysis.Faces) > 1 {
		fmt.Printf("⚠️  Multiple faces detected (%d). Using the largest face.\n", len(analysis.Faces))
	}
	face := analysis.Faces[idx]

	fmt.Fprintln(os.Stderr, "🗄️  Searching database...")
	name, dist, err := db.FindClosestIdentity(ctx, face.Vec, threshold)
	if err != nil {
		utils.ShowError("Database search failed", err, nil)
		return err
	}

	if name == "" {
		fmt.Printf("❌ No match found in database (closest distance %.3f).\n", dist)
		return nil
	}
	fmt.Printf("✅ Found Match: %s (distance %.3f)\n", strings.ToUpper(name), dist)
	if face.Texture != nil {
		fmt.Printf("   texture score: %.2f (a single still cannot pass liveness)\n", *face.Texture)
	}
	return nil
}
