package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andresmejia3/livecheck/internal/matcher"
	"github.com/andresmejia3/livecheck/internal/store"
	"github.com/andresmejia3/livecheck/internal/utils"
	"github.com/andresmejia3/livecheck/internal/worker"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollDir string

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll identities from a directory of <NAME>.jpg reference images",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		ctx := cmd.Context()

		images, err := referenceImages(enrollDir)
		if err != nil {
			utils.Die("Failed to read reference images", err, nil)
		}
		if len(images) == 0 {
			fmt.Printf("No reference images found in %s.\n", enrollDir)
			return nil
		}

		db, err := openDB(ctx)
		if err != nil {
			utils.Die("Database unavailable", err, nil)
		}

		fmt.Fprintln(os.Stderr, "🚀 Starting AI Engine...")
		w, err := worker.NewModelWorker(ctx, 0, worker.Config{
			Python:      appCfg.Worker.Python,
			Script:      appCfg.Worker.Script,
			Scale:       appCfg.Worker.Scale,
			ReadTimeout: 60 * time.Second,
		})
		if err != nil {
			utils.Die("Failed to start AI worker", err, nil)
		}
		defer w.Close()

		bar := progressbar.NewOptions(len(images),
			progressbar.OptionSetDescription("🖼️  Enrolling"),
			progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
			progressbar.OptionShowCount(),
		)
		known, err := encodeImages(w, images, bar)
		if err != nil {
			utils.Die("AI processing failed", err, w.Cmd)
		}
		bar.Finish()
		fmt.Fprintln(os.Stderr)

		for _, id := range known {
			if _, err := db.UpsertIdentity(ctx, id.Name, id.Vec); err != nil {
				utils.Die(fmt.Sprintf("Failed to store identity %s", id.Name), err, nil)
			}
		}
		fmt.Printf("✅ Enrolled %d of %d identities (embedding dim %d)\n", len(known), len(images), store.EmbeddingDim)
		return nil
	},
}

func init() {
	enrollCmd.Flags().StringVarP(&enrollDir, "dir", "d", "images", "Directory of <NAME>.jpg reference images")
	rootCmd.AddCommand(enrollCmd)
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// referenceImages lists the image files directly inside dir, sorted by name.
func referenceImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// identityName derives the enrolled name from an image path: images/alice.jpg -> alice.
func identityName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// encodeImages encodes the first face of every image. Images without a face are reported and skipped.
func encodeImages(w *worker.ModelWorker, paths []string, bar *progressbar.ProgressBar) ([]matcher.Identity, error) {
	var known []matcher.Identity
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		vecs, err := w.Encode(data)
		if bar != nil {
			bar.Add(1)
		}
		if errors.Is(err, worker.ErrWorkerLogic) {
			fmt.Fprintf(os.Stderr, "⚠️  Could not encode %s: %v\n", filepath.Base(p), err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", p, err)
		}
		if len(vecs) == 0 {
			if bar != nil {
				bar.Clear()
			}
			fmt.Fprintf(os.Stderr, "⚠️  No face found in %s, skipping\n", filepath.Base(p))
			continue
		}
		if len(vecs) > 1 {
			fmt.Fprintf(os.Stderr, "⚠️  %d faces found in %s, using the first\n", len(vecs), filepath.Base(p))
		}
		known = append(known, matcher.Identity{Name: identityName(p), Vec: vecs[0]})
	}
	return known, nil
}

// encodeDirectory enrolls every reference image of dir in memory.
func encodeDirectory(w *worker.ModelWorker, dir string, bar *progressbar.ProgressBar) ([]matcher.Identity, error) {
	paths, err := referenceImages(dir)
	if err != nil {
		return nil, err
	}
	return encodeImages(w, paths, bar)
}
