package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/andresmejia3/livecheck/internal/ledger"
	"github.com/andresmejia3/livecheck/internal/liveness"
	"github.com/andresmejia3/livecheck/internal/logging"
	"github.com/andresmejia3/livecheck/internal/matcher"
	"github.com/andresmejia3/livecheck/internal/types"
	"github.com/andresmejia3/livecheck/internal/utils"
	"github.com/andresmejia3/livecheck/internal/worker"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const megabyte = 1024 * 1024

const (
	ledgerCSV      = "csv"
	ledgerPostgres = "postgres"
)

// runOptions holds the flags of the run command
type runOptions struct {
	Input         string
	FPS           int
	Ledger        string
	NoDB          bool
	ImagesDir     string
	NoDepth       bool
	MetricsAddr   string
	WorkerTimeout string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run live attendance with liveness verification on a camera or video",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := validateRunFlags(&runOpts); err != nil {
			utils.Die("Invalid run options", err, nil)
		}
		return runLive(cmd.Context(), runOpts)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOpts.Input, "input", "i", "0", "Camera index, /dev/videoN device, or video file")
	runCmd.Flags().IntVar(&runOpts.FPS, "fps", 0, "Capture frame rate (0 keeps the source rate)")
	runCmd.Flags().StringVar(&runOpts.Ledger, "ledger", ledgerCSV, "Attendance ledger: csv or postgres")
	runCmd.Flags().BoolVar(&runOpts.NoDB, "no-db", false, "Do not connect to PostgreSQL; enroll from --images at startup")
	runCmd.Flags().StringVarP(&runOpts.ImagesDir, "images", "d", "images", "Directory of <NAME>.jpg reference images (used with --no-db)")
	runCmd.Flags().BoolVar(&runOpts.NoDepth, "no-depth", false, "Disable the depth estimator")
	runCmd.Flags().StringVar(&runOpts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().StringVar(&runOpts.WorkerTimeout, "worker-timeout", "30s", "Maximum time to wait for the model worker per frame")
	rootCmd.AddCommand(runCmd)
}

// validateRunFlags ensures all CLI arguments are valid before starting heavy processes.
func validateRunFlags(opts *runOptions) error {
	if opts.Input == "" {
		return errors.New("input must not be empty")
	}
	if !utils.IsCameraDevice(opts.Input) {
		info, err := os.Stat(opts.Input)
		if err != nil {
			return fmt.Errorf("unable to access input: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("input %s is a directory, expected a camera or video file", opts.Input)
		}
	}
	if opts.FPS < 0 {
		return fmt.Errorf("fps must be >= 0, got %d", opts.FPS)
	}
	opts.Ledger = strings.ToLower(opts.Ledger)
	switch opts.Ledger {
	case ledgerCSV:
	case ledgerPostgres:
		if opts.NoDB {
			return errors.New("the postgres ledger cannot be used with --no-db")
		}
	default:
		return fmt.Errorf("unknown ledger %q (use csv or postgres)", opts.Ledger)
	}
	if opts.NoDB && opts.ImagesDir == "" {
		return errors.New("--no-db requires an --images directory")
	}
	if d, err := time.ParseDuration(opts.WorkerTimeout); err != nil || d < 0 {
		return fmt.Errorf("invalid worker-timeout %q (use '30s', '500ms')", opts.WorkerTimeout)
	}
	return nil
}

// Buffer pool to reduce GC pressure during capture
var frameBufferPool = sync.Pool{
	New: func() interface{} { return make([]byte, 0, megabyte) },
}

// runLive wires worker, matcher, ledger and fusion engine to the capture stream
// and processes frames until the input ends, 'q' is entered, or the process is interrupted.
func runLive(parent context.Context, opts runOptions) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	cfg := appCfg.Liveness
	if opts.NoDepth {
		cfg.DepthEnabled = false
	}
	runID := uuid.New()
	base := logging.FromContext(ctx)
	log := base.With("run_id", runID.String())

	// 1. Model worker
	fmt.Fprintln(os.Stderr, "🚀 Starting AI Engine...")
	timeout, _ := time.ParseDuration(opts.WorkerTimeout)
	w, err := worker.NewModelWorker(ctx, 0, worker.Config{
		Python:      appCfg.Worker.Python,
		Script:      appCfg.Worker.Script,
		Scale:       appCfg.Worker.Scale,
		Depth:       cfg.DepthEnabled,
		ReadTimeout: timeout,
	})
	if err != nil {
		utils.Die("Failed to start AI worker", err, nil)
	}
	defer w.Close()

	hello, err := w.Hello()
	if err != nil {
		utils.Die("AI worker failed to load models", err, w.Cmd)
	}
	if cfg.DepthEnabled && !hello.Depth {
		fmt.Fprintln(os.Stderr, "⚠️  Depth estimator unavailable, continuing with texture and behavior only")
		cfg.DepthEnabled = false
	}
	log.Info("models loaded", "texture_model", hello.TextureModel, "depth_model", hello.DepthModel, "depth", cfg.DepthEnabled)

	// 2. Enrolled identities
	var known []matcher.Identity
	if opts.NoDB {
		fmt.Fprintf(os.Stderr, "🖼️  Encoding reference images from %s...\n", opts.ImagesDir)
		known, err = encodeDirectory(w, opts.ImagesDir, nil)
		if err != nil {
			utils.Die("Failed to encode reference images", err, w.Cmd)
		}
	} else {
		db, err := openDB(ctx)
		if err != nil {
			utils.Die("Database unavailable", err, nil)
		}
		known, err = db.LoadIdentities(ctx)
		if err != nil {
			utils.Die("Failed to load enrolled identities", err, nil)
		}
	}
	if len(known) == 0 {
		fmt.Fprintln(os.Stderr, "⚠️  No enrolled identities, every face will be UNKNOWN")
	}
	m := matcher.New(known, appCfg.MatchThreshold)
	fmt.Fprintf(os.Stderr, "👥 Loaded %d identities (match threshold %.2f)\n", m.Len(), appCfg.MatchThreshold)

	// 3. Attendance ledger
	var sink liveness.Ledger
	switch opts.Ledger {
	case ledgerPostgres:
		sink = DB.Ledger(runID)
		fmt.Fprintln(os.Stderr, "📝 Recording attendance to PostgreSQL")
	default:
		csvLedger, err := ledger.NewCSV(appCfg.AttendanceCSV)
		if err != nil {
			utils.Die("Failed to open attendance ledger", err, nil)
		}
		sink = csvLedger
		fmt.Fprintf(os.Stderr, "📝 Recording attendance to %s\n", csvLedger.Path())
	}

	eng, err := liveness.NewEngine(cfg, sink, liveness.WithLogger(base), liveness.WithRunID(runID))
	if err != nil {
		utils.Die("Invalid liveness configuration", err, nil)
	}

	if opts.MetricsAddr != "" {
		srv := serveMetrics(opts.MetricsAddr, log)
		defer srv.Shutdown(context.Background())
		fmt.Fprintf(os.Stderr, "📈 Metrics on http://%s/metrics\n", opts.MetricsAddr)
	}

	// 4. Capture
	ffmpeg := utils.NewCaptureCmd(ctx, opts.Input, opts.FPS)
	ffmpegOut, err := ffmpeg.StdoutPipe()
	if err != nil {
		utils.Die("Failed to create FFmpeg stdout pipe", err, nil)
	}
	defer ffmpegOut.Close() // Ensure pipe is closed to prevent leaks/zombies

	if err := ffmpeg.Start(); err != nil {
		utils.Die("Failed to start FFmpeg", err, nil)
	}

	go watchQuit(os.Stdin, cancel)
	if !cfg.DepthEnabled {
		fmt.Fprintln(os.Stderr, "⚠️  "+depthDisabledBanner)
	}
	fmt.Fprintln(os.Stderr, "🎥 Capturing. Type 'q' and Enter to quit.")

	frames := make(chan types.FrameTask, 1)
	type captureResult struct {
		frames  int
		dropped int
		err     error
	}
	captureDone := make(chan captureResult, 1)
	go func() {
		n, dropped, err := captureFrames(ctx, ffmpegOut, frames, time.Now)
		captureDone <- captureResult{frames: n, dropped: dropped, err: err}
	}()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("🔍 LiveCheck"),
		progressbar.OptionSetWriter(os.Stderr), // Write HUD to Stderr
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	// 5. Analyze frames as fast as the worker allows; capture keeps only the newest one.
	started := time.Now()
	analyzed := 0
	for task := range frames {
		analysis, err := w.AnalyzeFrame(task.Data)
		frameBufferPool.Put(task.Data[:0])
		if err != nil {
			if errors.Is(err, worker.ErrWorkerLogic) {
				log.Warn("frame analysis failed", "frame", task.Index, "error", err)
				continue
			}
			if ctx.Err() != nil {
				break
			}
			// DRAIN: Wait for process to exit and capture final stderr logs
			w.Close()
			utils.Die("AI worker crashed", err, w.Cmd)
		}
		analyzed++

		res := eng.ProcessFrame(ctx, task.Time, buildDetections(analysis, m), worker.NewSignals(analysis))
		for _, f := range res.Faces {
			if f.Marked {
				bar.Clear()
				fmt.Fprintf(os.Stderr, "✅ %s marked present (%s)\n", f.Identity, f.MarkResult)
			}
		}
		bar.Describe(frameOverlay(res))
		bar.Add(1)
	}
	bar.Finish()

	cr := <-captureDone
	waitErr := ffmpeg.Wait()
	if ctx.Err() == nil {
		if cr.err != nil {
			utils.Die("Frame scanner failed", cr.err, ffmpeg)
		}
		if waitErr != nil {
			utils.Die("FFmpeg execution failed", waitErr, ffmpeg)
		}
	}

	printSummary(os.Stderr, eng.Summary(), eng.Marked, analyzed, cr.dropped, time.Since(started))
	return nil
}

// buildDetections matches every face of a frame against the enrolled set.
func buildDetections(a *types.FrameAnalysis, m *matcher.Matcher) []liveness.Detection {
	dets := make([]liveness.Detection, 0, len(a.Faces))
	for i, f := range a.Faces {
		name, dist := m.Match(f.Vec)
		dets = append(dets, liveness.Detection{
			Identity: name,
			Distance: dist,
			Crop:     liveness.FaceCrop{Index: i, Box: f.Box(a.Scale, a.Width, a.Height)},
		})
	}
	return dets
}

// captureFrames splits the MJPEG stream into frames and hands them to out, newest first.
// It closes out when the stream ends and returns the number of frames read and dropped.
func captureFrames(ctx context.Context, r io.Reader, out chan types.FrameTask, now func() time.Time) (int, int, error) {
	defer close(out)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)

	total, dropped := 0, 0
	for scanner.Scan() {
		total++
		buf := frameBufferPool.Get().([]byte)
		if cap(buf) < len(scanner.Bytes()) {
			buf = make([]byte, len(scanner.Bytes()))
		}
		buf = buf[:len(scanner.Bytes())]
		copy(buf, scanner.Bytes())

		if offerLatest(out, types.FrameTask{Index: total, Time: now(), Data: buf}) {
			dropped++
			liveness.FramesDroppedTotal.Inc()
		}
		if ctx.Err() != nil {
			return total, dropped, nil
		}
	}
	return total, dropped, scanner.Err()
}

// offerLatest queues t, replacing a frame the consumer has not picked up yet.
// Only the capture goroutine sends on ch, so the final send never blocks.
func offerLatest(ch chan types.FrameTask, t types.FrameTask) bool {
	select {
	case ch <- t:
		return false
	default:
	}
	dropped := false
	select {
	case old := <-ch:
		frameBufferPool.Put(old.Data[:0])
		dropped = true
	default:
	}
	ch <- t
	return dropped
}

// watchQuit cancels the run when a line reading "q" arrives on r.
func watchQuit(r io.Reader, cancel context.CancelFunc) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if strings.EqualFold(strings.TrimSpace(scanner.Text()), "q") {
			cancel()
			return
		}
	}
}

func serveMetrics(addr string, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return srv
}
