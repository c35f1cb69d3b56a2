package worker

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/andresmejia3/livecheck/internal/types"
	"github.com/andresmejia3/livecheck/internal/utils" // Using the SafeCommand wrapper
)

// Command bytes prefixed to every request payload.
const (
	cmdHello   byte = 'H'
	cmdAnalyze byte = 'F'
	cmdEncode  byte = 'E'
)

// maxResponse caps a single response body; anything larger means the stream is out of sync.
const maxResponse = 64 * 1024 * 1024

// ErrWorkerLogic is returned when the worker answered with an {"error": ...} document.
// The worker is still healthy and the next request may succeed.
var ErrWorkerLogic = errors.New("model worker error")

// Config controls how the model worker process is launched.
type Config struct {
	Python      string        // interpreter, default python3
	Script      string        // default python/worker.py
	Scale       int           // detection downscale factor
	Depth       bool          // load the depth estimator
	ReadTimeout time.Duration // per-response deadline, 0 disables
}

type ModelWorker struct {
	ID          int
	Cmd         *utils.SafeCommand
	Stdin       io.WriteCloser
	DataPipe    io.ReadCloser
	ReadTimeout time.Duration
}

// NewModelWorker starts the model subprocess. Responses come back on a dedicated
// pipe (FD 3) so library chatter on stdout/stderr cannot corrupt the protocol.
func NewModelWorker(ctx context.Context, id int, cfg Config) (*ModelWorker, error) {
	python := cfg.Python
	if python == "" {
		python = "python3"
	}
	script := cfg.Script
	if script == "" {
		script = "python/worker.py"
	}
	args := []string{"-u", script, "--scale", strconv.Itoa(max(cfg.Scale, 1))}
	if !cfg.Depth {
		args = append(args, "--no-depth")
	}
	py := utils.NewSafeCommand(ctx, python, args...)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close() // Prevent FD leak
		r.Close() // Close read-end too!
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close() // Close write end if start fails
		r.Close() // Close read-end too!
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &ModelWorker{
		ID:          id,
		Cmd:         py,
		Stdin:       stdin,
		DataPipe:    r,
		ReadTimeout: cfg.ReadTimeout,
	}, nil
}

// Communicate sends one command and returns the raw response body.
func (w *ModelWorker) Communicate(cmd byte, data []byte) ([]byte, error) {
	// Protocol: [Length][Cmd][Data]
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data)+1)); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write([]byte{cmd}); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}

	if w.ReadTimeout > 0 {
		if d, ok := w.DataPipe.(interface{ SetReadDeadline(time.Time) error }); ok {
			if err := d.SetReadDeadline(time.Now().Add(w.ReadTimeout)); err != nil {
				return nil, fmt.Errorf("failed to set worker read deadline: %w", err)
			}
		}
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, err // This is where we catch the "ModuleNotFoundError" crash
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxResponse {
		return nil, fmt.Errorf("response of %d bytes exceeds limit", respLen)
	}
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.DataPipe, respBody)
	return respBody, err
}

// decode unmarshals a response, turning worker error documents into ErrWorkerLogic.
func decode(resp []byte, v any) error {
	var errorResult types.ErrorResult
	if json.Unmarshal(resp, &errorResult) == nil && errorResult.Error != "" {
		return fmt.Errorf("%w: %s", ErrWorkerLogic, errorResult.Error)
	}
	if err := json.Unmarshal(resp, v); err != nil {
		return fmt.Errorf("malformed worker response: %w", err)
	}
	return nil
}

// Hello asks the worker which models it loaded.
func (w *ModelWorker) Hello() (types.HelloResult, error) {
	var res types.HelloResult
	resp, err := w.Communicate(cmdHello, nil)
	if err != nil {
		return res, err
	}
	return res, decode(resp, &res)
}

// AnalyzeFrame runs detection, encoding, texture, depth and landmark models on one JPEG frame.
func (w *ModelWorker) AnalyzeFrame(jpeg []byte) (*types.FrameAnalysis, error) {
	resp, err := w.Communicate(cmdAnalyze, jpeg)
	if err != nil {
		return nil, err
	}
	var res types.FrameAnalysis
	if err := decode(resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Encode returns the face encodings found in an enrollment image.
func (w *ModelWorker) Encode(jpeg []byte) ([][]float64, error) {
	resp, err := w.Communicate(cmdEncode, jpeg)
	if err != nil {
		return nil, err
	}
	var res types.EncodeResult
	if err := decode(resp, &res); err != nil {
		return nil, err
	}
	return res.Vecs, nil
}

func (w *ModelWorker) Close() {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd != nil {
		w.Cmd.Wait()
	}
}
