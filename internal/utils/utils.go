package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// --- 1. Process Safety & Command Wrapping ---

// lockedBuffer is a bytes.Buffer safe for the concurrent writes of a child's stderr
// and reads from the crash reporter.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// SafeCommand wraps a standard exec.Cmd with a buffer to catch Stderr (model worker logs)
// This ensures we don't lose critical crash information if a worker dies.
type SafeCommand struct {
	*exec.Cmd
	Stderr *lockedBuffer
}

// NewSafeCommand initializes a command bound to ctx and attaches a buffer to its Stderr pipe.
// It prepares the command for execution but does not start it.
func NewSafeCommand(ctx context.Context, name string, args ...string) *SafeCommand {
	cmd := exec.CommandContext(ctx, name, args...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// ShowError prints a formatted error box and dumps worker logs if a SafeCommand is provided.
func ShowError(context string, err error, s *SafeCommand) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🚨 LIVECHECK ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DETAILS: %v\n", err)
	}

	// If we have a SafeCommand and it captured logs, print them.
	if s != nil && s.Stderr.Len() > 0 {
		fmt.Fprintf(os.Stderr, "\nWORKER CRASH LOGS:\n%s\n", s.Stderr.String())
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
}

// Die is the unified exit strategy for livecheck.
func Die(context string, err error, s *SafeCommand) {
	ShowError(context, err, s)
	os.Exit(1)
}

// --- 2. Capture Engine ---

var (
	JpegSOI = []byte{0xFF, 0xD8} // Start of Image
	JpegEOI = []byte{0xFF, 0xD9} // End of Image
)

// SplitJpeg is the custom splitter for bufio.Scanner
// It locates the Start Of Image (FFD8) and End Of Image (FFD9) markers to extract full JPEG frames.
func SplitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, JpegSOI)
	if start == -1 {
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], JpegEOI)
	if end == -1 {
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}

// IsCameraDevice reports whether input names a V4L2 device or a bare camera index.
func IsCameraDevice(input string) bool {
	if strings.HasPrefix(input, "/dev/video") {
		return true
	}
	_, err := strconv.Atoi(input)
	return err == nil
}

// CaptureArgs builds the FFmpeg arguments that turn input into an MJPEG stream on stdout.
// Camera indices ("0") map to /dev/videoN; files are read at native speed so the
// liveness timers see real time.
func CaptureArgs(input string, fps int) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if IsCameraDevice(input) {
		dev := input
		if !strings.HasPrefix(dev, "/dev/") {
			dev = "/dev/video" + input
		}
		args = append(args, "-f", "v4l2")
		if fps > 0 {
			args = append(args, "-framerate", strconv.Itoa(fps))
		}
		args = append(args, "-i", dev)
	} else {
		args = append(args, "-re", "-i", input)
		if fps > 0 {
			args = append(args, "-r", strconv.Itoa(fps))
		}
	}
	return append(args, "-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "5", "-")
}

// NewCaptureCmd creates the decoder pipe for a camera or video file.
// FFmpeg's stderr is captured so a failed capture can be reported with its logs.
func NewCaptureCmd(ctx context.Context, input string, fps int) *SafeCommand {
	return NewSafeCommand(ctx, "ffmpeg", CaptureArgs(input, fps)...)
}
