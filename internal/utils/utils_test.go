package utils

import (
	"bufio"
	"bytes"
	"context"
	"reflect"
	"testing"
)

func TestSplitJpeg(t *testing.T) {
	// Construct a stream containing: [Garbage] [JPEG] [Garbage]
	// SOI (Start of Image): FF D8
	// EOI (End of Image):   FF D9

	jpegData := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}

	streamData := []byte{0x00, 0x00} // Garbage at start
	streamData = append(streamData, jpegData...)
	streamData = append(streamData, []byte{0x00, 0x00}...) // Garbage at end

	// Use bufio.Scanner with our custom Split function
	scanner := bufio.NewScanner(bytes.NewReader(streamData))
	scanner.Split(SplitJpeg)

	// Scan() should skip the first garbage bytes and find the JPEG
	if !scanner.Scan() {
		t.Fatal("Expected to find a token, got EOF")
	}

	// Verify the extracted token is exactly the JPEG
	if !bytes.Equal(scanner.Bytes(), jpegData) {
		t.Errorf("Expected %X, got %X", jpegData, scanner.Bytes())
	}

	// Scan() again should return false (EOF) because the trailing garbage is not a JPEG
	if scanner.Scan() {
		t.Error("Expected only one token, found more")
	}
}

func TestSplitJpeg_BackToBackFrames(t *testing.T) {
	a := []byte{0xFF, 0xD8, 0xAA, 0xFF, 0xD9}
	b := []byte{0xFF, 0xD8, 0xBB, 0xCC, 0xFF, 0xD9}

	scanner := bufio.NewScanner(bytes.NewReader(append(append([]byte{}, a...), b...)))
	scanner.Split(SplitJpeg)

	var got [][]byte
	for scanner.Scan() {
		got = append(got, append([]byte{}, scanner.Bytes()...))
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(got))
	}
	if !bytes.Equal(got[0], a) || !bytes.Equal(got[1], b) {
		t.Errorf("Frames mismatch: %X / %X", got[0], got[1])
	}
}

func TestIsCameraDevice(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"0", true},
		{"/dev/video2", true},
		{"clip.mp4", false},
		{"/tmp/attack.mov", false},
	}
	for _, tt := range tests {
		if got := IsCameraDevice(tt.input); got != tt.want {
			t.Errorf("IsCameraDevice(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCaptureArgs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		fps   int
		want  []string
	}{
		{
			name:  "Camera index",
			input: "0",
			fps:   15,
			want: []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2", "-framerate", "15", "-i", "/dev/video0",
				"-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "5", "-"},
		},
		{
			name:  "Video file at native rate",
			input: "replay.mp4",
			fps:   0,
			want: []string{"-hide_banner", "-loglevel", "error", "-re", "-i", "replay.mp4",
				"-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "5", "-"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CaptureArgs(tt.input, tt.fps); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CaptureArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSafeCommandCapturesStderr(t *testing.T) {
	cmd := NewSafeCommand(context.Background(), "sh", "-c", "echo boom >&2")
	if err := cmd.Run(); err != nil {
		t.Skipf("sh not available: %v", err)
	}
	if got := cmd.Stderr.String(); got != "boom\n" {
		t.Errorf("Expected captured stderr %q, got %q", "boom\n", got)
	}
}
