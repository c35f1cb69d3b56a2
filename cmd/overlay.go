package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/andresmejia3/livecheck/internal/liveness"
)

const depthDisabledBanner = "Depth DISABLED (texture and behavior only)"

// depthDisabledMarker leads every HUD line while the depth check is off.
const depthDisabledMarker = "[DEPTH DISABLED]"

// faceOverlay renders the status line of one face: NAME | LABEL | signals.
// depthOff prints depth:off instead of the n/a shown when an enabled estimator returned nothing.
func faceOverlay(f liveness.FaceResult, depthOff bool) string {
	if f.Skipped {
		return fmt.Sprintf("%s | %s | skipped", f.Identity, f.Label)
	}
	depth := "n/a"
	switch {
	case depthOff:
		depth = "off"
	case f.Depth != nil:
		depth = fmt.Sprintf("%.3f", *f.Depth)
	}
	return fmt.Sprintf("%s | %s | tex:%.2f depth:%s blink:%t head:%t",
		f.Identity, f.Label, f.Texture, depth, f.Blink, f.HeadMoved)
}

// challengeOverlay renders the pending challenge or the recent failure of a face, or "".
func challengeOverlay(f liveness.FaceResult) string {
	switch {
	case f.Challenge != nil:
		return fmt.Sprintf("CHALLENGE: %s (%ds)", f.Challenge.Type, int(f.ChallengeRemaining.Seconds()))
	case f.ChallengeFailed:
		return "CHALLENGE FAILED"
	}
	return ""
}

// frameOverlay joins the overlays of every face in a frame into a single HUD line.
func frameOverlay(res liveness.FrameResult) string {
	line := "no faces"
	if len(res.Faces) > 0 {
		parts := make([]string, 0, len(res.Faces))
		for _, f := range res.Faces {
			s := faceOverlay(f, res.DepthDegraded)
			if c := challengeOverlay(f); c != "" {
				s += " [" + c + "]"
			}
			parts = append(parts, s)
		}
		line = strings.Join(parts, " || ")
	}
	if res.DepthDegraded {
		return depthDisabledMarker + " " + line
	}
	return line
}

// printSummary writes the end-of-run report in the same layout as the status boxes.
func printSummary(w io.Writer, sessions []liveness.SessionSummary, marked func(string) bool, frames, dropped int, elapsed time.Duration) {
	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "📊 ATTENDANCE SUMMARY\n")
	fmt.Fprintf(w, "---------------------------------------------------------\n")

	present := 0
	for _, s := range sessions {
		status := "not marked"
		if marked(s.Identity) {
			status = "✅ marked"
			present++
		}
		passed := ""
		if s.ChallengePassed {
			passed = " (challenge passed)"
		}
		fmt.Fprintf(w, "\n👤 %s: %s, %s%s\n", s.Identity, s.Label, status, passed)
		fmt.Fprintf(w, "   seen %s -> %s, %d texture samples, mean %.2f\n",
			s.FirstSeen.Format("15:04:05"), s.LastSeen.Format("15:04:05"), s.Samples, s.Texture)
	}

	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "🎞️  Frames Analyzed:   %d (%d dropped)\n", frames, dropped)
	fmt.Fprintf(w, "👥 Identities Seen:   %d\n", len(sessions))
	fmt.Fprintf(w, "📝 Marked Present:    %d\n", present)
	fmt.Fprintf(w, "⏱️  Elapsed:           %s\n", elapsed.Round(time.Second))
	fmt.Fprintf(w, "---------------------------------------------------------\n")
}
