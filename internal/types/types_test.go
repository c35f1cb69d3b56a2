package types

import (
	"testing"

	"github.com/andresmejia3/livecheck/internal/liveness"
)

func TestFaceResultBox(t *testing.T) {
	tests := []struct {
		name   string
		loc    []int
		scale  int
		w, h   int
		want   liveness.Box
		wantOK bool
	}{
		{
			name:   "Upscaled from quarter frame",
			loc:    []int{10, 60, 50, 20},
			scale:  4,
			w:      640,
			h:      480,
			want:   liveness.Box{Top: 40, Right: 240, Bottom: 200, Left: 80},
			wantOK: true,
		},
		{
			name:   "Clamped to frame bounds",
			loc:    []int{-2, 170, 130, -5},
			scale:  4,
			w:      640,
			h:      480,
			want:   liveness.Box{Top: 0, Right: 639, Bottom: 479, Left: 0},
			wantOK: true,
		},
		{
			name:   "Zero scale treated as full size",
			loc:    []int{1, 2, 3, 0},
			scale:  0,
			want:   liveness.Box{Top: 1, Right: 2, Bottom: 3, Left: 0},
			wantOK: true,
		},
		{
			name:   "Malformed location",
			loc:    []int{1, 2},
			scale:  4,
			want:   liveness.Box{},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FaceResult{Loc: tt.loc}.Box(tt.scale, tt.w, tt.h)
			if got != tt.want {
				t.Errorf("Box() = %+v, want %+v", got, tt.want)
			}
			if got.Empty() == tt.wantOK {
				t.Errorf("Box().Empty() = %v, want %v", got.Empty(), !tt.wantOK)
			}
		})
	}
}
