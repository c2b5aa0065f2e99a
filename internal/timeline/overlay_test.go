package timeline

import (
	"math"
	"testing"
)

func TestOverlayTrack_Coverage(t *testing.T) {
	tests := []struct {
		name      string
		total     float64
		wantClips int
		wantLast  float64
	}{
		{"shorter than one segment", 10, 1, 10},
		{"exact multiple", 38, 2, 19},
		{"remainder", 50, 3, 12},
		{"fractional", 19.5, 2, 0.5},
		{"default duration", 300, 16, 300 - 15*19},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			track := overlayTrack("dust.mp4", 0.15, tc.total)

			if len(track.Clips) != tc.wantClips {
				t.Fatalf("clips = %d, want %d", len(track.Clips), tc.wantClips)
			}
			if want := int(math.Ceil(tc.total / OverlaySegmentLength)); len(track.Clips) != want {
				t.Errorf("clips = %d, want ceil(T/19) = %d", len(track.Clips), want)
			}

			for i, c := range track.Clips {
				if !almostEqual(c.Start, float64(i)*OverlaySegmentLength) {
					t.Errorf("clip %d start = %v, want %v", i, c.Start, float64(i)*OverlaySegmentLength)
				}
				if i < len(track.Clips)-1 && c.Length != OverlaySegmentLength {
					t.Errorf("clip %d length = %v, want %v", i, c.Length, OverlaySegmentLength)
				}
				if c.Opacity == nil || *c.Opacity != 0.15 {
					t.Errorf("clip %d opacity = %v, want 0.15", i, c.Opacity)
				}
				if c.Asset.Volume == nil || *c.Asset.Volume != 0 {
					t.Errorf("clip %d volume = %v, want 0", i, c.Asset.Volume)
				}
				if c.Fit != "cover" || c.Asset.Type != "video" {
					t.Errorf("clip %d = fit %q type %q", i, c.Fit, c.Asset.Type)
				}
			}

			last := track.Clips[len(track.Clips)-1]
			if !almostEqual(last.Length, tc.wantLast) {
				t.Errorf("last length = %v, want %v", last.Length, tc.wantLast)
			}
			if !almostEqual(sumLengths(track), tc.total) {
				t.Errorf("sum of lengths = %v, want %v", sumLengths(track), tc.total)
			}
		})
	}
}

func TestOverlayTrack_NonPositiveTotal(t *testing.T) {
	for _, total := range []float64{0, -5} {
		track := overlayTrack("fire.mp4", 0.3, total)
		if track.Clips == nil {
			t.Errorf("total %v: clips is nil, want empty slice", total)
		}
		if len(track.Clips) != 0 {
			t.Errorf("total %v: clips = %d, want 0", total, len(track.Clips))
		}
	}
}

func TestOverlayOpacity(t *testing.T) {
	want := map[OverlayKind]float64{
		OverlayDust:               0.15,
		OverlaySnow:               0.2,
		OverlayScreenDisplacement: 0.25,
		OverlayFire:               0.3,
	}
	for kind, opacity := range want {
		if got := OverlayOpacity(kind); got != opacity {
			t.Errorf("OverlayOpacity(%s) = %v, want %v", kind, got, opacity)
		}
	}
}
