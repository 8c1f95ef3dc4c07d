package fixeltrack_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fixeltrack/fixel"
	"github.com/hupe1980/fixeltrack/geom"
	"github.com/hupe1980/fixeltrack/mapping"
)

// TestNoGoroutineLeaks verifies that the build and mapping worker pools
// terminate, including when a run is cancelled midway.
func TestNoGoroutineLeaks(t *testing.T) {
	tests := []struct {
		name     string
		run      func(t *testing.T)
		maxLeaks int
	}{
		{
			name: "build and map",
			run: func(t *testing.T) {
				p := newPipeline(t)
				_, err := p.BuildIndex(t.Context(), testSegmenter())
				require.NoError(t, err)

				tracks := make([][]geom.Vec3, 200)
				for i := range tracks {
					tracks[i] = []geom.Vec3{{-1, 0, 0}, {5, 0, 0}}
				}
				_, _, err = p.MapStreamlines(t.Context(), mapping.FromSlice(tracks), len(tracks))
				require.NoError(t, err)
			},
			maxLeaks: 2,
		},
		{
			name: "cancelled build",
			run: func(t *testing.T) {
				p := newPipeline(t)
				ctx, cancel := context.WithCancel(t.Context())
				seg := fixel.SegmenterFunc(func(ctx context.Context, v geom.Point3d) (fixel.Lobes, error) {
					cancel()
					<-ctx.Done()
					return fixel.Lobes{}, ctx.Err()
				})
				_, err := p.BuildIndex(ctx, seg)
				require.ErrorIs(t, err, context.Canceled)
			},
			maxLeaks: 2,
		},
		{
			name: "cancelled mapping",
			run: func(t *testing.T) {
				p := newPipeline(t)
				_, err := p.BuildIndex(t.Context(), testSegmenter())
				require.NoError(t, err)

				ctx, cancel := context.WithCancel(t.Context())
				src := func(yield func(mapping.Streamline) bool) {
					for i := 0; ; i++ {
						if i == 10 {
							cancel()
						}
						if !yield(mapping.Streamline{Index: i % 1000, Points: []geom.Vec3{{-1, 0, 0}, {5, 0, 0}}}) {
							return
						}
					}
				}
				_, _, err = p.MapStreamlines(ctx, src, 1000)
				require.Error(t, err)
			},
			maxLeaks: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runtime.GC()
			time.Sleep(20 * time.Millisecond)
			initial := runtime.NumGoroutine()

			tt.run(t)

			deadline := time.Now().Add(2 * time.Second)
			var leaked int
			for {
				runtime.GC()
				time.Sleep(20 * time.Millisecond)
				leaked = runtime.NumGoroutine() - initial
				if leaked <= tt.maxLeaks || time.Now().After(deadline) {
					break
				}
			}

			if leaked > tt.maxLeaks {
				buf := make([]byte, 1<<20)
				n := runtime.Stack(buf, true)
				t.Errorf("goroutine leak: %d extra goroutines (max %d)\n%s", leaked, tt.maxLeaks, buf[:n])
			}
		})
	}
}
