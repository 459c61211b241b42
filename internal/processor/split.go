package processor

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/ZacxDev/story-reels/pkg/types"
)

// PartDurations divides total into the fewest equal parts no longer than limit.
func PartDurations(total, limit time.Duration) []time.Duration {
	if limit <= 0 || total <= limit {
		return nil
	}
	n := int(math.Ceil(float64(total) / float64(limit)))
	each := total / time.Duration(n)
	parts := make([]time.Duration, n)
	for i := range parts {
		parts[i] = each
	}
	// The last part takes the rounding remainder.
	parts[n-1] = total - each*time.Duration(n-1)
	return parts
}

// split cuts a video longer than the platform limit into numbered parts next
// to it. The full video is kept.
func (a *Assembler) split(ctx context.Context, full types.VideoAsset, req Request) ([]types.VideoAsset, error) {
	if !a.opts.SplitParts {
		return nil, nil
	}
	durations := PartDurations(full.Duration, a.opts.MaxDuration)
	if len(durations) == 0 {
		return nil, nil
	}

	var (
		parts []types.VideoAsset
		start time.Duration
	)
	for i, d := range durations {
		out, err := ensureOutputPath(req.Dir, fmt.Sprintf("%s_part%d", req.Slug, i+1), a.backend.Extension())
		if err != nil {
			return nil, err
		}
		if err := a.backend.Segment(ctx, full.Path, start, d, out); err != nil {
			for _, p := range parts {
				_ = os.Remove(p.Path)
			}
			return nil, err
		}
		parts = append(parts, types.VideoAsset{Path: out, Width: full.Width, Height: full.Height, Duration: d})
		start += d
	}
	return parts, nil
}
