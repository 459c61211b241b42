package processor

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

// finish moves the muxed video to out, burning captions into it first when
// enabled. A failed burn keeps the uncaptioned video.
func (a *Assembler) finish(ctx context.Context, muxed, subtitles, out string) error {
	if a.opts.BurnCaptions && fileExists(subtitles) {
		err := a.backend.BurnCaptions(ctx, muxed, subtitles, a.opts.CaptionStyle, out)
		if err == nil {
			return nil
		}
		_ = os.Remove(out)
		if ctx.Err() != nil {
			return err
		}
		a.logger.Warn("burning captions failed, keeping uncaptioned video", "error", err)
	}
	return errors.Wrap(os.Rename(muxed, out), "move assembled video")
}
