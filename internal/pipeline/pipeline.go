// Package pipeline drives every fetched story through synthesis, caption
// persistence, title-card rendering and assembly, isolating failures per story.
package pipeline

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ZacxDev/story-reels/internal/fault"
	"github.com/ZacxDev/story-reels/internal/logging"
	"github.com/ZacxDev/story-reels/internal/normalize"
	"github.com/ZacxDev/story-reels/internal/processor"
	"github.com/ZacxDev/story-reels/internal/story"
	"github.com/ZacxDev/story-reels/internal/transcript"
	"github.com/ZacxDev/story-reels/pkg/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Synthesizer narrates text to audioPath and returns the caption timeline.
type Synthesizer interface {
	Build(ctx context.Context, text, audioPath string) (transcript.Transcript, error)
}

type CardRenderer interface {
	Render(title string, upvotes, comments int, outPath string) (types.ImageAsset, error)
}

type Assembler interface {
	Assemble(ctx context.Context, req processor.Request) (processor.Result, error)
}

type Options struct {
	Concurrency  int
	Retries      int
	RetryBackoff time.Duration
	// Canvas is the size title cards are padded to before assembly.
	Canvas   normalize.Dimensions
	CardFill color.Color
	WriteSRT bool
	Cues     transcript.CueOptions
	// AudioExt is the narration file extension, with the dot.
	AudioExt string
	Logger   *slog.Logger
}

type Orchestrator struct {
	synth     Synthesizer
	renderer  CardRenderer
	assembler Assembler
	opts      Options
	logger    *slog.Logger
}

func New(synth Synthesizer, renderer CardRenderer, assembler Assembler, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.AudioExt == "" {
		opts.AudioExt = ".mp3"
	}
	if opts.CardFill == nil {
		opts.CardFill = color.Black
	}
	if opts.Cues.MaxWords == 0 {
		opts.Cues = transcript.DefaultCueOptions
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Orchestrator{
		synth:     synth,
		renderer:  renderer,
		assembler: assembler,
		opts:      opts,
		logger:    opts.Logger.With("component", "pipeline"),
	}
}

// Run processes stories concurrently and writes report.json into the run
// directory. Story failures are recorded in the report, never returned.
func (o *Orchestrator) Run(ctx context.Context, run *RunContext, stories []story.Story) (Report, error) {
	slugs := AssignSlugs(stories)
	reports := make([]StoryReport, len(stories))

	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i := range stories {
		i := i
		g.Go(func() error {
			reports[i] = o.processStory(ctx, run, stories[i], slugs[i])
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		RunID:    run.ID,
		Dir:      run.Dir,
		Started:  run.Started,
		Finished: time.Now(),
		Stories:  reports,
	}
	path, err := report.write()
	if err != nil {
		return report, err
	}

	counts := report.Counts()
	o.logger.Info("run finished",
		"run_id", run.ID,
		"stories", len(stories),
		"success", counts[StatusSuccess],
		"partial", counts[StatusPartial],
		"failed", counts[StatusFailed],
		"report", path,
	)
	return report, nil
}

// AssignSlugs derives one unique slug per story, in input order. A repeated
// slug gets the story id appended.
func AssignSlugs(stories []story.Story) []string {
	seen := make(map[string]bool, len(stories))
	slugs := make([]string, len(stories))
	for i, s := range stories {
		slug := s.Slug()
		if slug == "" {
			slug = fmt.Sprintf("story_%d", i+1)
		}
		if seen[slug] {
			if id := story.Slug(s.ID); id != "" {
				slug += "_" + id
			}
		}
		for n := 2; seen[slug]; n++ {
			slug = fmt.Sprintf("%s_%d", slug, n)
		}
		seen[slug] = true
		slugs[i] = slug
	}
	return slugs
}

// processStory returns through a named result so the deferred settle fills
// in the status and elapsed time on every exit path.
func (o *Orchestrator) processStory(ctx context.Context, run *RunContext, raw story.Story, slug string) (rep StoryReport) {
	start := time.Now()
	s := raw.Clean()
	logger := o.logger.With("story_id", s.ID, "slug", slug)
	rep = StoryReport{ID: s.ID, Slug: slug, Title: s.Title}
	defer func() {
		rep.ElapsedMs = time.Since(start).Milliseconds()
		rep.settle()
		logger.Info("story finished", "status", rep.Status, "elapsed", time.Since(start))
	}()

	failed := func(stage Stage, err error) {
		rep.fail(stage, err)
		logger.Error("stage failed", "stage", stage, "kind", fault.KindOf(err), "error", err)
	}

	dir := run.StoryDir(slug)
	if err := os.MkdirAll(dir, 0755); err != nil {
		failed(StageTranscript, errors.Wrap(err, "create story dir"))
		return rep
	}
	base := filepath.Join(dir, slug)

	audio := types.AudioAsset{Path: base + o.opts.AudioExt}
	tr, err := o.synthesize(ctx, logger, s.Narration(), audio.Path)
	if err != nil {
		failed(StageTranscript, err)
		return rep
	}
	// The duration is filled in once assembly has probed the audio.
	audioRecord := len(rep.Artifacts)
	rep.add(audio)

	var subtitles string
	if err := transcript.WriteFile(base+".txt", tr); err != nil {
		failed(StageCodec, err)
		return rep
	}
	rep.add(types.TranscriptAsset{Path: base + ".txt", Events: tr.Len()})
	if o.opts.WriteSRT {
		subtitles = base + ".srt"
		if err := transcript.WriteSRTFile(subtitles, tr, o.opts.Cues); err != nil {
			failed(StageCodec, err)
			return rep
		}
		rep.add(types.TranscriptAsset{Path: subtitles, Events: len(transcript.Cues(tr, o.opts.Cues))})
	}

	var image *types.ImageAsset
	if img, err := o.renderCard(s, raw, base+".png"); err != nil {
		failed(StageTitleCard, err)
	} else {
		image = &img
		rep.add(img)
	}

	res, err := o.assembler.Assemble(ctx, processor.Request{
		Slug:      slug,
		Dir:       dir,
		Title:     s.Title,
		Audio:     audio,
		Image:     image,
		Subtitles: subtitles,
	})
	if err != nil {
		failed(StageAssemble, err)
		return rep
	}
	rep.Mode = string(res.Mode)
	rep.Artifacts[audioRecord].DurationMs = res.Narration.Milliseconds()
	rep.add(res.Video)
	for _, part := range res.Parts {
		rep.add(part)
	}
	return rep
}

// synthesize runs the transcript stage, retrying transient service failures
// with linear backoff.
func (o *Orchestrator) synthesize(ctx context.Context, logger *slog.Logger, text, audioPath string) (transcript.Transcript, error) {
	var (
		tr  transcript.Transcript
		err error
	)
	for attempt := 1; attempt <= o.opts.Retries+1; attempt++ {
		tr, err = o.synth.Build(ctx, text, audioPath)
		if err == nil || !fault.Retryable(err) || attempt > o.opts.Retries {
			return tr, err
		}

		wait := o.opts.RetryBackoff * time.Duration(attempt)
		logger.Warn("synthesis failed, retrying", "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return tr, fault.FromContext(ctx, fault.KindExternalService, "synthesize", err)
		case <-time.After(wait):
		}
	}
	return tr, err
}

// renderCard draws the title card from the cleaned title and the raw
// counters, then pads it onto the output canvas.
func (o *Orchestrator) renderCard(s, raw story.Story, out string) (types.ImageAsset, error) {
	img, err := o.renderer.Render(s.Title, raw.Score, raw.Comments, out)
	if err != nil {
		return types.ImageAsset{}, err
	}
	if o.opts.Canvas.Width <= 0 || o.opts.Canvas.Height <= 0 {
		return img, nil
	}
	if img.Width == o.opts.Canvas.Width && img.Height == o.opts.Canvas.Height {
		return img, nil
	}
	if err := normalize.File(out, out, o.opts.Canvas, normalize.ScalePad, o.opts.CardFill); err != nil {
		return types.ImageAsset{}, err
	}
	img.Width, img.Height = o.opts.Canvas.Width, o.opts.Canvas.Height
	return img, nil
}
