package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/ZacxDev/story-reels/internal/fault"
	"github.com/ZacxDev/story-reels/pkg/types"
	"github.com/pkg/errors"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

type Stage string

const (
	StageTranscript Stage = "transcript"
	StageCodec      Stage = "codec"
	StageTitleCard  Stage = "titlecard"
	StageAssemble   Stage = "assemble"
)

type StageFailure struct {
	Stage Stage      `json:"stage"`
	Kind  fault.Kind `json:"kind"`
	Error string     `json:"error"`
}

// StoryReport is the outcome of one story. A story is never dropped from the
// report: it either succeeded or names the stages that failed.
type StoryReport struct {
	ID        string              `json:"id"`
	Slug      string              `json:"slug"`
	Title     string              `json:"title"`
	Status    Status              `json:"status"`
	Mode      string              `json:"mode,omitempty"`
	Failures  []StageFailure      `json:"failures,omitempty"`
	Artifacts []types.AssetRecord `json:"artifacts,omitempty"`
	ElapsedMs int64               `json:"elapsed_ms"`
}

func (r *StoryReport) fail(stage Stage, err error) {
	r.Failures = append(r.Failures, StageFailure{Stage: stage, Kind: fault.KindOf(err), Error: err.Error()})
}

func (r *StoryReport) add(a types.Asset) {
	r.Artifacts = append(r.Artifacts, types.Record(a))
}

func (r *StoryReport) settle() {
	switch {
	case len(r.Failures) == 0:
		r.Status = StatusSuccess
	case len(r.Artifacts) > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusFailed
	}
}

// FailedStage returns the first stage that failed, or "".
func (r StoryReport) FailedStage() Stage {
	if len(r.Failures) == 0 {
		return ""
	}
	return r.Failures[0].Stage
}

type Report struct {
	RunID    string        `json:"run_id"`
	Dir      string        `json:"dir"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Stories  []StoryReport `json:"stories"`
}

// Counts tallies stories by status.
func (r Report) Counts() map[Status]int {
	counts := map[Status]int{}
	for _, s := range r.Stories {
		counts[s.Status]++
	}
	return counts
}

const reportFile = "report.json"

func (r Report) write() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.WithStack(err)
	}
	path := filepath.Join(r.Dir, reportFile)
	return path, errors.Wrap(os.WriteFile(path, data, 0644), "write run report")
}
