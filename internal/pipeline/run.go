package pipeline

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// RunContext is one execution's output scope. Every component receives it
// explicitly; nothing in the pipeline keeps a process-wide output directory.
type RunContext struct {
	ID      string
	Dir     string
	Started time.Time
}

// NewRunContext creates a fresh run directory under root. Directories are
// never reused: the name carries the start time and a random run id.
func NewRunContext(root string, now time.Time) (*RunContext, error) {
	id := uuid.NewString()
	dir := filepath.Join(root, now.Format("20060102_150405")+"_"+id[:8])
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "create output root %s", root)
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create run dir %s", dir)
	}
	return &RunContext{ID: id, Dir: dir, Started: now}, nil
}

// StoryDir is the subtree holding one story's artifacts.
func (r *RunContext) StoryDir(slug string) string {
	return filepath.Join(r.Dir, slug)
}
