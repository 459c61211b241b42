package story

import (
	"context"
	"encoding/json"
	"os"

	"github.com/ZacxDev/story-reels/internal/config"
	"github.com/ZacxDev/story-reels/internal/fault"
	"github.com/pkg/errors"
	"github.com/vartanbeno/go-reddit/v2/reddit"
)

// Source supplies the stories for one run.
type Source interface {
	Fetch(ctx context.Context) ([]Story, error)
}

type topLister interface {
	TopPosts(ctx context.Context, subreddit string, opts *reddit.ListPostOptions) ([]*reddit.Post, *reddit.Response, error)
}

// RedditSource lists a subreddit's top posts for a time window, skipping
// stickied posts.
type RedditSource struct {
	posts     topLister
	subreddit string
	limit     int
	window    string
}

// NewRedditSource builds an authenticated client when credentials are set
// and falls back to the read-only client otherwise.
func NewRedditSource(cfg config.RedditConfig) (*RedditSource, error) {
	opts := []reddit.Opt{reddit.WithUserAgent(cfg.UserAgent)}

	var (
		client *reddit.Client
		err    error
	)
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		client, err = reddit.NewClient(reddit.Credentials{
			ID:     cfg.ClientID,
			Secret: cfg.ClientSecret,
		}, opts...)
	} else {
		client, err = reddit.NewReadonlyClient(opts...)
	}
	if err != nil {
		return nil, errors.Wrap(err, "create reddit client")
	}

	return newRedditSource(client.Subreddit, cfg), nil
}

func newRedditSource(posts topLister, cfg config.RedditConfig) *RedditSource {
	limit := cfg.Limit
	if limit <= 0 {
		limit = config.DefaultLimit
	}
	window := cfg.TimeWindow
	if window == "" {
		window = "day"
	}
	sub := cfg.Subreddit
	if sub == "" {
		sub = config.DefaultSubreddit
	}
	return &RedditSource{posts: posts, subreddit: sub, limit: limit, window: window}
}

func (s *RedditSource) Fetch(ctx context.Context) ([]Story, error) {
	posts, _, err := s.posts.TopPosts(ctx, s.subreddit, &reddit.ListPostOptions{
		ListOptions: reddit.ListOptions{Limit: s.limit},
		Time:        s.window,
	})
	if err != nil {
		return nil, fault.FromContext(ctx, fault.KindExternalService, "reddit top posts", err)
	}

	stories := make([]Story, 0, len(posts))
	for _, p := range posts {
		if p == nil || p.Stickied {
			continue
		}
		stories = append(stories, Story{
			ID:       p.ID,
			Title:    p.Title,
			Body:     p.Body,
			Score:    p.Score,
			Comments: p.NumberOfComments,
		})
		if len(stories) == s.limit {
			break
		}
	}
	return stories, nil
}

// FileSource reads stories from a JSON array, for offline runs.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(ctx context.Context) ([]Story, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fault.New(fault.KindResourceMissing, "read stories", err)
	}
	var stories []Story
	if err := json.Unmarshal(raw, &stories); err != nil {
		return nil, errors.Wrapf(err, "parse stories %s", s.Path)
	}
	return stories, nil
}
