package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ZacxDev/story-reels/internal/pipeline"
	"github.com/ZacxDev/story-reels/pkg/storyreels"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "story-reels",
		Short: "Turn top reddit stories into narrated short-form videos",
		Long: `story-reels fetches the top stories of a subreddit, narrates each one with
text-to-speech, renders a title card and assembles a captioned vertical video.

Examples:
  # Process today's top AITA posts with the default config
  story-reels run

  # Process stories from a local file for YouTube Shorts
  story-reels run --stories stories.json -t youtube-shorts -v

  # Convert a saved transcript to SubRip
  story-reels captions -i output/run/slug/slug.txt -o slug.srt`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Fetch stories and produce one video per story",
		Long: fmt.Sprintf(`Fetch a batch of stories and run every one through synthesis, title card
rendering and assembly. Each run writes into its own directory under the output
root, with a report.json describing what each story produced.

Supported platforms:
%s`, formatSupportedPlatforms()),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &storyreels.RunOptions{}

			opts.ConfigPath, _ = cmd.Flags().GetString("config")
			opts.StoriesFile, _ = cmd.Flags().GetString("stories")
			opts.OutputRoot, _ = cmd.Flags().GetString("output")
			opts.Platform, _ = cmd.Flags().GetString("target-platform")
			opts.Limit, _ = cmd.Flags().GetInt("limit")
			opts.Verbose, _ = cmd.Flags().GetBool("verbose")

			report, err := storyreels.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		},
	}

	captionsCmd = &cobra.Command{
		Use:   "captions",
		Short: "Convert a transcript file into SubRip captions",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &storyreels.CaptionOptions{}

			opts.InputPath, _ = cmd.Flags().GetString("input")
			opts.OutputPath, _ = cmd.Flags().GetString("output")
			opts.MaxWords, _ = cmd.Flags().GetInt("max-words")
			opts.MaxGap, _ = cmd.Flags().GetDuration("max-gap")

			if opts.OutputPath == "" {
				opts.OutputPath = strings.TrimSuffix(opts.InputPath, ".txt") + ".srt"
			}
			return storyreels.WriteCaptions(opts)
		},
	}

	probeCmd = &cobra.Command{
		Use:   "probe [file]",
		Short: "Print duration and dimensions of a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := storyreels.GetVideoMetadata(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Printf("duration=%s width=%d height=%d codec=%s\n", md.Duration, md.Width, md.Height, md.Codec)
			return nil
		},
	}

	platformsCmd = &cobra.Command{
		Use:   "platforms",
		Short: "List supported output platforms",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(formatSupportedPlatforms())
		},
	}
)

func formatSupportedPlatforms() string {
	platforms := storyreels.GetSupportedPlatforms()
	var sb strings.Builder
	for _, platform := range platforms {
		sb.WriteString(fmt.Sprintf("- %s\n", platform))
	}
	return sb.String()
}

func printReport(cmd *cobra.Command, report pipeline.Report) {
	counts := report.Counts()
	cmd.Printf("run %s: %d stories (%d success, %d partial, %d failed) in %s\n",
		report.RunID, len(report.Stories),
		counts[pipeline.StatusSuccess], counts[pipeline.StatusPartial], counts[pipeline.StatusFailed],
		report.Finished.Sub(report.Started).Round(time.Millisecond))
	for _, s := range report.Stories {
		line := fmt.Sprintf("  %-8s %s", s.Status, s.Slug)
		if stage := s.FailedStage(); stage != "" {
			line += fmt.Sprintf(" (%s: %s)", stage, s.Failures[0].Kind)
		}
		cmd.Println(line)
	}
	cmd.Printf("output: %s\n", report.Dir)
}

func init() {
	// Run command flags
	runCmd.Flags().StringP("config", "c", "", "Path to config.yaml (default $STORY_REELS_CONFIG)")
	runCmd.Flags().String("stories", "", "Read stories from a JSON file instead of reddit")
	runCmd.Flags().StringP("output", "o", "", "Output root directory")
	runCmd.Flags().StringP("target-platform", "t", "",
		fmt.Sprintf("Target platform (%s)", strings.Join(storyreels.GetSupportedPlatforms(), ", ")))
	runCmd.Flags().IntP("limit", "n", 0, "Number of stories to fetch")
	runCmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")

	// Captions command flags
	captionsCmd.Flags().StringP("input", "i", "", "Transcript file")
	captionsCmd.Flags().StringP("output", "o", "", "SubRip output path (default: input with .srt)")
	captionsCmd.Flags().Int("max-words", 0, "Words per caption cue")
	captionsCmd.Flags().Duration("max-gap", 0, "Silence that always starts a new cue")

	captionsCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(captionsCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(platformsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
