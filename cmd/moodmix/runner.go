package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/ewilliams-labs/moodmix/backend/internal/app"
	"github.com/ewilliams-labs/moodmix/backend/internal/config"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/services"
	"github.com/ewilliams-labs/moodmix/backend/internal/shared"
)

var errMissingMood = errors.New("a mood argument is required")

// Opener builds an App for one command invocation.
type Opener func(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app.App, error)

// Runner holds the dependencies of CLI commands and provides one method per command action.
type Runner struct {
	open   Opener
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Open   Opener
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a Runner, defaulting to live Spotify and Ollama clients.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Open == nil {
		opts.Open = app.New
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{open: opts.Open, logger: opts.Logger, output: opts.Output}
}

func (r *Runner) register() []*cli.Command {
	lengthFlag := &cli.IntFlag{
		Name:    "length",
		Aliases: []string{"n"},
		Usage:   "Number of tracks (4-10); defaults to the number in the mood text",
	}
	moodArg := []cli.Argument{&cli.StringArg{Name: "mood"}}

	return []*cli.Command{
		{
			Name:   "init",
			Usage:  "Write a config.toml with default settings",
			Action: r.Init,
		},
		{
			Name:      "plan",
			Usage:     "Interpret a mood into a plan",
			Arguments: moodArg,
			Action:    r.Plan,
		},
		{
			Name:      "preview",
			Usage:     "Pick tracks for a mood without creating a playlist",
			Arguments: moodArg,
			Flags:     []cli.Flag{lengthFlag},
			Action:    r.Preview,
		},
		{
			Name:      "build",
			Usage:     "Create a playlist for a mood",
			Arguments: moodArg,
			Flags: []cli.Flag{
				lengthFlag,
				&cli.StringFlag{Name: "name", Usage: "Playlist name; derived from the mood when empty"},
				&cli.BoolFlag{Name: "public", Usage: "Make the playlist public"},
				&cli.BoolFlag{Name: "collaborative", Usage: "Make the playlist collaborative"},
			},
			Action: r.Build,
		},
		{
			Name:  "history",
			Usage: "List playlists created by MoodMix",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				&cli.IntFlag{Name: "limit", Usage: "Page size (1-200)", Value: 50},
				&cli.IntFlag{Name: "offset", Usage: "Number of newer playlists to skip"},
			},
			Action: r.History,
		},
	}
}

// Init writes the example configuration to the --config path.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := config.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return nil
}

// Plan prints the plan for a mood. The user's lease stays held for a
// following build.
func (r *Runner) Plan(ctx context.Context, cmd *cli.Command) error {
	mood, err := moodArgument(cmd)
	if err != nil {
		return err
	}
	return r.withApp(ctx, cmd, func(a *app.App) error {
		plan, err := a.Orchestrator.PlanFromMood(ctx, cmd.String("user"), mood)
		if err != nil {
			return err
		}
		return r.writeJSON(plan)
	})
}

// Preview plans a mood and prints the selected tracks with their debug record.
func (r *Runner) Preview(ctx context.Context, cmd *cli.Command) error {
	mood, err := moodArgument(cmd)
	if err != nil {
		return err
	}
	return r.withApp(ctx, cmd, func(a *app.App) error {
		plan, err := a.Planner.Plan(ctx, mood)
		if err != nil {
			return err
		}
		preview, err := a.Orchestrator.Preview(ctx, cmd.String("user"), plan, cmd.Int("length"))
		// An unfilled preview is still printed so its debug record is visible.
		var quota *domain.QuotaError
		if err != nil && !errors.As(err, &quota) {
			return err
		}
		if werr := r.writeJSON(preview); werr != nil {
			return werr
		}
		return err
	})
}

// Build creates the playlist and prints where to find it.
func (r *Runner) Build(ctx context.Context, cmd *cli.Command) error {
	mood, err := moodArgument(cmd)
	if err != nil {
		return err
	}
	return r.withApp(ctx, cmd, func(a *app.App) error {
		res, err := a.Orchestrator.Build(ctx, cmd.String("user"), services.BuildRequest{
			Mood:          mood,
			Length:        cmd.Int("length"),
			Name:          cmd.String("name"),
			Public:        cmd.Bool("public"),
			Collaborative: cmd.Bool("collaborative"),
		})
		if err != nil {
			return err
		}
		if err := r.writePlain("%s\n%s\n", res.Playlist.Name, res.Playlist.RemoteURL); err != nil {
			return err
		}
		for i, t := range res.Playlist.Tracks {
			if err := r.writePlain("%2d. %s - %s\n", i+1, t.Title, strings.Join(t.ArtistNames(), ", ")); err != nil {
				return err
			}
		}
		return nil
	})
}

// History lists one page of the user's stored playlists, newest first,
// after refreshing stale ones from Spotify.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	return r.withApp(ctx, cmd, func(a *app.App) error {
		page, err := a.Orchestrator.ListPlaylists(ctx, cmd.String("user"), cmd.Int("limit"), cmd.Int("offset"))
		if err != nil {
			return err
		}
		if page.RetryAfter != "" {
			r.logger.Warn("spotify rate limited the refresh, showing cached data", "retry_after", page.RetryAfter)
		}
		playlists := page.Playlists
		if cmd.Bool("json") {
			if playlists == nil {
				playlists = []domain.Playlist{}
			}
			return r.writeJSON(playlists)
		}
		if len(playlists) == 0 {
			return r.writePlain("no playlists yet\n")
		}
		for _, p := range playlists {
			if err := r.writePlain("%s  %-40s %2d tracks  %s\n",
				p.CreatedAt.Local().Format("2006-01-02 15:04"), p.Name, len(p.Tracks), p.RemoteURL); err != nil {
				return err
			}
		}
		if page.NextOffset != nil {
			return r.writePlain("%d of %d shown, next page: --offset %d\n", len(playlists), page.Count, *page.NextOffset)
		}
		return nil
	})
}

func (r *Runner) withApp(ctx context.Context, cmd *cli.Command, fn func(a *app.App) error) error {
	cfg, err := config.Load(cmd.String("config"), cmd.String("env-file"))
	if err != nil {
		return err
	}
	if !shared.SetLogLevel(r.logger, cfg.LogLevel) {
		r.logger.Warn("unknown log level, using info", "level", cfg.LogLevel)
	}
	a, err := r.open(ctx, cfg, r.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			r.logger.Warn("close failed", "error", err)
		}
	}()
	return fn(a)
}

func moodArgument(cmd *cli.Command) (string, error) {
	mood := strings.TrimSpace(cmd.StringArg("mood"))
	if mood == "" {
		return "", errMissingMood
	}
	return mood, nil
}

func (r *Runner) writeJSON(data any) error {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
