package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	shortener "github.com/vsavik/url-shortener"
	"github.com/vsavik/url-shortener/cli/styles"
	"github.com/vsavik/url-shortener/cli/ui"
)

const (
	demoSlug       = "goog"
	demoMissing    = "missing"
	demoURL        = "https://google.com"
	demoInvalidURL = "invalid-url"
)

type demoStep struct {
	title string
	run   func(ctx context.Context, svc *shortener.Service) (string, error)
}

func createStep(url shortener.URL, slug shortener.Slug) func(context.Context, *shortener.Service) (string, error) {
	return func(ctx context.Context, svc *shortener.Service) (string, error) {
		link, err := svc.HandleCreateShortLink(ctx, url, slug)
		if err != nil {
			return "", err
		}
		return styles.FormatLink(link.Slug.String(), link.URL.String()), nil
	}
}

func redirectStep(slug shortener.Slug) func(context.Context, *shortener.Service) (string, error) {
	return func(ctx context.Context, svc *shortener.Service) (string, error) {
		link, err := svc.HandleRedirect(ctx, slug)
		if err != nil {
			return "", err
		}
		return styles.FormatLink(link.Slug.String(), link.URL.String()), nil
	}
}

func statsStep(slug shortener.Slug) func(context.Context, *shortener.Service) (string, error) {
	return func(ctx context.Context, svc *shortener.Service) (string, error) {
		stats, err := svc.GetStats(ctx, slug)
		if err != nil {
			return "", err
		}
		return styles.FormatLink(stats.Link.Slug.String(), stats.Link.URL.String()) +
			"  " + styles.FormatKeyValue("redirects", strconv.FormatUint(stats.Redirects, 10)), nil
	}
}

func demoSteps() []demoStep {
	return []demoStep{
		{"Create correct short link", createStep(demoURL, demoSlug)},
		{"Try to create duplicate slug", createStep(demoURL, demoSlug)},
		{"Try to create invalid URL", createStep(demoInvalidURL, "")},
		{"Try to create with random slug", createStep(demoURL, "")},
		{"Try to redirect for valid slug", redirectStep(demoSlug)},
		{"Do the same again to increase counter to 2", redirectStep(demoSlug)},
		{"Try to redirect missing slug", redirectStep(demoMissing)},
		{"Query existing slug", statsStep(demoSlug)},
		{"Query missing slug", statsStep(demoMissing)},
	}
}

// RunDemo walks one service through the demo scenarios and writes each
// outcome to out. Domain rejections are expected and printed, not returned.
func RunDemo(ctx context.Context, svc *shortener.Service, out io.Writer) error {
	steps := demoSteps()
	for i, step := range steps {
		fmt.Fprintln(out, styles.FormatStep(i+1, len(steps), styles.Bold.Render(step.title)))

		result, err := step.run(ctx, svc)
		switch {
		case err == nil:
			fmt.Fprintln(out, styles.Indent.Render(styles.FormatSuccess(result)))
		case shortener.IsDomainError(err):
			fmt.Fprintln(out, styles.Indent.Render(styles.FormatWarning(err.Error())))
		default:
			return fmt.Errorf("%s: %w", step.title, err)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, styles.Muted.Render(fmt.Sprintf("%d links tracked", svc.Projection().Len())))
	return nil
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(load ConfigLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the walkthrough scenarios against a fresh service",
		Long: `Runs create, duplicate, invalid URL, random slug, redirect and stats
scenarios against one in-memory service and prints every outcome.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			app, err := NewApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close(context.WithoutCancel(cmd.Context()))

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Banner())
			fmt.Fprintln(out)

			if err := RunDemo(cmd.Context(), app.Service, out); err != nil {
				return err
			}

			return printMetrics(app, out)
		},
	}
}

func printMetrics(app *App, out io.Writer) error {
	samples, err := app.MetricSamples()
	if err != nil || len(samples) == 0 {
		return err
	}

	table := ui.NewTable("Metric", "Labels", "Value")
	for _, s := range samples {
		table.AddRow(s.Name, s.Labels, strconv.FormatFloat(s.Value, 'f', -1, 64))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, table.Render())
	return nil
}
