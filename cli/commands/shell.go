package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	shortener "github.com/vsavik/url-shortener"
	"github.com/vsavik/url-shortener/cli/styles"
	"github.com/vsavik/url-shortener/cli/ui"
)

// Shell is a line-oriented session against one App.
type Shell struct {
	app    *App
	out    io.Writer
	prompt bool
}

// NewShell creates a shell writing to out. With prompt set, a prompt is
// printed before every line is read.
func NewShell(app *App, out io.Writer, prompt bool) *Shell {
	return &Shell{app: app, out: out, prompt: prompt}
}

var shellHelp = []string{
	"create <url> [slug]   create a link, generating a slug when none is given",
	"redirect <slug>       follow a link and count the visit",
	"stats <slug>          show the statistics of a link",
	"events <slug>         show the event history of a link",
	"rebuild               refold the statistics from the event log",
	"metrics               show collected metrics (--metrics)",
	"help                  show this help",
	"quit                  leave the shell",
}

// Run reads commands from in until EOF, quit or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.prompt {
			fmt.Fprint(s.out, styles.Highlight.Render(styles.IconPrompt)+" ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if !s.Exec(ctx, scanner.Text()) {
			return nil
		}
	}
}

// Exec runs one command line. It returns false when the session should end.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	verb, args := strings.ToLower(fields[0]), fields[1:]
	var err error

	switch verb {
	case "quit", "exit":
		return false
	case "help", "?":
		fmt.Fprint(s.out, ui.ListItems(shellHelp))
	case "create":
		err = s.create(ctx, args)
	case "redirect", "open":
		err = s.redirect(ctx, args)
	case "stats":
		err = s.stats(ctx, args)
	case "events":
		err = s.events(ctx, args)
	case "rebuild":
		err = s.rebuild(ctx)
	case "metrics":
		err = s.metrics()
	default:
		err = fmt.Errorf("unknown command %q, try help", verb)
	}

	if err != nil {
		if shortener.IsDomainError(err) {
			fmt.Fprintln(s.out, styles.FormatWarning(err.Error()))
		} else {
			fmt.Fprintln(s.out, styles.FormatError(err.Error()))
		}
	}
	return true
}

func usage(text string) error {
	return fmt.Errorf("usage: %s", text)
}

func (s *Shell) create(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("create <url> [slug]")
	}

	var slug shortener.Slug
	if len(args) == 2 {
		slug = shortener.Slug(args[1])
	}

	link, err := s.app.Service.HandleCreateShortLink(ctx, shortener.URL(args[0]), slug)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, styles.FormatSuccess("created "+styles.FormatLink(link.Slug.String(), link.URL.String())))
	return nil
}

func (s *Shell) redirect(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("redirect <slug>")
	}

	link, err := s.app.Service.HandleRedirect(ctx, shortener.Slug(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, styles.FormatSuccess(styles.IconRedirect+" "+link.URL.String()))
	return nil
}

func (s *Shell) stats(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("stats <slug>")
	}

	stats, err := s.app.Service.GetStats(ctx, shortener.Slug(args[0]))
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out, styles.FormatKeyValue("Slug", stats.Link.Slug.String()))
	fmt.Fprintln(s.out, styles.FormatKeyValue("URL", stats.Link.URL.String()))
	fmt.Fprintln(s.out, styles.FormatKeyValue("Redirects", strconv.FormatUint(stats.Redirects, 10)))
	return nil
}

func (s *Shell) events(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("events <slug>")
	}

	events, err := s.app.Service.Events(ctx, shortener.Slug(args[0]))
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return shortener.NewLinkError("events", shortener.Slug(args[0]), shortener.ErrSlugNotFound)
	}

	table := ui.NewTable("Version", "Kind", "Position", "Time", "Correlation")
	for _, e := range events {
		table.AddRow(
			strconv.FormatInt(e.Version, 10),
			string(e.Kind()),
			strconv.FormatUint(e.GlobalPosition, 10),
			e.Timestamp.Format(time.RFC3339),
			e.Metadata.CorrelationID,
		)
	}
	fmt.Fprintln(s.out, table.Render())
	return nil
}

func (s *Shell) rebuild(ctx context.Context) error {
	n, err := s.app.Service.RebuildProjection(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, styles.FormatSuccess(fmt.Sprintf("replayed %d events", n)))
	return nil
}

func (s *Shell) metrics() error {
	if s.app.Registry == nil {
		fmt.Fprintln(s.out, styles.FormatInfo("metrics are disabled, start the shell with --metrics"))
		return nil
	}
	return printMetrics(s.app, s.out)
}

// NewShellCommand creates the shell command.
func NewShellCommand(load ConfigLoader) *cobra.Command {
	var noPrompt bool

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start a line-oriented session against an in-memory service",
		Long: `Reads commands from standard input, one per line. State lives for the
duration of the session. Type help for the list of commands.`,
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
			if !noPrompt {
				fmt.Fprintln(out, ui.SimpleBanner())
				fmt.Fprintln(out, styles.Muted.Render("type help for commands"))
			}

			return NewShell(app, out, !noPrompt).Run(cmd.Context(), cmd.InOrStdin())
		},
	}

	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Do not print the banner and prompt (for piped input)")
	return cmd
}
