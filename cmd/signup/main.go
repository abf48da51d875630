package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"go.uber.org/zap"

	"github.com/mergington/signup/internal/browser"
	"github.com/mergington/signup/internal/config"
	"github.com/mergington/signup/internal/logging"
	"github.com/mergington/signup/internal/session"
	"github.com/mergington/signup/internal/store"
	"github.com/mergington/signup/internal/tui"
	"github.com/mergington/signup/pkg/client"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "version", "-v":
			fmt.Println("signup " + version)
			return nil
		case "help", "--help", "-h":
			printHelp(os.Stdout)
			return nil
		}
	}

	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	log, flush, err := logging.New(cfg.LogFile)
	if err != nil {
		return err
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logging.ToContext(ctx, log)

	c := newCLI(cfg, log, os.Stdin, os.Stdout)
	if term.IsTerminal(os.Stdin.Fd()) {
		c.readPassword = func() (string, error) {
			b, err := term.ReadPassword(os.Stdin.Fd())
			fmt.Fprintln(c.out)
			return string(b), err
		}
	}
	return c.dispatch(ctx, args)
}

// cli wires the session controller to one-shot commands and the TUI.
type cli struct {
	cfg    config.Config
	log    *zap.SugaredLogger
	api    *client.Client
	tokens *store.FileStore
	ctrl   *session.Controller

	in  *bufio.Reader
	out io.Writer

	readPassword func() (string, error)
	openURL      func(string) error
	runTUI       func(tea.Model) error
}

func newCLI(cfg config.Config, log *zap.SugaredLogger, in io.Reader, out io.Writer) *cli {
	api := client.New(cfg.APIURL, cfg.HTTPTimeout)
	st := store.NewFileStore(cfg.TokenFile, cfg.Token)
	return &cli{
		cfg:     cfg,
		log:     log,
		api:     api,
		tokens:  st,
		ctrl:    session.New(api, st, log),
		in:      bufio.NewReader(in),
		out:     out,
		openURL: browser.Open,
		runTUI: func(m tea.Model) error {
			_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.tui()
	}
	switch args[0] {
	case "tui":
		return c.tui()
	case "login":
		return c.login(ctx, args[1:])
	case "logout":
		return c.logout()
	case "status":
		return c.status(ctx)
	case "list":
		return c.list(ctx)
	case "add":
		return c.mutate(ctx, session.ActionSignup, args[1:])
	case "remove":
		return c.mutate(ctx, session.ActionUnregister, args[1:])
	case "open":
		return c.open()
	}
	return fmt.Errorf("unknown command %q (see 'signup help')", args[0])
}

func (c *cli) tui() error {
	app := tui.NewApp(c.ctrl, c.api, c.log, c.cfg.WebURL)
	if err := c.runTUI(app); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Fprint(c.out, "Username: ")
		line, err := c.readLine()
		if err != nil {
			return fmt.Errorf("read username: %w", err)
		}
		username = line
	}
	fmt.Fprint(c.out, "Password: ")
	password, err := c.password()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return errors.New("username and password are required")
	}

	out := c.ctrl.Login(ctx, username, password)
	if out.LoginError != "" {
		return errors.New(out.LoginError)
	}
	if err := c.report(out); err != nil {
		return err
	}
	fmt.Fprintln(c.out, c.ctrl.Enablement().Greeting)
	return nil
}

func (c *cli) logout() error {
	c.ctrl.Restore()
	return c.report(c.ctrl.Logout())
}

func (c *cli) status(ctx context.Context) error {
	c.restore(ctx)
	if en := c.ctrl.Enablement(); en.Greeting != "" {
		fmt.Fprintln(c.out, en.Greeting)
	} else {
		fmt.Fprintln(c.out, "Not logged in")
	}
	fmt.Fprintln(c.out, dim.Render("API: "+c.api.BaseURL()))
	fmt.Fprintln(c.out, dim.Render("Token file: "+c.tokens.Path()))
	return nil
}

func (c *cli) list(ctx context.Context) error {
	acts, err := c.api.ListActivities(ctx)
	if err != nil {
		logging.FromContext(ctx).Errorw("activity load failed", "error", err)
		return errors.New("Failed to load activities. Please try again later.")
	}
	if len(acts) == 0 {
		fmt.Fprintln(c.out, "No activities")
		return nil
	}
	for _, a := range acts {
		spots := fmt.Sprintf("%d spots left", a.SpotsLeft())
		fmt.Fprintf(c.out, "%s  %s\n", bold.Render(a.Name), dim.Render(spots))
		fmt.Fprintf(c.out, "  %s\n", a.Description)
		fmt.Fprintf(c.out, "  Schedule: %s\n", a.Schedule)
		if len(a.Participants) == 0 {
			fmt.Fprintln(c.out, "  No participants yet")
		} else {
			fmt.Fprintf(c.out, "  Participants: %s\n", strings.Join(a.Participants, ", "))
		}
	}
	return nil
}

func (c *cli) mutate(ctx context.Context, action session.Action, args []string) error {
	verb := "add"
	if action == session.ActionUnregister {
		verb = "remove"
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: signup %s <activity> <email>", verb)
	}
	c.restore(ctx)
	if action == session.ActionUnregister {
		return c.report(c.ctrl.Unregister(ctx, args[0], args[1]))
	}
	return c.report(c.ctrl.Signup(ctx, args[0], args[1]))
}

func (c *cli) open() error {
	fmt.Fprintf(c.out, "Opening %s\n", c.cfg.WebURL)
	if err := c.openURL(c.cfg.WebURL); err != nil {
		return fmt.Errorf("could not open browser, visit %s manually: %w", c.cfg.WebURL, err)
	}
	return nil
}

// restore picks up the saved token and confirms it. A rejected token is
// reported but is not an error of the command itself.
func (c *cli) restore(ctx context.Context) {
	if c.ctrl.Restore() != session.Verifying {
		return
	}
	if out := c.ctrl.Verify(ctx); out.Notice != nil {
		fmt.Fprintln(c.out, out.Notice.Text)
	}
}

// report prints the notice of out and turns an error notice into an error.
func (c *cli) report(out session.Outcome) error {
	if out.Notice == nil {
		return nil
	}
	if out.Notice.Kind == session.NoticeError {
		return errors.New(out.Notice.Text)
	}
	fmt.Fprintln(c.out, out.Notice.Text)
	return nil
}

func (c *cli) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) password() (string, error) {
	if c.readPassword != nil {
		return c.readPassword()
	}
	return c.readLine()
}

var (
	bold = lipgloss.NewStyle().Bold(true)
	dim  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)
