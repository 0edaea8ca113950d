// Command windryft is a terminal client for the Pocket WinDryft server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"windryft.app/pocket-windryft/internal/client"
	"windryft.app/pocket-windryft/internal/store"
	"windryft.app/pocket-windryft/internal/timer"
)

var (
	colorPrimary = lipgloss.Color("#6C63FF")
	colorSuccess = lipgloss.Color("#2ECC71")
	colorWarning = lipgloss.Color("#F39C12")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#666666")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	timerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	pausedStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWarning)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	replyStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorPrimary).Padding(0, 1)
	sessionStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSuccess).Padding(0, 2)
)

const usage = `usage: windryft [-server URL] <command> [args]

commands:
  login <username> <password>
  projects
  session start [-project ID] [-type focus|break|meeting]
  session end | status | watch
  chat [-project ID] [-provider NAME] [-history] <message>
  summarize [-points N] [-length N] [-provider NAME] <text | ->
  pomodoro start | pause | skip | reset | status
`

// serverSet reports an explicit -server, which overrides the one saved at login.
var serverSet bool

// credentials are what login leaves behind for later commands.
type credentials struct {
	Server string `json:"server"`
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

func main() {
	server := flag.String("server", envOr("WINDRYFT_URL", "http://localhost:8080"), "API base URL")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "server" {
			serverSet = true
		}
	})

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *server, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, server, cmd string, args []string) error {
	switch cmd {
	case "login":
		return cmdLogin(ctx, server, args)
	case "projects":
		return withSession(server, func(c *client.Client, creds *credentials) error { return cmdProjects(ctx, c, creds) })
	case "session":
		return withSession(server, func(c *client.Client, creds *credentials) error { return cmdSession(ctx, c, creds, args) })
	case "chat":
		return withSession(server, func(c *client.Client, creds *credentials) error { return cmdChat(ctx, c, creds, args) })
	case "summarize":
		return cmdSummarize(ctx, client.New(server, nil), args)
	case "pomodoro":
		return cmdPomodoro(args)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func cmdLogin(ctx context.Context, server string, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: windryft login <username> <password>")
	}
	c := client.New(server, nil)
	sess, err := c.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	creds := &credentials{Server: server, Token: sess.Token, UserID: sess.User.ID, Name: sess.User.Name}
	if err := saveJSON("credentials.json", creds); err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("Welcome, " + sess.User.Name))
	return nil
}

func withSession(server string, fn func(*client.Client, *credentials) error) error {
	var creds credentials
	if err := loadJSON("credentials.json", &creds); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.New("not logged in, run: windryft login <username> <password>")
		}
		return err
	}
	if creds.Server != "" && !serverSet {
		server = creds.Server
	}
	c := client.New(server, nil)
	c.SetToken(creds.Token)
	return fn(c, &creds)
}

func cmdProjects(ctx context.Context, c *client.Client, creds *credentials) error {
	projects, err := c.Projects(ctx, creds.UserID)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println(mutedStyle.Render("No projects yet."))
		return nil
	}
	fmt.Println(titleStyle.Render("Projects"))
	for _, p := range projects {
		fmt.Printf("  %-4d %-28s %3d%%  %s  %s\n", p.ID, p.Name, p.Progress,
			mutedStyle.Render(p.Type), mutedStyle.Render(formatMinutes(p.TimeLogged)))
	}
	return nil
}

func cmdSession(ctx context.Context, c *client.Client, creds *credentials, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: windryft session start|end|status|watch")
	}
	switch args[0] {
	case "start":
		fs := flag.NewFlagSet("session start", flag.ContinueOnError)
		project := fs.Int64("project", 0, "project ID")
		kind := fs.String("type", store.SessionFocus, "focus, break or meeting")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		var projectID *int64
		if *project > 0 {
			projectID = project
		}
		ws, err := c.StartSession(ctx, creds.UserID, projectID, *kind)
		if err != nil {
			return err
		}
		fmt.Println(renderSession(ws, time.Now()))
		return nil

	case "end":
		current, err := c.CurrentSession(ctx, creds.UserID)
		if errors.Is(err, client.ErrNotFound) {
			fmt.Println(mutedStyle.Render("No active session."))
			return nil
		}
		if err != nil {
			return err
		}
		ended, err := c.EndSession(ctx, current.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Session %d ended after %s\n", ended.ID, formatMinutes(derefInt(ended.Duration)))
		return nil

	case "status", "watch":
		current, err := c.CurrentSession(ctx, creds.UserID)
		if errors.Is(err, client.ErrNotFound) {
			fmt.Println(mutedStyle.Render("Idle. Start a session with: windryft session start"))
			return nil
		}
		if err != nil {
			return err
		}
		if args[0] == "status" {
			fmt.Println(renderSession(current, time.Now()))
			return nil
		}
		return watch(ctx, os.Stdout, current)

	default:
		return fmt.Errorf("unknown session command %q", args[0])
	}
}

// watch redraws the elapsed clock every second until interrupted.
func watch(ctx context.Context, w io.Writer, ws *store.WorkSession) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		fmt.Fprintf(w, "\r%s %s ", timerStyle.Render(timer.Elapsed(ws.StartTime, time.Now()).String()), mutedStyle.Render(ws.Type))
		select {
		case <-ctx.Done():
			fmt.Fprintln(w)
			return nil
		case <-ticker.C:
		}
	}
}

func renderSession(ws *store.WorkSession, now time.Time) string {
	project := "no project"
	if ws.ProjectID != nil {
		project = fmt.Sprintf("project %d", *ws.ProjectID)
	}
	body := fmt.Sprintf("%s  %s\n%s",
		timerStyle.Render(timer.Elapsed(ws.StartTime, now).String()),
		ws.Type,
		mutedStyle.Render(fmt.Sprintf("session %d, %s, since %s", ws.ID, project, ws.StartTime.Local().Format("15:04"))))
	return sessionStyle.Render(body)
}

func cmdChat(ctx context.Context, c *client.Client, creds *credentials, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	project := fs.Int64("project", 0, "project ID")
	provider := fs.String("provider", "", "gemini, anthropic or deepseek")
	history := fs.Bool("history", false, "print the cached conversation first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var projectID *int64
	if *project > 0 {
		projectID = project
	}

	cachePath, err := client.DefaultCachePath()
	if err != nil {
		return err
	}
	cache, err := client.OpenConversationCache(cachePath)
	if err != nil {
		return err
	}

	if *history {
		msgs, err := cache.Refresh(ctx, c, creds.UserID, projectID)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			printMessage(m)
		}
	}

	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" {
		if *history {
			return nil
		}
		return errors.New("usage: windryft chat [-project ID] <message>")
	}

	ex, err := c.Ask(ctx, creds.UserID, projectID, message, *provider)
	if err != nil {
		return err
	}
	id := client.ConversationID(projectID)
	cache.Append(id, ex.UserMessage, ex.AssistantMessage)
	if err := cache.Save(); err != nil {
		return err
	}
	printMessage(ex.AssistantMessage)
	return nil
}

func printMessage(m store.AssistantMessage) {
	if m.Sender == store.SenderUser {
		fmt.Println(mutedStyle.Render("you: ") + m.Content)
		return
	}
	label := "assistant"
	if m.Provider != nil && *m.Provider != "" {
		label += " (" + *m.Provider + ")"
	}
	fmt.Println(titleStyle.Render(label))
	fmt.Println(replyStyle.Width(76).Render(m.Content))
}

func cmdSummarize(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	points := fs.Int("points", 0, "return N key points instead of prose")
	maxLength := fs.Int("length", 0, "approximate summary length in characters")
	provider := fs.String("provider", "", "gemini, anthropic or deepseek")
	if err := fs.Parse(args); err != nil {
		return err
	}

	text := strings.Join(fs.Args(), " ")
	if text == "-" || text == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(raw)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("nothing to summarize")
	}

	opts := client.SummarizeOptions{MaxLength: *maxLength, Provider: *provider}
	if *points > 0 {
		opts.Format, opts.MaxPoints = "key_points", *points
	}
	summary, err := c.Summarize(ctx, text, opts)
	if err != nil {
		return err
	}
	fmt.Println(replyStyle.Width(76).Render(summary))
	return nil
}

func cmdPomodoro(args []string) error {
	path, err := statePath("pomodoro.json")
	if err != nil {
		return err
	}
	p, err := timer.LoadPomodoro(path)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, ev := range p.Tick(now) {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("%s finished at %s, next: %s", ev.Completed, ev.At.Local().Format("15:04"), ev.Next)))
	}

	cmd := "status"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "start":
		p.Start(now)
	case "pause":
		p.Pause(now)
	case "skip":
		p.Skip(now)
	case "reset":
		p.Reset()
	case "status":
	default:
		return fmt.Errorf("unknown pomodoro command %q", cmd)
	}

	if err := p.Save(path); err != nil {
		return err
	}

	left := p.Remaining(now).Round(time.Second)
	clock := fmt.Sprintf("%02d:%02d", int(left.Minutes()), int(left.Seconds())%60)
	style := timerStyle
	if p.Status != timer.StatusRunning {
		style = pausedStyle
	}
	fmt.Printf("%s  %s %s\n", style.Render(clock), p.Mode, mutedStyle.Render(fmt.Sprintf("(%s, %d focus rounds done)", p.Status, p.Completed())))
	return nil
}

func statePath(name string) (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "windryft", name), nil
}

func saveJSON(name string, v any) error {
	path, err := statePath(name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func loadJSON(name string, v any) error {
	path, err := statePath(name)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
