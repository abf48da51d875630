package tui

import (
	"fmt"
	"strings"

	"github.com/mergington/signup/internal/session"
	"github.com/mergington/signup/pkg/domain"
)

type mode int

const (
	modeBrowse mode = iota
	modeParticipants
	modeSignup
	modeLogin
)

// uiState is the client-local state that is not owned by the session.
type uiState struct {
	mode     mode
	cursor   int // selected activity
	pcursor  int // selected participant in modeParticipants
	email    string
	login    loginForm
	notice   *session.Notice
	loading  bool
	loadErr  string
	inFlight int
}

// screen is a complete description of what the UI shows. It is produced by
// describe and carries no behavior of its own besides rendering.
type screen struct {
	Greeting      string
	LoginVisible  bool
	LogoutVisible bool
	Verifying     bool

	Loading bool
	LoadErr string
	Cards   []cardView

	Form      formView
	Login     *loginView
	Notice    *session.Notice
	InFlight  int
	Browsing  mode
	HelpLabel []string
}

type cardView struct {
	Name         string
	Description  string
	Schedule     string
	SpotsLeft    int
	Selected     bool
	Participants []participantView
}

type participantView struct {
	Email     string
	Removable bool
	Selected  bool
}

type formView struct {
	Enabled  bool
	Focused  bool
	Email    string
	Activity string
}

type loginView struct {
	Username string
	Password string // already masked
	Focus    loginField
	Error    string
	Pending  bool
}

// describe maps session state, activities and local UI state to a screen.
// It is pure: the same inputs always give the same screen, and every
// enablement flag comes from the single Enablement value passed in.
func describe(en session.Enablement, state session.State, acts domain.ActivityList, ui uiState) screen {
	sc := screen{
		Greeting:      en.Greeting,
		LoginVisible:  en.LoginVisible,
		LogoutVisible: en.LogoutVisible,
		Verifying:     state == session.Verifying,
		Loading:       ui.loading,
		LoadErr:       ui.loadErr,
		Notice:        ui.notice,
		InFlight:      ui.inFlight,
		Browsing:      ui.mode,
	}

	for i, a := range acts {
		card := cardView{
			Name:        a.Name,
			Description: a.Description,
			Schedule:    a.Schedule,
			SpotsLeft:   a.SpotsLeft(),
			Selected:    i == ui.cursor,
		}
		for j, p := range a.Participants {
			card.Participants = append(card.Participants, participantView{
				Email:     p,
				Removable: en.RemoveEnabled,
				Selected:  card.Selected && ui.mode == modeParticipants && j == ui.pcursor,
			})
		}
		sc.Cards = append(sc.Cards, card)
	}

	sc.Form = formView{
		Enabled: en.SignupEnabled,
		Focused: en.SignupEnabled && ui.mode == modeSignup,
	}
	if en.SignupEnabled {
		sc.Form.Email = ui.email
		if ui.cursor >= 0 && ui.cursor < len(acts) {
			sc.Form.Activity = acts[ui.cursor].Name
		}
	}

	if ui.mode == modeLogin && en.LoginVisible {
		sc.Login = &loginView{
			Username: ui.login.username,
			Password: mask(ui.login.password),
			Focus:    ui.login.focus,
			Error:    ui.login.err,
			Pending:  ui.login.pending,
		}
	}

	sc.HelpLabel = helpFor(sc)
	return sc
}

func helpFor(sc screen) []string {
	switch {
	case sc.Login != nil:
		return []string{helpEntry("tab", "next"), helpEntry("enter", "submit"), helpEntry("esc", "cancel")}
	case sc.Form.Focused:
		return []string{helpEntry("tab", "activity"), helpEntry("enter", "register"), helpEntry("esc", "back")}
	case sc.Browsing == modeParticipants:
		h := []string{helpEntry("j/k", "nav")}
		if anyRemovable(sc.Cards) {
			h = append(h, helpEntry("x", "remove"))
		}
		return append(h, helpEntry("c", "copy"), helpEntry("esc", "back"))
	}
	h := []string{helpEntry("j/k", "nav"), helpEntry("enter", "students")}
	if sc.Form.Enabled {
		h = append(h, helpEntry("s", "sign up"))
	}
	if sc.LoginVisible {
		h = append(h, helpEntry("l", "login"))
	}
	if sc.LogoutVisible {
		h = append(h, helpEntry("o", "logout"))
	}
	return append(h, helpEntry("r", "refresh"), helpEntry("w", "web"), helpEntry("q", "quit"))
}

func anyRemovable(cards []cardView) bool {
	for _, c := range cards {
		for _, p := range c.Participants {
			if p.Removable {
				return true
			}
		}
	}
	return false
}

// Chrome: header(2) + status(1) + notice(1) + help(1).
const chromeLines = 5

// render draws the screen for a width x height terminal.
func (sc screen) render(width, height, frame int) string {
	var b strings.Builder

	b.WriteString(center(renderShimmerLogo(frame), width) + "\n")
	b.WriteString(center(dimStyle.Render("extracurricular activities"), width) + "\n")
	b.WriteString(sc.statusLine() + "\n")

	bodyHeight := 0
	if height > chromeLines {
		bodyHeight = height - chromeLines
	}
	var body string
	if sc.Login != nil {
		body = truncateToHeight(sc.Login.render(width), bodyHeight)
	} else {
		body = sc.bodyView(width, bodyHeight)
	}
	b.WriteString(strings.TrimRight(body, "\n") + "\n")

	b.WriteString(sc.noticeLine() + "\n")
	b.WriteString(" " + strings.Join(sc.HelpLabel, "  "))
	return b.String()
}

func (sc screen) statusLine() string {
	var parts []string
	switch {
	case sc.Greeting != "":
		parts = append(parts, greetingStyle.Render(sc.Greeting))
	case sc.Verifying:
		parts = append(parts, dimStyle.Render("checking saved login..."))
	default:
		parts = append(parts, dimStyle.Render("viewing as guest"))
	}
	if sc.LoginVisible {
		parts = append(parts, helpEntry("l", "teacher login"))
	}
	if sc.LogoutVisible {
		parts = append(parts, helpEntry("o", "logout"))
	}
	if sc.InFlight > 0 {
		parts = append(parts, dimStyle.Render("working..."))
	}
	return " " + strings.Join(parts, metaStyle.Render("  ·  "))
}

func (sc screen) noticeLine() string {
	if sc.Notice == nil {
		return ""
	}
	if sc.Notice.Kind == session.NoticeError {
		return " " + noticeErrorStyle.Render("✗ "+sc.Notice.Text)
	}
	return " " + noticeSuccessStyle.Render("✓ "+sc.Notice.Text)
}

// bodyView draws the sign-up form pinned above the activity list. The list
// is clipped to height lines (0 means unlimited) around the selected card.
func (sc screen) bodyView(width, height int) string {
	var top []string
	top = append(top, strings.TrimRight(sc.Form.render(), "\n"))
	switch {
	case sc.LoadErr != "":
		top = append(top, " "+noticeErrorStyle.Render(sc.LoadErr))
	case sc.Loading && len(sc.Cards) == 0:
		top = append(top, " "+dimStyle.Render("loading activities..."))
	case len(sc.Cards) == 0:
		top = append(top, " "+dimStyle.Render("no activities yet"))
	}

	sepW := width - 2
	if sepW < 4 {
		sepW = 4
	}
	sep := " " + sepStyle.Render(strings.Repeat("─", sepW))

	var lines []string
	selStart, selEnd := 0, 0
	for _, c := range sc.Cards {
		if c.Selected {
			selStart = len(lines)
		}
		lines = append(lines, strings.Split(strings.TrimRight(c.render(width), "\n"), "\n")...)
		if c.Selected {
			selEnd = len(lines)
		}
		lines = append(lines, sep)
	}

	if height > 0 {
		if len(top) >= height {
			return strings.Join(top[:height], "\n") + "\n"
		}
		start, end := scrollWindow(len(lines), height-len(top), selStart, selEnd)
		lines = lines[start:end]
	}
	return strings.Join(append(top, lines...), "\n") + "\n"
}

// scrollWindow picks the [start, end) slice of total lines that fits in
// viewport lines and keeps the selected span [selStart, selEnd) on screen,
// preferring its top when it is taller than the viewport.
func scrollWindow(total, viewport, selStart, selEnd int) (int, int) {
	if viewport <= 0 || total <= viewport {
		return 0, total
	}
	start := 0
	if selEnd > viewport {
		start = selEnd - viewport
	}
	if start > selStart {
		start = selStart
	}
	end := start + viewport
	if end > total {
		end = total
		start = end - viewport
	}
	return start, end
}

func (c cardView) render(width int) string {
	var b strings.Builder
	cursor := " "
	title := cardTitleStyle.Render(c.Name)
	if c.Selected {
		cursor = accentStyle.Render("▸")
		title = accentStyle.Bold(true).Render(c.Name)
	}
	spots := spotsOpenStyle.Render(fmt.Sprintf("%d spots left", c.SpotsLeft))
	if c.SpotsLeft <= 0 {
		spots = spotsFullStyle.Render("full")
	}
	fmt.Fprintf(&b, " %s %s  %s\n", cursor, title, spots)
	fmt.Fprintf(&b, "   %s\n", normalStyle.Render(truncStr(c.Description, width-4)))
	fmt.Fprintf(&b, "   %s %s\n", metaStyle.Render("Schedule:"), dimStyle.Render(c.Schedule))

	if len(c.Participants) == 0 {
		fmt.Fprintf(&b, "   %s\n", disabledStyle.Render("No participants yet"))
		return b.String()
	}
	if !c.Selected {
		fmt.Fprintf(&b, "   %s\n", metaStyle.Render(fmt.Sprintf("Participants: %d", len(c.Participants))))
		return b.String()
	}
	fmt.Fprintf(&b, "   %s\n", metaStyle.Render("Participants:"))
	for _, p := range c.Participants {
		marker := "  "
		email := dimStyle.Render(p.Email)
		if p.Selected {
			marker = accentStyle.Render("› ")
			email = selectedStyle.Render(p.Email)
		}
		line := "     " + marker + email
		if p.Removable {
			line += " " + removeStyle.Render("✕")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (f formView) render() string {
	if !f.Enabled {
		return " " + disabledStyle.Render("Sign up a student: teacher login required") + "\n"
	}
	activity := f.Activity
	if activity == "" {
		activity = "-- select an activity --"
	}
	email := f.Email
	if email == "" && !f.Focused {
		email = inputPlaceholderStyle.Render("student@mergington.edu")
	}
	if f.Focused {
		email += accentStyle.Render("█")
	}
	return fmt.Sprintf(" %s %s  %s %s\n",
		inputPromptStyle.Render("Sign up"),
		accentStyle.Render(activity),
		metaStyle.Render("email:"),
		email)
}
