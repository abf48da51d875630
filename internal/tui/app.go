package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/mergington/signup/internal/browser"
	"github.com/mergington/signup/internal/session"
	"github.com/mergington/signup/pkg/domain"
)

// noticeTTL is how long a notice stays on screen.
const noticeTTL = 5 * time.Second

const msgLoadFailed = "Failed to load activities. Please try again later."

// ActivityLister fetches the public activity list.
type ActivityLister interface {
	ListActivities(ctx context.Context) (domain.ActivityList, error)
}

type activitiesLoadedMsg struct {
	list domain.ActivityList
	err  error
}

type verifyDoneMsg struct {
	token string
	resp  *domain.VerifyResponse
	err   error
}

type loginDoneMsg struct {
	resp *domain.LoginResponse
	err  error
}

type mutationDoneMsg struct {
	m    session.Mutation
	resp *domain.MessageResponse
	err  error
}

type noticeExpiredMsg struct {
	seq int
}

// App is the root Bubbletea model. All session state changes happen in
// Update; commands only perform network calls and report back.
type App struct {
	ctrl   *session.Controller
	lister ActivityLister
	log    *zap.SugaredLogger
	webURL string

	activities domain.ActivityList
	ui         uiState
	noticeSeq  int

	width  int
	height int
	frame  int // logo shimmer animation frame

	copyText func(string) error
	openURL  func(string) error
}

// NewApp creates the TUI and restores any saved teacher session.
func NewApp(ctrl *session.Controller, lister ActivityLister, log *zap.SugaredLogger, webURL string) App {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ctrl.Restore()
	return App{
		ctrl:     ctrl,
		lister:   lister,
		log:      log,
		webURL:   webURL,
		ui:       uiState{loading: true},
		copyText: clipboard.WriteAll,
		openURL:  browser.Open,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(shimmerTickCmd(), a.loadActivities(), a.verify())
}

func (a App) loadActivities() tea.Cmd {
	l := a.lister
	return func() tea.Msg {
		list, err := l.ListActivities(context.Background())
		return activitiesLoadedMsg{list: list, err: err}
	}
}

// verify starts the saved-token check when one is pending.
func (a App) verify() tea.Cmd {
	tok, ok := a.ctrl.BeginVerify()
	if !ok {
		return nil
	}
	ctrl := a.ctrl
	return func() tea.Msg {
		resp, err := ctrl.RequestVerify(context.Background(), tok)
		return verifyDoneMsg{token: tok, resp: resp, err: err}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case activitiesLoadedMsg:
		a.ui.loading = false
		if msg.err != nil {
			a.log.Errorw("activity load failed", "error", msg.err)
			a.ui.loadErr = msgLoadFailed
			return a, nil
		}
		a.ui.loadErr = ""
		a.activities = msg.list
		a.clampCursors()
		return a, nil

	case verifyDoneMsg:
		return a.apply(a.ctrl.CompleteVerify(msg.token, msg.resp, msg.err))

	case loginDoneMsg:
		a.ui.inFlight--
		out := a.ctrl.CompleteLogin(msg.resp, msg.err)
		if out.LoginError != "" {
			a.ui.login = a.ui.login.fail(out.LoginError)
		}
		return a.apply(out)

	case mutationDoneMsg:
		a.ui.inFlight--
		out := a.ctrl.CompleteMutation(msg.m, msg.resp, msg.err)
		if !out.Failed() && msg.m.Action == session.ActionSignup {
			a.ui.email = ""
			if a.ui.mode == modeSignup {
				a.ui.mode = modeBrowse
			}
		}
		return a.apply(out)

	case noticeExpiredMsg:
		if msg.seq == a.noticeSeq {
			a.ui.notice = nil
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKeys(msg)
	}
	return a, nil
}

// apply folds an operation outcome into the UI and schedules follow-ups.
func (a App) apply(out session.Outcome) (App, tea.Cmd) {
	var cmds []tea.Cmd
	if out.CloseLogin && a.ui.mode == modeLogin {
		a.ui.mode = modeBrowse
		a.ui.login = loginForm{}
	}
	if out.Notice != nil {
		cmds = append(cmds, a.setNotice(out.Notice))
	}
	if out.Refresh {
		a.ui.loading = true
		cmds = append(cmds, a.loadActivities())
	}
	a.syncMode()
	return a, tea.Batch(cmds...)
}

func (a *App) setNotice(n *session.Notice) tea.Cmd {
	a.noticeSeq++
	a.ui.notice = n
	seq := a.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

// syncMode leaves modes the current enablement no longer allows.
func (a *App) syncMode() {
	en := a.ctrl.Enablement()
	switch a.ui.mode {
	case modeSignup:
		if !en.SignupEnabled {
			a.ui.mode = modeBrowse
		}
	case modeLogin:
		if !en.LoginVisible {
			a.ui.mode = modeBrowse
			a.ui.login = loginForm{}
		}
	}
}

func (a *App) clampCursors() {
	if a.ui.cursor >= len(a.activities) {
		a.ui.cursor = len(a.activities) - 1
	}
	if a.ui.cursor < 0 {
		a.ui.cursor = 0
	}
	n := 0
	if act, ok := a.selected(); ok {
		n = len(act.Participants)
	}
	if a.ui.pcursor >= n {
		a.ui.pcursor = n - 1
	}
	if a.ui.pcursor < 0 {
		a.ui.pcursor = 0
	}
	if n == 0 && a.ui.mode == modeParticipants {
		a.ui.mode = modeBrowse
	}
}

func (a App) selected() (domain.Activity, bool) {
	if a.ui.cursor < 0 || a.ui.cursor >= len(a.activities) {
		return domain.Activity{}, false
	}
	return a.activities[a.ui.cursor], true
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	// Text modes capture every key so that letters reach the inputs.
	switch a.ui.mode {
	case modeLogin:
		return a.updateLogin(msg)
	case modeSignup:
		return a.updateSignup(msg)
	case modeParticipants:
		return a.updateParticipants(msg)
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.ui.cursor < len(a.activities)-1 {
			a.ui.cursor++
			a.ui.pcursor = 0
		}
	case "k", "up":
		if a.ui.cursor > 0 {
			a.ui.cursor--
			a.ui.pcursor = 0
		}
	case "enter":
		if act, ok := a.selected(); ok && len(act.Participants) > 0 {
			a.ui.mode = modeParticipants
			a.ui.pcursor = 0
		}
	case "s":
		if !a.ctrl.IsAuthorized() {
			_, rejected, _ := a.ctrl.BeginMutation(session.ActionSignup, "", "")
			return a.apply(rejected)
		}
		a.ui.mode = modeSignup
	case "l":
		if a.ctrl.Enablement().LoginVisible {
			a.ui.mode = modeLogin
			a.ui.login = loginForm{}
		}
	case "o":
		if a.ctrl.Enablement().LogoutVisible {
			return a.apply(a.ctrl.Logout())
		}
	case "r":
		a.ui.loading = true
		return a, a.loadActivities()
	case "w":
		if a.webURL != "" {
			if err := a.openURL(a.webURL); err != nil {
				a.log.Warnw("browser open failed", "url", a.webURL, "error", err)
				cmd := a.setNotice(&session.Notice{Text: "Could not open a browser", Kind: session.NoticeError})
				return a, cmd
			}
		}
	}
	return a, nil
}

func (a App) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		if !a.ui.login.pending {
			a.ui.mode = modeBrowse
			a.ui.login = loginForm{}
		}
		return a, nil
	}
	var submit bool
	a.ui.login, submit = a.ui.login.update(msg)
	if !submit {
		return a, nil
	}
	a.ui.inFlight++
	ctrl := a.ctrl
	user, pass := a.ui.login.username, a.ui.login.password
	return a, func() tea.Msg {
		resp, err := ctrl.RequestLogin(context.Background(), user, pass)
		return loginDoneMsg{resp: resp, err: err}
	}
}

func (a App) updateSignup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.ui.mode = modeBrowse
	case "tab", "down":
		if len(a.activities) > 0 {
			a.ui.cursor = (a.ui.cursor + 1) % len(a.activities)
			a.ui.pcursor = 0
		}
	case "shift+tab", "up":
		if len(a.activities) > 0 {
			a.ui.cursor = (a.ui.cursor - 1 + len(a.activities)) % len(a.activities)
			a.ui.pcursor = 0
		}
	case "enter":
		act, _ := a.selected()
		return a.mutate(session.ActionSignup, act.Name, a.ui.email)
	default:
		key := msg.String()
		if msg.Type == tea.KeySpace {
			key = " "
		}
		a.ui.email = editRune(a.ui.email, key)
	}
	return a, nil
}

func (a App) updateParticipants(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	act, ok := a.selected()
	if !ok || len(act.Participants) == 0 {
		a.ui.mode = modeBrowse
		return a, nil
	}
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "esc", "enter":
		a.ui.mode = modeBrowse
	case "j", "down":
		if a.ui.pcursor < len(act.Participants)-1 {
			a.ui.pcursor++
		}
	case "k", "up":
		if a.ui.pcursor > 0 {
			a.ui.pcursor--
		}
	case "x", "delete":
		return a.mutate(session.ActionUnregister, act.Name, act.Participants[a.ui.pcursor])
	case "c":
		email := act.Participants[a.ui.pcursor]
		if err := a.copyText(email); err != nil {
			a.log.Warnw("clipboard write failed", "error", err)
			cmd := a.setNotice(&session.Notice{Text: "Could not copy to clipboard", Kind: session.NoticeError})
			return a, cmd
		}
		cmd := a.setNotice(&session.Notice{Text: "Copied " + email, Kind: session.NoticeSuccess})
		return a, cmd
	}
	return a, nil
}

// mutate runs the authorization guard on the loop and sends the request
// only when it passes.
func (a App) mutate(action session.Action, activity, email string) (tea.Model, tea.Cmd) {
	m, rejected, ok := a.ctrl.BeginMutation(action, activity, email)
	if !ok {
		return a.apply(rejected)
	}
	a.ui.inFlight++
	ctrl := a.ctrl
	return a, func() tea.Msg {
		resp, err := ctrl.RequestMutation(context.Background(), m)
		return mutationDoneMsg{m: m, resp: resp, err: err}
	}
}

func (a App) View() string {
	sc := describe(a.ctrl.Enablement(), a.ctrl.State(), a.activities, a.ui)
	return sc.render(a.width, a.height, a.frame)
}
