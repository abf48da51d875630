package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type loginField int

const (
	fieldUsername loginField = iota
	fieldPassword
	numLoginFields
)

// loginForm is the teacher login prompt. It only collects input; the App
// sends the request and reports the result back through fail or reset.
type loginForm struct {
	username string
	password string
	focus    loginField
	err      string
	pending  bool
}

// update applies a key to the form. submit is true when the user asked to
// send the credentials and both fields are filled in.
func (f loginForm) update(msg tea.KeyMsg) (loginForm, bool) {
	if f.pending {
		return f, false
	}
	switch msg.String() {
	case "tab", "down", "shift+tab", "up":
		f.focus = (f.focus + 1) % numLoginFields
	case "enter":
		if f.focus == fieldUsername {
			f.focus = fieldPassword
			return f, false
		}
		if strings.TrimSpace(f.username) == "" || f.password == "" {
			f.err = "Username and password are required"
			return f, false
		}
		f.err = ""
		f.pending = true
		return f, true
	default:
		key := msg.String()
		if msg.Type == tea.KeySpace {
			key = " "
		}
		if f.focus == fieldUsername {
			f.username = editRune(f.username, key)
		} else {
			f.password = editRune(f.password, key)
		}
	}
	return f, false
}

// fail shows err inside the prompt and keeps the username for a retry.
func (f loginForm) fail(err string) loginForm {
	f.pending = false
	f.password = ""
	f.focus = fieldPassword
	f.err = err
	return f
}

func (v loginView) render(width int) string {
	var b strings.Builder
	b.WriteString(cardTitleStyle.Render("Teacher Login") + "\n\n")

	labels := [numLoginFields]string{"username", "password"}
	values := [numLoginFields]string{v.Username, v.Password}
	for i := loginField(0); i < numLoginFields; i++ {
		cursor := " "
		style := metaStyle
		value := values[i]
		if i == v.Focus {
			cursor = accentStyle.Render(">")
			style = selectedStyle
			value += accentStyle.Render("█")
		}
		fmt.Fprintf(&b, "%s %s: %s\n", cursor, style.Render(fmt.Sprintf("%-8s", labels[i])), value)
	}

	b.WriteString("\n")
	switch {
	case v.Pending:
		b.WriteString(dimStyle.Render("logging in..."))
	case v.Error != "":
		b.WriteString(noticeErrorStyle.Render(v.Error))
	default:
		b.WriteString(dimStyle.Render("enter to submit, esc to cancel"))
	}

	box := modalStyle.Render(b.String())
	var out strings.Builder
	for _, line := range strings.Split(box, "\n") {
		out.WriteString(center(line, width) + "\n")
	}
	return out.String()
}
