package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

func printHelp(w io.Writer) {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7cb8ff")).
		Bold(true).
		Render("M E R G I N G T O N   H I G H")

	tagline := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render("Extracurricular activities, from the terminal.")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	commands := []struct{ cmd, desc string }{
		{"signup", "Browse activities (interactive TUI)"},
		{"signup login [user]", "Log in as a teacher"},
		{"signup logout", "Clear the saved teacher session"},
		{"signup status", "Show who is logged in"},
		{"signup list", "Print all activities"},
		{"signup add <act> <email>", "Register a student"},
		{"signup remove <act> <email>", "Unregister a student"},
		{"signup open", "Open the web page in a browser"},
		{"signup --version", "Show version"},
		{"signup help", "You are here"},
	}

	fmt.Fprintf(w, "\n  %s\n\n  %s\n\n  Commands:\n", title, tagline)
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-28s", c.cmd)), descStyle.Render(c.desc))
	}

	env := []struct{ name, desc string }{
		{"SIGNUP_API_URL", "backend base URL (default http://localhost:8000)"},
		{"SIGNUP_WEB_URL", "web page opened by 'signup open'"},
		{"SIGNUP_TOKEN", "teacher token, overrides the saved one"},
		{"SIGNUP_TOKEN_FILE", "where the token is saved"},
		{"SIGNUP_LOG_FILE", "log file, or \"off\""},
		{"SIGNUP_HTTP_TIMEOUT", "request timeout, e.g. 10s"},
	}
	fmt.Fprintf(w, "\n  Environment (also read from ./.env):\n")
	for _, e := range env {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-28s", e.name)), descStyle.Render(e.desc))
	}
	fmt.Fprintln(w)
}
