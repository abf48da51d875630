package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Shimmer animation for the header wordmark.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

const wordmark = "MERGINGTON HIGH"

// renderShimmerLogo renders the wordmark as a slow wave of school-blue light.
// Deep navy (#1e3a6e) -> bright sky (#7cb8ff).
func renderShimmerLogo(frame int) string {
	n := len(wordmark)
	t := float64(frame)

	var out strings.Builder
	for i := 0; i < n; i++ {
		ch := wordmark[i]
		if ch == ' ' {
			out.WriteString("   ")
			continue
		}
		x := float64(i) / float64(n-1)
		phase := t*0.08 - x*3.0
		b := math.Sin(phase)*0.5 + 0.5
		b = b*0.8 + 0.2

		r := clampByte(30 + b*(124-30))
		g := clampByte(58 + b*(184-58))
		bl := clampByte(110 + b*(255-110))
		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)

		out.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(string(ch)))
		if i < n-1 && wordmark[i+1] != ' ' {
			out.WriteString(" ")
		}
	}
	return out.String()
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7cb8ff"))

	greetingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4a844")).
			Bold(true)

	cardTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	spotsOpenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34d474"))

	spotsFullStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#b45555"))

	removeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e06060")).
			Bold(true)

	noticeSuccessStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#34d474")).
				Bold(true)

	noticeErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#e06060")).
				Bold(true)

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#7cb8ff")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	disabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#404858")).
			Italic(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7cb8ff")).
			Padding(1, 3)

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1e1e2a"))
)

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// center left-pads s so it sits in the middle of width columns.
func center(s string, width int) string {
	pad := (width - lipgloss.Width(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}
