package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
	"github.com/pmndrs/react-three-fiber-sub004/script"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleType    = lipgloss.NewStyle().Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleMuted   = lipgloss.NewStyle().Foreground(colorGray)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconHandler = "⚡"
)

// renderTree draws every root of s as an indented tree.
func renderTree(s *fiber.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", styleTitle.Render("tick"), styleMuted.Render(fmt.Sprint(s.Tick)))
	for _, r := range s.Roots {
		header := fmt.Sprintf("%s %s %gx%g frame %d", r.ID, r.Frameloop, r.Width, r.Height, r.Frame)
		if r.Parent != 0 {
			header += " portal of " + r.Parent.String()
		}
		b.WriteString(styleTitle.Render(header))
		b.WriteByte('\n')
		for _, n := range r.Nodes {
			b.WriteString(strings.Repeat("  ", n.Depth+1))
			b.WriteString(styleType.Render(n.Type))
			b.WriteByte(' ')
			b.WriteString(styleDim.Render(n.ID))
			if n.Attach != "generic" && n.Attach != "none" {
				b.WriteString(" " + styleMuted.Render(n.Attach))
			}
			if n.Handlers {
				b.WriteString(" " + styleWarning.Render(iconHandler))
			}
			if n.State != fiber.StateReady.String() {
				b.WriteString(" " + styleWarning.Render(n.State))
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// renderRecords lists recorded handler calls.
func renderRecords(recs []script.Record) string {
	if len(recs) == 0 {
		return styleDim.Render("no recorded events") + "\n"
	}
	var b strings.Builder
	b.WriteString(styleTitle.Render("events"))
	b.WriteByte('\n')
	for _, r := range recs {
		fmt.Fprintf(&b, "  %s %s %s\n",
			styleMuted.Render(fmt.Sprintf("frame %d", r.Frame)),
			styleType.Render(r.Key),
			r.Kind)
	}
	return b.String()
}

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleSuccess.Render(iconSuccess), fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleError.Render(iconError), fmt.Sprintf(format, args...))
}
