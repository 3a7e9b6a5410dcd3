package control

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jinjor/dub-siren/src/audio"
	"github.com/jinjor/dub-siren/src/output"
)

type reading struct {
	hasMeter bool
	peak     float64
	dominant float64
	hasStats bool
	stats    output.Stats
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	playingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func renderStatus(st audio.Status, bank Bank, banks [2][NumEncoders]*encoder, r reading) string {
	var lines []string

	state := idleStyle.Render("idle")
	if st.Playing {
		state = playingStyle.Render("PLAYING")
	}
	lines = append(lines, fmt.Sprintf("%s  %s  %s %s", titleStyle.Render("DUB SIREN"), state,
		labelStyle.Render("envelope"), st.Envelope))
	lines = append(lines, fmt.Sprintf("%s %.3f  %s %.1f Hz  %s %s  %s %s",
		labelStyle.Render("volume"), st.Volume,
		labelStyle.Render("frequency"), st.Frequency,
		labelStyle.Render("wave"), st.Waveform,
		labelStyle.Render("pitch"), st.PitchEnvelope,
	))

	for b := range banks {
		style := idleStyle
		if Bank(b) == bank {
			style = activeStyle
		}
		items := make([]string, 0, NumEncoders)
		for i, p := range banks[b] {
			items = append(items, fmt.Sprintf("%d:%s=%s", i+1, p.name, p.format()))
		}
		lines = append(lines, style.Render(fmt.Sprintf("[Bank %s] %s", Bank(b), strings.Join(items, " "))))
	}

	if r.hasMeter {
		lines = append(lines, fmt.Sprintf("%s %s  %s %.1f Hz",
			labelStyle.Render("level"), levelBar(r.peak, 20),
			labelStyle.Render("dominant"), r.dominant,
		))
	}
	if r.hasStats {
		underruns := fmt.Sprintf("%d", r.stats.Underruns)
		if r.stats.Underruns > 0 {
			underruns = warnStyle.Render(underruns)
		}
		lines = append(lines, fmt.Sprintf("%s %d  %s %s  %s %.0f%%",
			labelStyle.Render("buffers"), r.stats.Buffers,
			labelStyle.Render("underruns"), underruns,
			labelStyle.Render("load"), r.stats.Load*100,
		))
	}
	if st.DroppedGates > 0 {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("dropped gate events: %d", st.DroppedGates)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// levelBar draws a peak value in [0, 1] as a bar of the given width.
func levelBar(peak float64, width int) string {
	n := int(peak*float64(width) + 0.5)
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	return "[" + strings.Repeat("#", n) + strings.Repeat(".", width-n) + "]"
}

func renderHelp(banks [2][NumEncoders]*encoder) string {
	var b strings.Builder
	b.WriteString("keys:\n")
	b.WriteString("  t / space   trigger on/off\n")
	b.WriteString("  p           cycle pitch envelope\n")
	b.WriteString("  b           switch bank (shift)\n")
	b.WriteString("  1-5         turn encoder up\n")
	b.WriteString("  ! @ # $ %   turn encoder down\n")
	b.WriteString("  r           reset voice and effects\n")
	b.WriteString("  s           status\n")
	b.WriteString("  h / ?       help\n")
	b.WriteString("  q           quit\n")
	for i := range banks {
		names := make([]string, 0, NumEncoders)
		for _, p := range banks[i] {
			names = append(names, p.name)
		}
		fmt.Fprintf(&b, "bank %s: %s\n", Bank(i), strings.Join(names, ", "))
	}
	return titleStyle.Render("DUB SIREN") + "\n" + strings.TrimRight(b.String(), "\n")
}
