package main

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/macro-engine/pkg/actor"
	"github.com/jwebster45206/macro-engine/pkg/engine"
)

const defaultWidth = 80

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	effectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var titleCaser = cases.Title(language.English)

// report is everything printed after a macro run
type report struct {
	Character string
	Preview   bool
	Commands  map[engine.Channel]string
	Effects   engine.CommandEffects
	Warnings  []string
	Before    map[string]float64
	After     map[string]float64
	Expired   []actor.ActiveBuff
}

// snapshotValues captures resource, hp and ability charge values keyed by label
func snapshotValues(c *actor.Character) map[string]float64 {
	values := make(map[string]float64)
	if c.Actor != nil {
		values["hp"] = float64(c.Actor.HP())
	}
	for id, r := range c.Spec.Resources {
		values[id] = r.Value
	}
	for id, ab := range c.Spec.Abilities {
		values[id+" charges"] = float64(ab.Charges)
	}
	return values
}

func formatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return fmt.Sprint(f)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func renderReport(r report, width int) string {
	if width <= 0 {
		width = defaultWidth
	}

	var b strings.Builder
	mode := "Apply"
	if r.Preview {
		mode = "Preview"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s)", r.Character, mode)))
	b.WriteString("\n\n")

	for _, ch := range engine.Channels {
		cmd := r.Commands[ch]
		if cmd == "" {
			continue
		}
		b.WriteString(labelStyle.Render(titleCaser.String(string(ch)) + ": "))
		b.WriteString(commandStyle.Render(cmd))
		b.WriteString("\n")
	}

	if len(r.Effects.EffectTexts) > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Effects"))
		b.WriteString("\n")
		for _, text := range r.Effects.EffectTexts {
			wrapped := wordwrap.String(text, width-4)
			for i, line := range strings.Split(wrapped, "\n") {
				prefix := "  "
				if i == 0 {
					prefix = "• "
				}
				b.WriteString(effectStyle.Render(prefix + line))
				b.WriteString("\n")
			}
		}
	}

	changed := changedKeys(r.Before, r.After)
	if len(changed) > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Changes"))
		b.WriteString("\n")
		for _, k := range changed {
			fmt.Fprintf(&b, "  %s: %s → %s\n", k, formatNumber(r.Before[k]), formatNumber(r.After[k]))
		}
	}

	if len(r.Expired) > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Expired buffs"))
		b.WriteString("\n")
		for _, buff := range r.Expired {
			name := buff.Name
			if name == "" {
				name = buff.BuffID
			}
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("Warnings"))
		b.WriteString("\n")
		for _, w := range r.Warnings {
			b.WriteString(warningStyle.Render(wordwrap.String("  "+w, width)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func renderFailures(failures []engine.Failure) string {
	var b strings.Builder
	b.WriteString(errorStyle.Render("Conditions not met"))
	b.WriteString("\n")
	for _, f := range failures {
		actual := "unresolved"
		if f.ActualValue != nil {
			actual = formatNumber(*f.ActualValue)
		}
		expected := f.Condition.Value.String()
		if f.ExpectedValue != nil {
			expected = formatNumber(*f.ExpectedValue)
		}
		fmt.Fprintf(&b, "  %s %s %s (actual %s)\n", f.Condition.Target.Name(), f.Operator, expected, actual)
	}
	return b.String()
}

func changedKeys(before, after map[string]float64) []string {
	var keys []string
	for k, v := range after {
		if before[k] != v {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// clipboardText joins the non-empty built commands, one per line
func clipboardText(commands map[engine.Channel]string) string {
	var lines []string
	for _, ch := range engine.Channels {
		if cmd := commands[ch]; cmd != "" {
			lines = append(lines, cmd)
		}
	}
	return strings.Join(lines, "\n")
}
