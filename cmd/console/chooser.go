package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/macro-engine/pkg/engine"
	"github.com/jwebster45206/macro-engine/pkg/macro"
)

type chooserKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Cancel key.Binding
}

var chooserKeys = chooserKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "select"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc", "ctrl+c", "q"),
		key.WithHelp("esc", "use default"),
	),
}

// choiceModel is the BubbleTea model for one show-choice prompt.
// https://github.com/charmbracelet/bubbletea
type choiceModel struct {
	question  string
	labels    []string
	cursor    int
	chosen    int
	cancelled bool
	width     int
}

func newChoiceModel(question string, options []macro.ChoiceOption) choiceModel {
	labels := make([]string, len(options))
	for i, opt := range options {
		labels[i] = opt.Label
		if labels[i] == "" {
			labels[i] = fmt.Sprintf("Option %d", i+1)
		}
	}
	return choiceModel{
		question: question,
		labels:   labels,
		chosen:   -1,
		width:    defaultWidth,
	}
}

func (m choiceModel) Init() tea.Cmd {
	return nil
}

func (m choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, chooserKeys.Cancel):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, chooserKeys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, chooserKeys.Down):
			if m.cursor < len(m.labels)-1 {
				m.cursor++
			}
		case key.Matches(msg, chooserKeys.Select):
			m.chosen = m.cursor
			return m, tea.Quit
		default:
			// 1-9 pick an option directly
			if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
				if i := int(s[0] - '1'); i < len(m.labels) {
					m.chosen = i
					m.cursor = i
					return m, tea.Quit
				}
			}
		}
	}

	return m, nil
}

func (m choiceModel) View() string {
	if m.chosen >= 0 || m.cancelled {
		return ""
	}

	var content strings.Builder
	question := m.question
	if question == "" {
		question = "Choose an option"
	}
	content.WriteString(modalTitleStyle.Render(wordwrap.String(question, max(20, m.width-8))))
	content.WriteString("\n\n")

	for i, label := range m.labels {
		line := fmt.Sprintf("%d. %s", i+1, label)
		if i == m.cursor {
			content.WriteString(modalSelectedItemStyle.Render("▶ " + line))
		} else {
			content.WriteString(modalItemStyle.Render("  " + line))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render(helpLine(chooserKeys.Up, chooserKeys.Down, chooserKeys.Select, chooserKeys.Cancel)))

	return modalStyle.Render(content.String()) + "\n"
}

func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// teaPrompter asks show-choice questions in the terminal
type teaPrompter struct {
	in  io.Reader
	out io.Writer
}

// Ensure teaPrompter implements engine.Prompter
var _ engine.Prompter = (*teaPrompter)(nil)

// PromptChoice runs an inline chooser. A cancelled prompt defers to the
// engine's default option.
func (p *teaPrompter) PromptChoice(question string, options []macro.ChoiceOption) (int, bool) {
	prog := tea.NewProgram(newChoiceModel(question, options),
		tea.WithInput(p.in),
		tea.WithOutput(p.out))

	final, err := prog.Run()
	if err != nil {
		fmt.Fprintf(p.out, "%s\n", errorStyle.Render(fmt.Sprintf("prompt failed: %v", err)))
		return 0, false
	}

	m, ok := final.(choiceModel)
	if !ok || m.cancelled || m.chosen < 0 {
		return 0, false
	}
	fmt.Fprintf(p.out, "%s %s\n", promptStyle.Render("›"), m.labels[m.chosen])
	return m.chosen, true
}
