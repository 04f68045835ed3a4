package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// question is a single interactive prompt. An empty answer takes the
// placeholder. validate, when set, must accept the answer before the prompt
// moves on.
type question struct {
	key         string
	prompt      string
	placeholder string
	validate    func(string) error
}

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	hintStyle   = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// promptModel walks through questions with one text input, recording each
// answer once it is accepted.
type promptModel struct {
	questions []question
	input     textinput.Model
	values    map[string]string
	err       error
	done      bool
}

func newPromptModel(questions []question) promptModel {
	m := promptModel{
		questions: questions,
		input:     textinput.New(),
		values:    make(map[string]string, len(questions)),
	}
	m.input.CharLimit = 512
	m.ask()
	return m
}

// ask resets the input for the next unanswered question.
func (m *promptModel) ask() {
	if len(m.values) >= len(m.questions) {
		return
	}
	m.input.Reset()
	m.input.Placeholder = m.questions[len(m.values)].placeholder
	m.input.Focus()
}

func (m promptModel) current() question {
	return m.questions[len(m.values)]
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.done || len(m.values) >= len(m.questions) {
		return m, tea.Quit
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := m.current()
			answer := strings.TrimSpace(m.input.Value())
			if answer == "" {
				answer = q.placeholder
			}
			if q.validate != nil {
				if m.err = q.validate(answer); m.err != nil {
					return m, nil
				}
			}
			m.values[q.key] = answer
			if len(m.values) == len(m.questions) {
				m.done = true
				m.input.Blur()
				return m, tea.Quit
			}
			m.ask()
			return m, textinput.Blink
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || len(m.values) >= len(m.questions) {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", promptStyle.Render(m.current().prompt), m.input.View())
	if m.err != nil {
		b.WriteString(errStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString(hintStyle.Render("enter to accept, esc to cancel") + "\n")
	return b.String()
}

// answers returns the accepted values keyed by question.
func (m promptModel) answers() map[string]string {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// promptQuestions runs the TUI and returns answers keyed by question.key.
func promptQuestions(questions []question) (map[string]string, error) {
	if len(questions) == 0 {
		return map[string]string{}, nil
	}
	result, err := tea.NewProgram(newPromptModel(questions)).Run()
	if err != nil {
		return nil, err
	}
	final, ok := result.(promptModel)
	if !ok || !final.done {
		return nil, errors.New("prompt cancelled")
	}
	return final.answers(), nil
}

// splitFiles splits a comma separated answer, dropping blanks.
func splitFiles(answer string) []string {
	var files []string
	for _, f := range strings.Split(answer, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	return files
}

func validateFiles(answer string) error {
	if len(splitFiles(answer)) == 0 {
		return errors.New("name at least one file")
	}
	return nil
}

func validateHelpURL(answer string) error {
	u, err := url.Parse(answer)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an http(s) URL", answer)
	}
	return nil
}
