package main

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/com-runtime/com"
	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/typesystem"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	lib      *com.Library
	session  *session
	result   string
	methods  []methodInfo
	inputs   []textinput.Model
	ts       typesystem.TypeSystem
	class    string
	selected int
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateSelectMethod modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(lib *com.Library, class string, ts typesystem.TypeSystem) *interactiveModel {
	return &interactiveModel{
		lib:   lib,
		class: class,
		ts:    ts,
		state: stateSelectMethod,
	}
}

type loadedMsg struct {
	err     error
	session *session
	methods []methodInfo
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadClass
}

func (m *interactiveModel) loadClass() tea.Msg {
	c, err := resolveClass(m.lib, m.class)
	if err != nil {
		return loadedMsg{err: err}
	}
	s, err := newSession(m.lib, c.Name(), m.ts)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{session: s, methods: methods(m.lib, c)}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputArgs && msg.String() == "q" {
				break
			}
			if m.session != nil {
				m.session.Close()
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectMethod && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectMethod && m.selected < len(m.methods)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectMethod:
				if len(m.methods) == 0 {
					break
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callMethod
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callMethod

			case stateShowResult:
				m.state = stateSelectMethod
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectMethod
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectMethod
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session
		m.methods = msg.methods

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	mi := m.methods[m.selected]
	inputs := mi.method.Inputs()
	m.inputs = make([]textinput.Model, len(inputs))
	for i, p := range inputs {
		ti := textinput.New()
		ti.Placeholder = paramType(p.Type, m.ts)
		ti.Prompt = p.Name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callMethod() tea.Msg {
	if m.session == nil {
		return callResultMsg{err: fmt.Errorf("class not loaded")}
	}
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}
	result, err := m.session.call(m.methods[m.selected], args)
	return callResultMsg{result: result, err: err}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.session == nil {
		return "Loading class..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("COM Runner"))
	b.WriteString(" ")
	b.WriteString(m.lib.Name() + "." + m.session.class.Name())
	b.WriteString(typeStyle.Render(" [" + m.ts.String() + "]"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectMethod:
		b.WriteString("Select a method to call:\n\n")
		for i, mi := range m.methods {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + signature(mi, m.ts)))
			} else {
				b.WriteString("  " + m.formatMethod(mi))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		mi := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(mi.name())))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(mi.method.Inputs()[i].Type.String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		mi := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(mi.name())))
		if m.err != nil {
			b.WriteString(errorStyle.Render(describeError(m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatMethod(mi methodInfo) string {
	var params []string
	for _, p := range mi.method.Inputs() {
		params = append(params, p.Name+": "+typeStyle.Render(paramType(p.Type, m.ts)))
	}
	result := ""
	if outs := mi.method.Outputs(); len(outs) > 0 {
		result = " -> " + typeStyle.Render(paramType(outs[len(outs)-1].Type, m.ts))
	}
	return funcStyle.Render(mi.name()) + "(" + strings.Join(params, ", ") + ")" + result
}

// describeError spells out the status code and error info of a failed call.
func describeError(err error) string {
	var ce *errors.ComError
	if !stderrors.As(err, &ce) {
		return fmt.Sprintf("Error: %v", err)
	}
	s := fmt.Sprintf("Failed: %s", ce.Code)
	if ce.Info != nil {
		s += fmt.Sprintf("\n  source: %s\n  description: %s", ce.Info.Source, ce.Info.Description)
	}
	return s
}

func runInteractive(lib *com.Library, class string, ts typesystem.TypeSystem) error {
	p := tea.NewProgram(newInteractiveModel(lib, class, ts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
