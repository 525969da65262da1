package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/orgest/internal/ui/styles"
)

// MenuModel is a bubbletea list menu. Arrow keys move, enter selects, a
// digit selects its entry directly, esc or q goes back.
type MenuModel struct {
	title  string
	items  []MenuItem
	cursor int
	choice string
	done   bool
}

// NewMenuModel creates a menu model
func NewMenuModel(title string, items []MenuItem) MenuModel {
	return MenuModel{title: title, items: items}
}

// Choice returns the selected key, empty when the user backed out
func (m MenuModel) Choice() string {
	return m.choice
}

// Init implements tea.Model
func (m MenuModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.done = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.items) > 0 {
			m.choice = m.items[m.cursor].Key
		}
		m.done = true
		return m, tea.Quit
	default:
		for i, item := range m.items {
			if key.String() == item.Key {
				m.cursor = i
				m.choice = item.Key
				m.done = true
				return m, tea.Quit
			}
		}
	}

	return m, nil
}

// View implements tea.Model
func (m MenuModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(m.title))
	b.WriteString("\n\n")

	for i, item := range m.items {
		line := fmt.Sprintf("%s. %s", item.Key, item.Label)
		if i == m.cursor {
			b.WriteString(styles.SelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
		if item.Hint != "" {
			b.WriteString(styles.HintStyle.Render(item.Hint))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("↑/↓ move • enter select • esc back"))
	b.WriteString("\n")
	return b.String()
}

// PathModel is a bubbletea text field for a folder path with inline
// validation errors
type PathModel struct {
	prompt   string
	input    textinput.Model
	validate func(string) (string, error)
	path     string
	err      error
	done     bool
}

// NewPathModel creates a path prompt
func NewPathModel(prompt string, validate func(string) (string, error)) PathModel {
	ti := textinput.New()
	ti.Placeholder = "~/Pictures/unsorted"
	ti.CharLimit = 4096
	ti.Width = 60
	ti.Focus()

	return PathModel{prompt: prompt, input: ti, validate: validate}
}

// Path returns the accepted path, empty when the user backed out
func (m PathModel) Path() string {
	return m.path
}

// Init implements tea.Model
func (m PathModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m PathModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.done = true
			return m, tea.Quit
		case tea.KeyEnter:
			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				m.err = fmt.Errorf("the path cannot be empty")
				return m, nil
			}
			path, err := m.validate(value)
			if err != nil {
				m.err = err
				return m, nil
			}
			m.path = path
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m PathModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(m.prompt))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render("✗ " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("enter confirm • esc back"))
	b.WriteString("\n")
	return b.String()
}

// TeaChooser runs menus and path prompts as bubbletea programs
type TeaChooser struct {
	in  io.Reader
	out io.Writer
}

var _ Chooser = (*TeaChooser)(nil)

// NewTeaChooser creates a chooser bound to a terminal
func NewTeaChooser(in io.Reader, out io.Writer) *TeaChooser {
	return &TeaChooser{in: in, out: out}
}

// Choose implements Chooser
func (t *TeaChooser) Choose(title string, items []MenuItem) (string, error) {
	final, err := t.run(NewMenuModel(title, items))
	if err != nil {
		return "", err
	}
	return final.(MenuModel).Choice(), nil
}

// AskPath implements Chooser
func (t *TeaChooser) AskPath(prompt string, validate func(string) (string, error)) (string, error) {
	final, err := t.run(NewPathModel(prompt, validate))
	if err != nil {
		return "", err
	}
	return final.(PathModel).Path(), nil
}

func (t *TeaChooser) run(model tea.Model) (tea.Model, error) {
	p := tea.NewProgram(model, tea.WithInput(t.in), tea.WithOutput(t.out))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("error running menu: %w", err)
	}
	return final, nil
}
