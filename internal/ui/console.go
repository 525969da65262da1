package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/fenilsonani/orgest/internal/config"
	"github.com/fenilsonani/orgest/internal/stage"
	"github.com/fenilsonani/orgest/internal/ui/styles"
)

// MenuItem is one numbered entry of a menu
type MenuItem struct {
	Key   string
	Label string
	Hint  string
}

// Chooser asks the user to pick menu entries and enter paths. An empty
// result means the user went back.
type Chooser interface {
	Choose(title string, items []MenuItem) (string, error)
	AskPath(prompt string, validate func(string) (string, error)) (string, error)
}

// Console is the line-oriented terminal front end. It implements
// stage.Prompter and Chooser over any reader/writer pair.
type Console struct {
	in       *bufio.Reader
	out      io.Writer
	display  config.DisplayConfig
	tty      bool
	renderer *lipgloss.Renderer
}

var _ stage.Prompter = (*Console)(nil)
var _ Chooser = (*Console)(nil)

// NewConsole creates a console reading answers from in and writing to out
func NewConsole(in io.Reader, out io.Writer, display config.DisplayConfig) *Console {
	return &Console{
		in:       bufio.NewReader(in),
		out:      out,
		display:  display,
		tty:      IsTerminal(out),
		renderer: lipgloss.NewRenderer(out),
	}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Out returns the console's writer
func (c *Console) Out() io.Writer {
	return c.out
}

// Printf writes formatted output
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Println writes a line
func (c *Console) Println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

// Render applies style through the console's renderer, so output to a pipe
// stays free of escape codes
func (c *Console) Render(style lipgloss.Style, s string) string {
	return style.Renderer(c.renderer).Render(s)
}

// Ask prints prompt and returns the trimmed answer
func (c *Console) Ask(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question. Anything but an affirmative answer,
// including end of input, is a no.
func (c *Console) Confirm(question string) bool {
	answer, err := c.Ask(question + " (s/n): ")
	if err != nil {
		c.Println()
		return false
	}
	return stage.IsAffirmative(answer)
}

// Pause waits for Enter
func (c *Console) Pause() {
	c.Ask("\nPress Enter to continue...")
}

// Clear wipes the screen when enabled and writing to a terminal
func (c *Console) Clear() {
	if c.display.ClearConsole && c.tty {
		fmt.Fprint(c.out, "\033[H\033[2J")
	}
}

// Banner prints the program banner when banners are enabled
func (c *Console) Banner() {
	if !c.display.ShowBanners {
		return
	}
	c.Clear()
	c.Println(c.Render(styles.BannerStyle, "ORGEST - FILE ORGANIZER"))
	c.Println()
}

// Heading prints a section heading framed by rules
func (c *Console) Heading(title string) {
	c.Println()
	c.Println(styles.Rule(50))
	c.Println(c.Render(styles.StepStyle, title))
	c.Println(styles.Rule(50))
}

// Errorf prints an error line
func (c *Console) Errorf(format string, args ...any) {
	c.Println(c.Render(styles.ErrorStyle, "✗ "+fmt.Sprintf(format, args...)))
}

// Choose prints a numbered menu and reads until a listed key is entered
func (c *Console) Choose(title string, items []MenuItem) (string, error) {
	c.Println(c.Render(styles.TitleStyle, title))
	c.Println(strings.Repeat("=", 40))
	for _, item := range items {
		c.Printf("%s. %s\n", item.Key, item.Label)
		if item.Hint != "" {
			c.Printf("   (%s)\n", item.Hint)
		}
	}
	c.Println(strings.Repeat("=", 40))

	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}
	prompt := fmt.Sprintf("\nSelect an option (%s): ", strings.Join(keys, "/"))

	for {
		answer, err := c.Ask(prompt)
		if err != nil {
			return "", err
		}
		for _, item := range items {
			if answer == item.Key {
				return item.Key, nil
			}
		}
		c.Errorf("Invalid option. Please choose one of %s.", strings.Join(keys, ", "))
	}
}

// AskPath reads a folder path until validate accepts it. A missing folder
// offers to try again; declining returns an empty path.
func (c *Console) AskPath(prompt string, validate func(string) (string, error)) (string, error) {
	for {
		answer, err := c.Ask(prompt)
		if err != nil {
			return "", err
		}
		if answer == "" {
			c.Errorf("The path cannot be empty.")
			continue
		}

		path, err := validate(answer)
		if err == nil {
			return path, nil
		}

		c.Errorf("%v", err)
		if errors.Is(err, os.ErrNotExist) && !c.Confirm("Try another path?") {
			return "", nil
		}
	}
}
