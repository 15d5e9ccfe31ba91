// Package repl implements the Read-Eval-Print Loop for the Lox
// programming language.
//
// The REPL provides an interactive interface for entering Lox code,
// compiling it to bytecode, running it in the VM, and seeing its
// printed output immediately. It uses the Charm libraries (Bubbletea,
// Bubbles, and Lipgloss) for a modern terminal interface with syntax
// highlighting and command history.
//
// Key features:
//   - Interactive command input and execution
//   - Command history tracking
//   - Styled output with different colors for results and errors
//   - One VM for the whole session, whose globals table keeps its values
//     across commands. Each command is compiled on its own, though, so a
//     command that names a global declared only by an earlier command is
//     rejected with an "undefined variable" compile error.
//
// The main entry point is [Start].
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dr8co/lox/compiler"
	"github.com/dr8co/lox/lexer"
	"github.com/dr8co/lox/token"
	"github.com/dr8co/lox/vm"
)

const (
	// Prompt is the default prompt for the REPL, per the minimal
	// accumulate-until-blank-line contract.
	Prompt = ">>> "

	// ContPrompt is the continuation prompt used while a statement's
	// brackets are still unbalanced.
	ContPrompt = "... "
)

// Options contains configuration options for the REPL.
type Options struct {
	NoColor bool // Disable syntax highlighting and colored output
	Debug   bool // Enable debug mode: show each command's run time and log its script chunk's disassembly
}

// Start initializes and runs the Bubbletea TUI over in/out. Only when the
// TUI returns an error does it fall back to a plain line-oriented loop;
// it does not itself check whether in/out are a terminal. Both run an
// entry as soon as its parentheses and braces balance; a blank line only
// ends an entry whose brackets are still open.
func Start(in io.Reader, out io.Writer, opts ...Options) {
	var options Options
	if len(opts) > 0 {
		options = opts[0]
	}

	p := tea.NewProgram(initialModel(options), tea.WithInput(in), tea.WithOutput(out))
	if _, err := p.Run(); err != nil {
		startPlain(in, out, options)
	}
}

// startPlain is the non-interactive fallback: read lines until the
// accumulated entry's brackets balance (or a blank line ends an
// unbalanced one), compile and run it against one persistent VM, repeat
// until EOF.
func startPlain(in io.Reader, out io.Writer, options Options) {
	scanner := bufio.NewScanner(in)
	machine := vm.New(options.Debug)

	for {
		fmt.Fprint(out, Prompt)
		var buf strings.Builder
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" && buf.Len() > 0 {
				break
			}
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(line)
			if isBalanced(buf.String()) && line != "" {
				break
			}
			fmt.Fprint(out, ContPrompt)
		}
		source := buf.String()
		if source == "" {
			if scanner.Err() != nil || !scanner.Scan() {
				return
			}
			continue
		}

		fn, err := compiler.Compile(source)
		if err != nil {
			fmt.Fprintln(out, formatParseErrors(err))
			continue
		}
		machine.Stdout = out
		if _, err := machine.Run(fn); err != nil {
			fmt.Fprintln(out, formatRuntimeError(err.Error()))
		}
	}
}

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	// Error styles
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	parseErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	runtimeErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF8700")).
				Bold(true)

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	// Syntax highlighting styles
	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	identifierStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F8F8F2"))

	literalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	operatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	delimiterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))
)

// ErrorType represents the type of error that occurred.
type ErrorType int

const (
	// NoError indicates that no error occurred.
	NoError ErrorType = iota
	// ParseErr signals a compile-time error surfaced by [compiler.Compile].
	ParseErr
	// RuntimeErr signals a failure raised by the VM while running a chunk.
	RuntimeErr
)

// evalResultMsg carries a completed evaluation back into the Bubbletea loop.
type evalResultMsg struct {
	output    string
	isError   bool
	errorType ErrorType
	elapsed   time.Duration
}

// model is the Bubbletea application state.
type model struct {
	textInput       textinput.Model
	history         []historyEntry
	machine         *vm.VM
	evaluating      bool
	currentInput    string
	multilineBuffer string
	isMultiline     bool
	spinner         spinner.Model
	options         Options
}

// applyStyle applies a lipgloss style to a string, respecting NoColor.
func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

type historyEntry struct {
	input          string
	output         string
	isError        bool
	errorType      ErrorType
	evaluationTime time.Duration
}

func initialModel(options Options) model {
	ti := textinput.New()
	ti.Placeholder = "Enter Lox code"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		textInput: ti,
		machine:   vm.New(options.Debug),
		spinner:   s,
		options:   options,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced checks if braces and parentheses are balanced.
func isBalanced(input string) bool {
	var stack []rune
	for _, char := range input {
		switch char {
		case '(', '{':
			stack = append(stack, char)
		case ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return false
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// evalCmd compiles and runs input against machine asynchronously, with
// its printed output captured for rendering in the history view.
func evalCmd(input string, machine *vm.VM, debug bool) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()

		fn, err := compiler.Compile(input)
		if err != nil {
			return evalResultMsg{
				output:    formatParseErrors(err),
				isError:   true,
				errorType: ParseErr,
				elapsed:   time.Since(start),
			}
		}

		var out strings.Builder
		machine.Stdout = &out
		_, runErr := machine.Run(fn)
		elapsed := time.Since(start)

		if runErr != nil {
			return evalResultMsg{
				output:    formatRuntimeError(runErr.Error()),
				isError:   true,
				errorType: RuntimeErr,
				elapsed:   elapsed,
			}
		}

		output := strings.TrimRight(out.String(), "\n")
		if output == "" {
			output = "nil"
		}
		if debug {
			output = fmt.Sprintf("DEBUG: executed in %v\n%s", elapsed, output)
		}
		return evalResultMsg{output: output, elapsed: elapsed}
	}
}

// formatError writes entry's whole output, tips included, rendered in
// errorStyle unless colors are disabled.
func (m model) formatError(errorStyle *lipgloss.Style, entry *historyEntry, s *strings.Builder) {
	if m.options.NoColor {
		s.WriteString(entry.output)
	} else {
		s.WriteString(errorStyle.Render(entry.output))
	}
}

// Update handles all the updates to our model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false
		m.history = append(m.history, historyEntry{
			input:          m.currentInput,
			output:         msg.output,
			isError:        msg.isError,
			errorType:      msg.errorType,
			evaluationTime: msg.elapsed,
		})
		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.isMultiline {
					if m.multilineBuffer == "" {
						m.isMultiline = false
						return m, nil
					}
					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.textInput.SetValue("")
					m.isMultiline = false

					buffer := m.multilineBuffer
					m.multilineBuffer = ""
					return m, evalCmd(buffer, m.machine, m.options.Debug)
				}
				return m, nil
			}

			if m.isMultiline {
				m.multilineBuffer += "\n" + input
				m.textInput.SetValue("")

				if isBalanced(m.multilineBuffer) {
					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.isMultiline = false

					buffer := m.multilineBuffer
					m.multilineBuffer = ""
					return m, evalCmd(buffer, m.machine, m.options.Debug)
				}
				return m, nil
			}

			if !isBalanced(input) {
				m.isMultiline = true
				m.multilineBuffer = input
				m.textInput.SetValue("")
				return m, nil
			}

			m.evaluating = true
			m.currentInput = input
			m.textInput.SetValue("")
			return m, evalCmd(input, m.machine, m.options.Debug)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	if m.evaluating {
		return m, m.spinner.Tick
	}
	return m, cmd
}

// View renders the current UI.
func (m model) View() string {
	var s strings.Builder

	s.WriteString(m.applyStyle(titleStyle, " Lox REPL "))
	s.WriteString("\n\n")

	for _, entry := range m.history {
		lines := strings.Split(entry.input, "\n")
		for i, line := range lines {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightCode(line))
			s.WriteString("\n")
		}

		if entry.isError {
			switch entry.errorType {
			case ParseErr:
				m.formatError(&parseErrorStyle, &entry, &s)
			case RuntimeErr:
				m.formatError(&runtimeErrorStyle, &entry, &s)
			default:
				s.WriteString(m.applyStyle(errorStyle, entry.output))
			}
		} else {
			s.WriteString(m.applyStyle(resultStyle, entry.output))
		}

		if entry.evaluationTime > 10*time.Millisecond {
			timeStr := fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())
			s.WriteString(m.applyStyle(historyStyle, timeStr))
		}

		s.WriteString("\n\n")
	}

	if m.evaluating {
		s.WriteString(m.applyStyle(promptStyle, Prompt))
		s.WriteString(m.highlightCode(m.currentInput))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" Evaluating...")
		s.WriteString("\n\n")
	}

	if m.isMultiline && !m.evaluating {
		s.WriteString(m.applyStyle(historyStyle, "Current multiline input:\n"))
		s.WriteString(m.highlightCode(m.multilineBuffer))
		s.WriteString("\n")
	}

	if !m.evaluating {
		if m.isMultiline {
			m.textInput.Prompt = m.applyStyle(promptStyle, ContPrompt)
		} else {
			m.textInput.Prompt = m.applyStyle(promptStyle, Prompt)
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	helpText := "\nPress Esc or Ctrl+C/D to exit"
	if m.isMultiline {
		helpText += " | Multiline mode: Enter empty line to evaluate or continue typing"
	} else {
		helpText += " | Multiline input supported for unbalanced brackets"
	}
	s.WriteString(m.applyStyle(historyStyle, helpText))

	return s.String()
}

// formatParseErrors renders a compile error with a short set of recovery
// tips, matching the donor's two-part error/tips rendering.
func formatParseErrors(err error) string {
	var s strings.Builder
	s.WriteString("Compile error:\n  ")
	s.WriteString(err.Error())
	s.WriteString("\n\nTips:\n")
	s.WriteString("  - Check for missing parentheses, braces, or semicolons\n")
	s.WriteString("  - Verify that every statement ends with ';'\n")
	return s.String()
}

// formatRuntimeError renders a VM error with tips tailored to what it mentions.
func formatRuntimeError(errorMsg string) string {
	var s strings.Builder
	s.WriteString("Runtime error:\n  ")
	s.WriteString(errorMsg)
	s.WriteString("\n\nTips:\n")

	switch {
	case strings.Contains(errorMsg, "undefined variable"):
		s.WriteString("  - Check if the variable is declared before use\n")
		s.WriteString("  - Verify the spelling and that it's in scope\n")
	case strings.Contains(errorMsg, "expected") && strings.Contains(errorMsg, "arguments"):
		s.WriteString("  - Check the call has the right number of arguments\n")
	case strings.Contains(errorMsg, "operand") || strings.Contains(errorMsg, "operands"):
		s.WriteString("  - Check operand types match what the operator expects\n")
	case strings.Contains(errorMsg, "property"):
		s.WriteString("  - Check the field or method name and that the class defines it\n")
	default:
		s.WriteString("  - Review the program's logic around the reported line\n")
	}
	return s.String()
}

// highlightCode applies syntax highlighting to a line of Lox source,
// tokenizing it with the same lexer the compiler uses and rendering each
// token through the style matching its category. On a lexer error (e.g.
// an unterminated string while the user is still typing) the whole line
// is returned unstyled.
func (m model) highlightCode(code string) string {
	l := lexer.New(code)
	var s strings.Builder

	for {
		tok, err := l.NextToken()
		if err != nil {
			// Mid-typing input (e.g. an unterminated string) can't be
			// fully tokenized yet; show it unstyled rather than give up.
			return code
		}
		if tok.Type == token.EOF {
			break
		}

		switch tok.Type {
		case token.VAR, token.CONST, token.FUN, token.CLASS, token.IF, token.ELSE,
			token.WHILE, token.FOR, token.RETURN, token.PRINT, token.AND, token.OR,
			token.TRUE, token.FALSE, token.NIL, token.SUPER, token.THIS:
			s.WriteString(m.applyStyle(keywordStyle, tok.Lexeme))
		case token.IDENT:
			s.WriteString(m.applyStyle(identifierStyle, tok.Lexeme))
		case token.NUMBER:
			s.WriteString(m.applyStyle(literalStyle, tok.Lexeme))
		case token.STRING:
			s.WriteString(m.applyStyle(stringStyle, "\""+tok.Lexeme+"\""))
		case token.ASSIGN, token.PLUS, token.MINUS, token.STAR, token.SLASH, token.BANG,
			token.BANG_EQUAL, token.EQUAL_EQUAL, token.LESS, token.LESS_EQUAL,
			token.GREATER, token.GREATER_EQUAL:
			s.WriteString(m.applyStyle(operatorStyle, tok.Lexeme))
		case token.COMMA, token.DOT, token.SEMICOLON, token.LPAREN, token.RPAREN,
			token.LBRACE, token.RBRACE:
			s.WriteString(m.applyStyle(delimiterStyle, tok.Lexeme))
		default:
			s.WriteString(tok.Lexeme)
		}
		s.WriteString(" ")
	}

	return strings.TrimRight(s.String(), " ")
}
