// ABOUTME: Interactive TUI wizard that signs chirp in, locally or against an API server.
// ABOUTME: Picks a storage mode, collects the handle, then previews the timeline before saving.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/chirp/internal/models"
)

// DefaultAPIURL is where `chirp serve` listens by default.
const DefaultAPIURL = "http://127.0.0.1:8787"

// previewSize is how many tweets the wizard shows after signing in.
const previewSize = 3

// Mode is where chirp keeps its tweets.
type Mode int

const (
	ModeLocal Mode = iota
	ModeRemote
)

func (m Mode) String() string {
	if m == ModeRemote {
		return "remote server"
	}
	return "this machine"
}

// Step represents the current wizard step.
type Step int

const (
	StepMode Step = iota
	StepAPIURL
	StepAPIKey
	StepHandle
	StepChecking
	StepPreview
	StepFailed
	StepDone
)

// Connection is what the wizard collects. APIURL and APIKey are empty in local mode.
type Connection struct {
	Mode     Mode
	APIURL   string
	APIKey   string
	UserName string
}

// CheckFn signs in with conn and returns the newest tweets visible to it.
type CheckFn func(ctx context.Context, conn Connection) ([]models.Tweet, error)

type checkResultMsg struct {
	tweets []models.Tweet
	err    error
}

// cancelHolder shares a cancel function across bubbletea model copies.
type cancelHolder struct {
	cancel context.CancelFunc
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step     Step
	mode     Mode
	url      textinput.Model
	key      textinput.Model
	handle   textinput.Model
	spinner  spinner.Model
	check    CheckFn
	cancel   *cancelHolder
	inputErr error
	checkErr error
	preview  []models.Tweet
	quitting bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewSetupModel creates the wizard, pre-filled from current. A current
// connection with an API URL starts in remote mode.
func NewSetupModel(current Connection, check CheckFn) SetupModel {
	url := textinput.New()
	url.Placeholder = DefaultAPIURL
	url.Width = 50
	url.SetValue(current.APIURL)

	key := textinput.New()
	key.Placeholder = "api key (optional)"
	key.EchoMode = textinput.EchoPassword
	key.Width = 50
	key.SetValue(current.APIKey)

	handle := textinput.New()
	handle.Placeholder = "your_handle"
	handle.CharLimit = models.MaxUserNameLength
	handle.Width = 40
	handle.SetValue(current.UserName)

	s := spinner.New()
	s.Spinner = spinner.Dot

	mode := current.Mode
	if current.APIURL != "" {
		mode = ModeRemote
	}

	return SetupModel{
		step:    StepMode,
		mode:    mode,
		url:     url,
		key:     key,
		handle:  handle,
		spinner: s,
		check:   check,
		cancel:  &cancelHolder{},
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEscape {
			return m.quit()
		}
		switch m.step {
		case StepMode:
			return m.updateMode(msg)
		case StepAPIURL, StepAPIKey, StepHandle:
			return m.updateInput(msg)
		case StepPreview:
			return m.updatePreview(msg)
		case StepFailed:
			return m.updateFailed(msg)
		}

	case checkResultMsg:
		m.cancel.cancel = nil
		if msg.err != nil {
			m.checkErr = msg.err
			m.step = StepFailed
			return m, nil
		}
		m.preview = msg.tweets
		m.step = StepPreview
		return m, nil

	case spinner.TickMsg:
		if m.step == StepChecking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m SetupModel) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.cancel.cancel != nil {
		m.cancel.cancel()
	}
	return m, tea.Quit
}

func (m SetupModel) updateMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "l":
		m.mode = ModeLocal
	case "r":
		m.mode = ModeRemote
	case "up", "down", "k", "j", "tab":
		m.mode = 1 - m.mode
	case "enter":
		if m.mode == ModeRemote {
			return m.focus(StepAPIURL)
		}
		return m.focus(StepHandle)
	}
	return m, nil
}

// focus moves to an input step and focuses its field.
func (m SetupModel) focus(step Step) (tea.Model, tea.Cmd) {
	m.url.Blur()
	m.key.Blur()
	m.handle.Blur()
	m.inputErr = nil
	m.step = step
	switch step {
	case StepAPIURL:
		m.url.Focus()
	case StepAPIKey:
		m.key.Focus()
	case StepHandle:
		m.handle.Focus()
	}
	return m, textinput.Blink
}

func (m SetupModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		switch m.step {
		case StepAPIURL:
			m.url, cmd = m.url.Update(msg)
		case StepAPIKey:
			m.key, cmd = m.key.Update(msg)
		case StepHandle:
			m.handle, cmd = m.handle.Update(msg)
		}
		return m, cmd
	}

	switch m.step {
	case StepAPIURL:
		val := strings.TrimRight(strings.TrimSpace(m.url.Value()), "/")
		if val == "" {
			val = DefaultAPIURL
		}
		m.url.SetValue(val)
		return m.focus(StepAPIKey)
	case StepAPIKey:
		return m.focus(StepHandle)
	default:
		name := strings.TrimSpace(m.handle.Value())
		if err := models.ValidateUserName(name); err != nil {
			m.inputErr = err
			return m, nil
		}
		m.handle.SetValue(name)
		m.handle.Blur()
		m.inputErr = nil
		return m.startCheck()
	}
}

func (m SetupModel) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "s":
		m.step = StepDone
		return m, tea.Quit
	case "b":
		return m.focus(StepHandle)
	case "q":
		return m.quit()
	}
	return m, nil
}

func (m SetupModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		m.checkErr = nil
		return m.startCheck()
	case "e":
		m.checkErr = nil
		if m.mode == ModeRemote {
			return m.focus(StepAPIURL)
		}
		return m.focus(StepHandle)
	case "s":
		m.step = StepDone
		return m, tea.Quit
	case "q":
		return m.quit()
	}
	return m, nil
}

func (m SetupModel) startCheck() (tea.Model, tea.Cmd) {
	m.step = StepChecking
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel.cancel = cancel
	conn := m.Result()
	fn := m.check
	run := func() tea.Msg {
		if fn == nil {
			return checkResultMsg{}
		}
		tweets, err := fn(ctx, conn)
		return checkResultMsg{tweets: tweets, err: err}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

// stepLabel numbers the input steps for the chosen mode.
func (m SetupModel) stepLabel() string {
	total := 2
	if m.mode == ModeRemote {
		total = 4
	}
	n, name := 1, "Where do tweets live?"
	switch m.step {
	case StepAPIURL:
		n, name = 2, "API URL"
	case StepAPIKey:
		n, name = 3, "API Key"
	case StepHandle:
		n, name = total, "Handle"
	}
	return fmt.Sprintf("Step %d of %d: %s", n, total, name)
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   CHIRP"))
	b.WriteString(titleStyle.Render(" - Setup"))
	b.WriteString("\n\n")

	switch m.step {
	case StepMode:
		b.WriteString(stepStyle.Render(m.stepLabel()))
		b.WriteString("\n")
		for _, opt := range []Mode{ModeLocal, ModeRemote} {
			cursor := "  "
			if opt == m.mode {
				cursor = selectedStyle.Render("▌ ")
			}
			b.WriteString(fmt.Sprintf("%s%s\n", cursor, opt))
		}
		b.WriteString(promptStyle.Render("[l]ocal  [r]emote  enter to continue"))
		b.WriteString("\n")

	case StepAPIURL:
		b.WriteString(stepStyle.Render(m.stepLabel()))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(press Enter for " + DefaultAPIURL + ")"))
		b.WriteString("\n")
		b.WriteString(m.url.View())
		b.WriteString("\n")

	case StepAPIKey:
		b.WriteString(fmt.Sprintf("  Server: %s\n\n", m.url.Value()))
		b.WriteString(stepStyle.Render(m.stepLabel()))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(leave empty if the server has none)"))
		b.WriteString("\n")
		b.WriteString(m.key.View())
		b.WriteString("\n")

	case StepHandle:
		b.WriteString(fmt.Sprintf("  Tweets on: %s\n\n", m.mode))
		b.WriteString(stepStyle.Render(m.stepLabel()))
		b.WriteString("\n")
		b.WriteString(m.handle.View())
		b.WriteString("\n")
		if m.inputErr != nil {
			b.WriteString(errorStyle.Render(errorText(m.inputErr)))
			b.WriteString("\n")
		}

	case StepChecking:
		b.WriteString(m.spinner.View())
		b.WriteString(fmt.Sprintf(" Signing in as @%s on %s...", m.handle.Value(), m.mode))
		b.WriteString("\n")

	case StepPreview:
		b.WriteString(successStyle.Render(fmt.Sprintf("✓ Signed in as @%s on %s", m.handle.Value(), m.mode)))
		b.WriteString("\n\n")
		if len(m.preview) == 0 {
			b.WriteString("The timeline is empty. Post the first tweet with 'chirp post'.\n")
		}
		for _, t := range m.preview {
			b.WriteString(fmt.Sprintf("  %s %s\n", authorStyle.Render("@"+t.Author.Name), timeStyle.Render(relativeTime(t.CreatedAt, time.Now()))))
			b.WriteString(fmt.Sprintf("  %s\n", truncate(t.Text, 60)))
		}
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("[enter] save  [b]ack  [q]uit"))
		b.WriteString("\n")

	case StepDone:
		b.WriteString(successStyle.Render("✓ Saved"))
		b.WriteString("\n")

	case StepFailed:
		errMsg := "unknown error"
		if m.checkErr != nil {
			errMsg = errorText(m.checkErr)
		}
		b.WriteString(errorStyle.Render("✗ Sign-in failed: " + errMsg))
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("[r]etry  [e]dit  [s]ave anyway  [q]uit"))
		b.WriteString("\n")
	}

	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

// Result returns the collected connection. Local mode drops the server settings.
func (m SetupModel) Result() Connection {
	conn := Connection{Mode: m.mode, UserName: strings.TrimSpace(m.handle.Value())}
	if m.mode == ModeRemote {
		conn.APIURL = m.url.Value()
		conn.APIKey = m.key.Value()
	}
	return conn
}

// ShouldSave returns true if the wizard completed (after a preview or
// "save anyway") and the user did not cancel.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
