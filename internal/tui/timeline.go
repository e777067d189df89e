// ABOUTME: Bubbletea timeline browser with likes, compose, and infinite scroll.
// ABOUTME: Renders a feed.Timeline and loads the next page near the bottom.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/2389-research/chirp/internal/auth"
	"github.com/2389-research/chirp/internal/feed"
	"github.com/2389-research/chirp/internal/models"
)

type pageMsg struct{ err error }

type likeMsg struct {
	kind models.ActionKind
	err  error
}

type tweetMsg struct {
	tweet *models.Tweet
	err   error
}

var (
	authorStyle   = lipgloss.NewStyle().Bold(true)
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	likedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	unlikedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	bannerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("39")).Padding(0, 1)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// TimelineModel is the bubbletea model for `chirp browse`.
type TimelineModel struct {
	tl       *feed.Timeline
	composer *feed.Composer
	auth     auth.Provider
	title    string

	viewport   viewport.Model
	height     int
	compose    textinput.Model
	composing  bool
	ready      bool
	selected   int
	lineStarts []int
	lines      int

	status string
	err    error
	now    func() time.Time
}

// NewTimelineModel creates a browser over tl. composer and provider may be nil.
func NewTimelineModel(tl *feed.Timeline, composer *feed.Composer, provider auth.Provider) TimelineModel {
	in := textinput.New()
	in.Placeholder = "What's happening?"
	in.CharLimit = models.MaxTweetLength
	in.Width = 60

	title := "Timeline"
	if author := tl.Input().Where.AuthorName; author != "" {
		title = "@" + author
	}

	return TimelineModel{
		tl:       tl,
		composer: composer,
		auth:     provider,
		title:    title,
		viewport: viewport.New(80, 20),
		compose:  in,
		now:      time.Now,
	}
}

// Init implements tea.Model.
func (m TimelineModel) Init() tea.Cmd {
	return m.fetchCmd(false)
}

func (m TimelineModel) fetchCmd(refetch bool) tea.Cmd {
	tl := m.tl
	return func() tea.Msg {
		if refetch {
			return pageMsg{err: tl.Refetch(context.Background())}
		}
		return pageMsg{err: tl.FetchNextPage(context.Background())}
	}
}

func (m TimelineModel) toggleCmd(tweetID string) tea.Cmd {
	tl := m.tl
	return func() tea.Msg {
		kind, err := tl.ToggleLike(context.Background(), tweetID)
		return likeMsg{kind: kind, err: err}
	}
}

func (m TimelineModel) createCmd(text string) tea.Cmd {
	composer := m.composer
	return func() tea.Msg {
		tweet, err := composer.Create(context.Background(), text)
		return tweetMsg{tweet: tweet, err: err}
	}
}

// Update implements tea.Model.
func (m TimelineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.height = msg.Height
		m.compose.Width = max(msg.Width-4, 10)
		m.ready = true
		m.render()
		return m, m.maybeFetchMore()

	case pageMsg:
		m.err = msg.err
		m.render()
		return m, m.maybeFetchMore()

	case likeMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = string(msg.kind) + "d"
		}
		m.render()
		return m, nil

	case tweetMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = "tweeted"
		m.compose.Reset()
		m.composing = false
		m.selected = 0
		return m, m.fetchCmd(false)

	case tea.KeyMsg:
		if m.composing {
			return m.updateCompose(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m TimelineModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "j", "down":
		if m.selected < len(m.tl.Tweets())-1 {
			m.selected++
		}
	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}
	case "g", "home":
		m.selected = 0
	case "G", "end":
		m.selected = max(len(m.tl.Tweets())-1, 0)
	case "r":
		m.selected = 0
		m.status = ""
		return m, m.fetchCmd(true)
	case "l", "enter", " ":
		tweets := m.tl.Tweets()
		if len(tweets) == 0 {
			return m, nil
		}
		if err := auth.Require(m.auth); err != nil {
			m.err = err
			return m, nil
		}
		return m, m.toggleCmd(tweets[m.selected].ID)
	case "n":
		if m.composer == nil {
			return m, nil
		}
		if err := auth.Require(m.auth); err != nil {
			m.err = err
			return m, nil
		}
		m.composing = true
		m.err = nil
		return m, m.compose.Focus()
	default:
		return m, nil
	}

	m.render()
	return m, m.maybeFetchMore()
}

func (m TimelineModel) updateCompose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEscape:
		m.composing = false
		m.compose.Blur()
		m.err = nil
		return m, nil
	case tea.KeyEnter:
		text := m.compose.Value()
		if err := models.ValidateTweetText(text); err != nil {
			m.err = err
			return m, nil
		}
		return m, m.createCmd(text)
	}

	var cmd tea.Cmd
	m.compose, cmd = m.compose.Update(msg)
	return m, cmd
}

// maybeFetchMore loads the next page once the viewport is scrolled far enough.
func (m TimelineModel) maybeFetchMore() tea.Cmd {
	if !m.ready || !m.tl.Loaded() {
		return nil
	}
	pct := feed.ScrollPercent(m.viewport.YOffset, m.lines, m.viewport.Height)
	if m.tl.ShouldFetchMore(pct) {
		return m.fetchCmd(false)
	}
	return nil
}

// fit sizes the viewport to the window height left over by the header and footer.
func (m *TimelineModel) fit() {
	if m.height == 0 {
		return
	}
	chrome := lipgloss.Height(m.header()) + lipgloss.Height(m.footer())
	m.viewport.Height = max(m.height-chrome, 1)
	m.viewport.SetYOffset(m.viewport.YOffset)
}

// render lays out the tweets and scrolls so the selected one is visible.
func (m *TimelineModel) render() {
	m.fit()
	tweets := m.tl.Tweets()
	if m.selected >= len(tweets) {
		m.selected = max(len(tweets)-1, 0)
	}

	var (
		b     strings.Builder
		line  int
		width = max(m.viewport.Width-4, 20)
	)
	m.lineStarts = m.lineStarts[:0]
	for i, t := range tweets {
		m.lineStarts = append(m.lineStarts, line)
		block := m.renderTweet(t, width)
		if i == m.selected {
			block = markSelected(block)
		} else {
			block = indent(block)
		}
		b.WriteString(block)
		b.WriteString("\n")
		line += strings.Count(block, "\n") + 1
	}
	m.lines = line
	m.viewport.SetContent(b.String())

	if len(m.lineStarts) == 0 {
		m.viewport.SetYOffset(0)
		return
	}
	top := m.lineStarts[m.selected]
	bottom := m.lines
	if m.selected+1 < len(m.lineStarts) {
		bottom = m.lineStarts[m.selected+1]
	}
	switch {
	case top < m.viewport.YOffset:
		m.viewport.SetYOffset(top)
	case bottom > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(bottom - m.viewport.Height)
	}
}

func (m TimelineModel) renderTweet(t models.Tweet, width int) string {
	heart := unlikedStyle.Render("♡")
	if t.HasLiked() {
		heart = likedStyle.Render("♥")
	}
	header := authorStyle.Render(t.Author.Name) + timeStyle.Render(" - "+relativeTime(t.CreatedAt, m.now()))
	text := lipgloss.NewStyle().Width(width).Render(t.Text)
	return fmt.Sprintf("%s\n%s\n%s %d\n", header, text, heart, t.LikeCount)
}

func markSelected(block string) string {
	lines := strings.Split(block, "\n")
	for i := range lines {
		if lines[i] != "" {
			lines[i] = selectedStyle.Render("▌ ") + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func indent(block string) string {
	lines := strings.Split(block, "\n")
	for i := range lines {
		if lines[i] != "" {
			lines[i] = "  " + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

// relativeTime formats t like "3 minutes ago".
func relativeTime(t, now time.Time) string {
	if now.Sub(t) < time.Second {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// View implements tea.Model.
func (m TimelineModel) View() string {
	m.fit()

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")

	if !m.tl.Loaded() && m.err == nil {
		b.WriteString("Loading...\n")
	} else if len(m.tl.Tweets()) == 0 {
		b.WriteString("No tweets yet.\n")
	} else {
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	}

	b.WriteString(m.footer())
	b.WriteString("\n")
	return b.String()
}

// header returns the title line and the key help or compose line.
func (m TimelineModel) header() string {
	title := brandStyle.Render("CHIRP") + titleStyle.Render(" - "+m.title)
	if m.composing {
		return title + "\n" + m.compose.View()
	}
	return title + "\n" + footerStyle.Render("[n]ew tweet  [l]ike  [j/k] move  [r]efresh  [q]uit")
}

// footer returns the paging status, the last error, and the sign-in banner,
// wrapped to the window width.
func (m TimelineModel) footer() string {
	var status string
	switch {
	case m.tl.IsFetching():
		status = footerStyle.Render("Loading...")
	case m.tl.HasNextPage():
		status = footerStyle.Render("Fetching more...")
	default:
		status = footerStyle.Render("No more tweets to load")
	}
	if m.status != "" {
		status += footerStyle.Render("  · " + m.status)
	}

	lines := []string{status}
	width := max(m.viewport.Width, 20)
	if m.err != nil {
		lines = append(lines, errorStyle.Width(width).Render(errorText(m.err)))
	}
	if banner := auth.Banner(m.auth); banner != "" {
		lines = append(lines, bannerStyle.Width(width).Render(banner+"  ·  run 'chirp login <name>' to sign in"))
	}
	return strings.Join(lines, "\n")
}

func errorText(err error) string {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}
