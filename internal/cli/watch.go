package cli

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/tdnguyen/interview-recorder-go/internal/client"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the analysis queue drain live",
	Long: `Subscribe to the server's queue feed and render it live: the job
being processed, the jobs waiting, and pending automatic retries.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// Theme holds the color scheme for the watch display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// snapshotMsg carries a queue snapshot from the websocket feed.
type snapshotMsg struct {
	snap client.QueueSnapshot
}

// watchErrMsg signals the feed ended.
type watchErrMsg struct {
	err error
}

// watchModel is the bubbletea model for the live queue view.
type watchModel struct {
	snaps    <-chan client.QueueSnapshot
	errs     <-chan error
	snap     *client.QueueSnapshot
	progress progress.Model
	theme    Theme

	// maxSeen is the largest backlog observed, used to render drain progress.
	maxSeen  int
	quitting bool
	err      error
}

func newWatchModel(snaps <-chan client.QueueSnapshot, errs <-chan error) watchModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return watchModel{
		snaps:    snaps,
		errs:     errs,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (wait for the first snapshot).
func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		m.nextSnapshot(),
		m.progress.Init(),
	)
}

// nextSnapshot waits for the next feed event without blocking Update().
func (m watchModel) nextSnapshot() tea.Cmd {
	return func() tea.Msg {
		select {
		case snap, ok := <-m.snaps:
			if !ok {
				return watchErrMsg{}
			}
			return snapshotMsg{snap: snap}
		case err := <-m.errs:
			return watchErrMsg{err: err}
		}
	}
}

// Update handles messages and returns the updated model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case snapshotMsg:
		m.snap = &msg.snap
		backlog := msg.snap.QueueSize + msg.snap.Scheduled
		if msg.snap.Processing {
			backlog++
		}
		if backlog > m.maxSeen {
			m.maxSeen = backlog
		}
		return m, m.nextSnapshot()

	case watchErrMsg:
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the queue display.
func (m watchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m watchModel) renderContent() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nStopped watching; the queue keeps running on the server.\n")
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Queue feed lost: %s\n", m.err))
	}
	if m.snap == nil {
		return "Connecting to queue feed...\n"
	}

	var b strings.Builder

	backlog := m.snap.QueueSize + m.snap.Scheduled
	if m.snap.Processing {
		backlog++
	}
	pct := 1.0
	if m.maxSeen > 0 {
		pct = float64(m.maxSeen-backlog) / float64(m.maxSeen)
	}

	header := m.theme.statusStyle().Render(fmt.Sprintf("[%d queued, %d retry-pending]", m.snap.QueueSize, m.snap.Scheduled))
	b.WriteString(fmt.Sprintf("%s %s\n\n", header, m.progress.ViewAs(pct)))

	if m.snap.CurrentJob != "" {
		b.WriteString(m.theme.successStyle().Render("▶ "+m.snap.CurrentJob) + "\n")
	} else {
		b.WriteString(m.theme.hintStyle().Render("idle") + "\n")
	}

	for _, job := range m.snap.Jobs {
		marker := "•"
		if job.IsManualRetry {
			marker = "↻"
		}
		b.WriteString(fmt.Sprintf("  %s %s  %s\n", marker, job.JobID, job.Status))
	}

	b.WriteString("\n" + m.theme.hintStyle().Render("Press q to quit") + "\n")
	return b.String()
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snaps := make(chan client.QueueSnapshot, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(snaps)
		errs <- apiClient.WatchQueue(ctx, func(snap client.QueueSnapshot) error {
			select {
			case snaps <- snap:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}()

	model := newWatchModel(snaps, errs)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("watch UI error: %w", err)
	}
	cancel()

	if m, ok := finalModel.(watchModel); ok {
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}
	return nil
}
