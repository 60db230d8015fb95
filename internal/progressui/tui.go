package progressui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer renders run/cleanup progress with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *runModel
	tracker *ProgressTracker
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. Returns an error when the
// configured output is not a TTY.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newRunModel(tracker, cfg.WorkspaceDir)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{cfg: cfg, tracker: tracker, model: model, done: make(chan struct{})}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}

	_, r.cancel = context.WithCancel(ctx)

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	opts = append(opts, tea.WithAltScreen())

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage != r.tracker.Stats().Stage {
		r.tracker.SetStage(event.Stage, event.Total)
	} else if event.Total > r.tracker.Stats().Total {
		r.tracker.AddTotal(event.Total - r.tracker.Stats().Total)
	}
	r.tracker.Update(event.Current, event.Triple)

	if r.program != nil {
		r.program.Send(progressUpdateMsg(event))
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracker.AddError(event)
	if r.program != nil {
		r.program.Send(errorMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracker.SetStage(StageComplete, 0)
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	if r.program != nil {
		r.program.Quit()
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
		}
	}
	return nil
}

type progressUpdateMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats
type tickMsg time.Time

// runModel is the bubbletea model for run/cleanup progress.
type runModel struct {
	tracker     *ProgressTracker
	width       int
	height      int
	quitting    bool
	complete    bool
	stats       CompletionStats
	spinner     spinner.Model
	progressBar progress.Model
	styles      Styles
	workspace   string
}

func newRunModel(tracker *ProgressTracker, workspace string) *runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	p := progress.New(
		progress.WithSolidFill(ColorAccent),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return &runModel{
		tracker:     tracker,
		spinner:     s,
		progressBar: p,
		styles:      DefaultStyles(),
		width:       80,
		height:      24,
		workspace:   workspace,
	}
}

func (m *runModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progressBar.Width = msg.Width - 20
		if m.progressBar.Width < 20 {
			m.progressBar.Width = 20
		}
	case progressUpdateMsg, errorMsg:
		return m, nil
	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit
	case tickMsg:
		return m, tickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *runModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string
	sections = append(sections, m.renderStages())
	sections = append(sections, m.renderDivider(contentWidth))
	sections = append(sections, m.renderProgress())
	sections = append(sections, m.renderSpeedMetrics())
	sections = append(sections, m.renderDivider(contentWidth))
	sections = append(sections, m.renderSparkline(contentWidth))
	if triple := m.tracker.Stats().Triple; triple != "" {
		sections = append(sections, m.renderDivider(contentWidth))
		sections = append(sections, m.styles.Dim.Render(triple))
	}

	content := strings.Join(sections, "\n")

	title := "asgen"
	if m.workspace != "" {
		title = fmt.Sprintf("asgen • %s", m.workspace)
	}
	panel := m.wrapInPanel(title, content, contentWidth)
	return panel + "\n" + m.renderStatusBar(contentWidth)
}

func (m *runModel) renderStages() string {
	currentStage := m.tracker.Stats().Stage
	stages := []struct {
		stage Stage
		name  string
	}{
		{StageSeeding, "Seed"},
		{StageExtracting, "Extract"},
		{StageExporting, "Export"},
	}

	var parts []string
	for _, s := range stages {
		var icon string
		var style lipgloss.Style
		switch {
		case s.stage < currentStage:
			icon, style = "●", m.styles.Success
		case s.stage == currentStage:
			icon, style = m.spinner.View(), m.styles.Active
		default:
			icon, style = "○", m.styles.Dim
		}
		parts = append(parts, style.Render(icon+" "+s.name))
	}
	arrow := m.styles.Dim.Render(" → ")
	return strings.Join(parts, arrow)
}

func (m *runModel) renderProgress() string {
	stats := m.tracker.Stats()
	if stats.Total == 0 {
		return fmt.Sprintf("%s %s...\n%s", m.spinner.View(), stats.Stage.String(), m.styles.Dim.Render("Preparing..."))
	}

	percent := stats.Progress
	bar := m.progressBar.ViewAs(percent)
	pctStr := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", percent*100))
	countLine := m.styles.Label.Render(fmt.Sprintf("%d / %d packages", stats.Current, stats.Total))
	return fmt.Sprintf("%s  %s\n%s", bar, pctStr, countLine)
}

func (m *runModel) renderSpeedMetrics() string {
	stats := m.tracker.Stats()
	var parts []string

	speedStr := fmt.Sprintf("Speed: %.0f/s", stats.Speed.Current)
	if stats.Speed.Avg > 0 {
		speedStr += fmt.Sprintf(" (avg: %.0f, peak: %.0f)", stats.Speed.Avg, stats.Speed.Peak)
	}
	parts = append(parts, m.styles.Speed.Render(speedStr))

	if e := stats.ETA; e > 0 {
		parts = append(parts, m.styles.Label.Render(fmt.Sprintf("ETA: %s", formatDuration(e))))
	}
	return strings.Join(parts, m.styles.Dim.Render("  •  "))
}

func (m *runModel) renderSparkline(width int) string {
	sparkWidth := width - 10
	if sparkWidth < 10 {
		sparkWidth = 10
	}
	spark := m.tracker.RenderSparkline(sparkWidth)
	label := m.styles.Dim.Render("throughput ─")
	return m.styles.Sparkline.Render(spark) + " " + label
}

func (m *runModel) renderDivider(width int) string {
	return m.styles.Border.Render(strings.Repeat("─", width))
}

func (m *runModel) wrapInPanel(title, content string, width int) string {
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDarkGray)).
		Padding(0, 1).
		Width(width)
	return lipgloss.JoinVertical(lipgloss.Left, m.styles.Header.Render(title), panel.Render(content))
}

func (m *runModel) renderStatusBar(width int) string {
	stats := m.tracker.Stats()
	var parts []string
	if stats.WarnCount > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", stats.WarnCount)))
	}
	if stats.ErrorCount > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", stats.ErrorCount)))
	}
	if len(parts) == 0 {
		return m.styles.Dim.Render("q to quit")
	}
	return strings.Join(parts, m.styles.Dim.Render("  │  ")) + m.styles.Dim.Render("  │  q to quit")
}

func (m *runModel) renderComplete() string {
	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	var lines []string
	lines = append(lines, m.styles.Success.Render("✓ Run complete"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("%s    %s", m.styles.Label.Render("Packages:"), m.styles.Active.Render(fmt.Sprintf("%d", m.stats.Packages))))
	lines = append(lines, fmt.Sprintf("%s    %s", m.styles.Label.Render("Triples:"), m.styles.Active.Render(fmt.Sprintf("%d", m.stats.Triples))))
	lines = append(lines, fmt.Sprintf("%s %s", m.styles.Label.Render("Duration:"), m.styles.Active.Render(formatDuration(m.stats.Duration))))

	speedStats := m.tracker.SpeedStats()
	if speedStats.Avg > 0 {
		lines = append(lines, fmt.Sprintf("%s %s", m.styles.Label.Render("Avg Speed:"), m.styles.Speed.Render(fmt.Sprintf("%.0f packages/sec", speedStats.Avg))))
	}

	if m.stats.Errors > 0 || m.stats.Warnings > 0 {
		lines = append(lines, "")
		if m.stats.Errors > 0 {
			lines = append(lines, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", m.stats.Errors)))
		}
		if m.stats.Warnings > 0 {
			lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", m.stats.Warnings)))
		}
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccent)).
		Padding(1, 2).
		Width(contentWidth)
	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		if secs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	hrs := int(d.Hours())
	mins := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hrs, mins)
}

var _ Renderer = (*TUIRenderer)(nil)
