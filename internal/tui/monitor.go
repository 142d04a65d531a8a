// internal/tui/monitor.go
//
// Live run monitor built on bubbletea. The scheduling loop owns all mutable
// state; this view only reads consistent snapshots and listens for run
// events, so it can refresh freely without synchronization concerns.

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/foremanhq/foreman/internal/run"
)

const (
	refreshInterval = 500 * time.Millisecond
	maxActivity     = 8
	barWidth        = 30
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Faint(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	blockedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	activityStyle = lipgloss.NewStyle().Faint(true)
)

type refreshMsg run.Snapshot

type eventMsg run.Event

type eventsClosedMsg struct{}

// Model renders one run's progress until it reaches a terminal status.
type Model struct {
	state  *run.State
	events <-chan run.Event

	snap       run.Snapshot
	activities []string
	spin       spinner.Model
	done       bool
	cancel     func()
}

// New builds the monitor model. cancel is invoked when the user interrupts
// the run from the view.
func New(state *run.State, events <-chan run.Event, cancel func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{
		state:  state,
		events: events,
		snap:   state.Snapshot(),
		spin:   s,
		cancel: cancel,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.refresh(), m.nextEvent())
}

func (m Model) refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg(m.state.Snapshot())
	})
}

func (m Model) nextEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.done {
				return m, tea.Quit
			}
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		case "enter":
			if m.done {
				return m, tea.Quit
			}
		}
	case refreshMsg:
		m.snap = run.Snapshot(msg)
		if m.terminal() {
			m.done = true
			return m, tea.Quit
		}
		return m, m.refresh()
	case eventMsg:
		// Round boundaries carry no information worth a feed line.
		if ev := run.Event(msg); ev.Kind != run.EventTick {
			m.activities = appendActivity(m.activities, formatEvent(ev))
		}
		return m, m.nextEvent()
	case eventsClosedMsg:
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) terminal() bool {
	switch m.snap.Status {
	case run.RunCompleted, run.RunStalled, run.RunCanceled:
		return true
	}
	return false
}

// View implements tea.Model.
func (m Model) View() string {
	var sb strings.Builder

	name := m.snap.PlanName
	if name == "" {
		name = m.snap.PlanID
	}
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s  [%s]", name, m.snap.RunID)))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(fmt.Sprintf("status: %s", m.snap.Status)))
	if m.snap.StatusReason != "" {
		sb.WriteString(dimStyle.Render("  " + m.snap.StatusReason))
	}
	sb.WriteString("\n\n")

	p := m.snap.Progress
	sb.WriteString(progressBar(p.CompletedCount, p.TotalItems))
	sb.WriteString(fmt.Sprintf("  workers %d/%d busy  elapsed %s",
		p.ActiveWorkers, p.TotalWorkers, p.Elapsed.Round(time.Second)))
	if p.Remaining > 0 {
		sb.WriteString(fmt.Sprintf("  remaining %s", p.Remaining.Round(time.Second)))
	}
	sb.WriteString("\n\n")

	for _, item := range m.snap.Items {
		sb.WriteString(fmt.Sprintf(" %s %-14s %s\n", m.statusGlyph(item.Status), item.Spec.ID, item.Spec.Title))
	}

	if len(m.activities) > 0 {
		sb.WriteString("\n")
		for _, line := range m.activities {
			sb.WriteString(activityStyle.Render(" " + line))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	if m.done {
		sb.WriteString(dimStyle.Render("press enter to exit"))
	} else {
		sb.WriteString(dimStyle.Render("q to cancel the run"))
	}
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) statusGlyph(status run.ItemStatus) string {
	switch status {
	case run.ItemCompleted:
		return okStyle.Render("✓")
	case run.ItemFailed:
		return failStyle.Render("✗")
	case run.ItemBlocked:
		return blockedStyle.Render("⊘")
	case run.ItemInProgress:
		return m.spin.View()
	default:
		return dimStyle.Render("·")
	}
}

// progressBar renders a fixed-width bar like ■■■■□□□□ 50%.
func progressBar(current, total int) string {
	if total <= 0 {
		return ""
	}
	if current > total {
		current = total
	}
	filled := current * barWidth / total
	bar := strings.Repeat("■", filled) + strings.Repeat("□", barWidth-filled)
	return fmt.Sprintf("%s %d%%", bar, current*100/total)
}

func formatEvent(ev run.Event) string {
	stamp := ev.At.Format("15:04:05")
	switch ev.Kind {
	case run.EventDispatched:
		return fmt.Sprintf("%s %s -> %s", stamp, ev.ItemID, ev.WorkerID)
	case run.EventItemCompleted:
		return fmt.Sprintf("%s %s completed", stamp, ev.ItemID)
	case run.EventItemFailed:
		return fmt.Sprintf("%s %s failed: %s", stamp, ev.ItemID, ev.Reason)
	case run.EventItemBlocked:
		return fmt.Sprintf("%s %s blocked: %s", stamp, ev.ItemID, ev.Reason)
	case run.EventRunFinished:
		return fmt.Sprintf("%s run finished", stamp)
	default:
		return fmt.Sprintf("%s %s", stamp, ev.Kind)
	}
}

func appendActivity(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxActivity {
		lines = lines[len(lines)-maxActivity:]
	}
	return lines
}
