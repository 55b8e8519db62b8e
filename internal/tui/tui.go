// Package tui is the terminal presentation layer for the timeline
// engine. All scheduling and state logic lives in internal/timeline;
// this package only translates key/resize events into controller
// intents and paints the latest display tree.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/louispotok/frieden/internal/layout"
	"github.com/louispotok/frieden/internal/timeline"
	"github.com/louispotok/frieden/internal/timeutil"
)

// cellPx approximates the pixel width of one terminal cell, so the
// viewport policy's pixel thresholds map onto terminal columns.
const cellPx = 8

// defaultScrollHour is the first visible hour row before any scroll.
const defaultScrollHour = 0

type renderMsg struct{ tl layout.Timeline }

type scrollMsg struct{ px float64 }

// Model is the bubbletea model wrapping a timeline controller.
type Model struct {
	ctrl     *timeline.Controller
	renderCh chan layout.Timeline
	scrollCh chan float64

	tl        layout.Timeline
	width     int
	height    int
	scrollRow int
	started   bool

	styles styles
}

type styles struct {
	header lipgloss.Style
	accent lipgloss.Style
	ruler  lipgloss.Style
	busy   lipgloss.Style
	now    lipgloss.Style
	help   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header: lipgloss.NewStyle().Bold(true),
		accent: lipgloss.NewStyle().Bold(true).Reverse(true),
		ruler:  lipgloss.NewStyle().Faint(true),
		busy:   lipgloss.NewStyle().Reverse(true),
		now:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		help:   lipgloss.NewStyle().Faint(true),
	}
}

// New builds the Model and its controller. The controller's hooks feed
// bubbletea through channels so timer and fetch goroutines never touch
// the model directly.
func New(ctx context.Context, clock *timeutil.Clock, fetcher timeline.Fetcher) Model {
	renderCh := make(chan layout.Timeline, 16)
	scrollCh := make(chan float64, 1)

	hooks := timeline.Hooks{
		Render: func(tl layout.Timeline) {
			select {
			case renderCh <- tl:
			default: // drop stale frames under backpressure
			}
		},
		ScrollTo: func(px float64) {
			select {
			case scrollCh <- px:
			default:
			}
		},
	}

	ctrl := timeline.New(ctx, clock, fetcher, hooks, timeline.Options{})

	return Model{
		ctrl:      ctrl,
		renderCh:  renderCh,
		scrollCh:  scrollCh,
		scrollRow: defaultScrollHour,
		styles:    defaultStyles(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitRender(m.renderCh), waitScroll(m.scrollCh))
}

func waitRender(ch chan layout.Timeline) tea.Cmd {
	return func() tea.Msg {
		return renderMsg{tl: <-ch}
	}
}

func waitScroll(ch chan float64) tea.Cmd {
	return func() tea.Msg {
		return scrollMsg{px: <-ch}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ctrl.Resize(msg.Width * cellPx)
		m.started = true
		return m, nil

	case renderMsg:
		m.tl = msg.tl
		return m, waitRender(m.renderCh)

	case scrollMsg:
		m.scrollRow = clampRow(int(msg.px / timeutil.HourHeightPx))
		return m, waitScroll(m.scrollCh)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.ctrl.Close()
			return m, tea.Quit
		case "t":
			m.ctrl.Today()
		case "h", "left":
			m.ctrl.Shift(-1)
		case "l", "right":
			m.ctrl.Shift(1)
		case "H", "shift+left":
			m.ctrl.Shift(-7)
		case "L", "shift+right":
			m.ctrl.Shift(7)
		case "j", "down":
			m.scrollRow = clampRow(m.scrollRow + 1)
		case "k", "up":
			m.scrollRow = clampRow(m.scrollRow - 1)
		}
		return m, nil
	}
	return m, nil
}

func clampRow(row int) int {
	if row < 0 {
		return 0
	}
	if row > 23 {
		return 23
	}
	return row
}

func (m Model) View() string {
	if !m.started || len(m.tl.Days) == 0 {
		return "loading timeline..."
	}

	colWidth := m.width / len(m.tl.Days)
	if colWidth < 10 {
		colWidth = 10
	}
	rows := m.height - 3 // header + help line
	if rows < 1 {
		rows = 1
	}

	cols := make([]string, 0, len(m.tl.Days))
	for _, day := range m.tl.Days {
		cols = append(cols, m.renderDay(day, colWidth, rows))
	}

	grid := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	help := m.styles.help.Render("t today · h/l ±day · H/L ±week · j/k scroll · q quit")
	return grid + "\n" + help
}

// renderDay paints one day column: a header line plus one row per
// visible hour, with busy slots drawn as reversed blocks and the now
// marker as a colored rule.
func (m Model) renderDay(day layout.DayColumn, colWidth, rows int) string {
	var b strings.Builder

	head := fmt.Sprintf("%s %s", day.Weekday, day.DateLabel)
	style := m.styles.header
	if day.Today {
		style = m.styles.accent
	}
	b.WriteString(style.Render(pad(head, colWidth)))
	b.WriteString("\n")

	nowRow := -1
	if day.Now != nil {
		nowRow = int((day.Now.TopPx - timeutil.HourRowHeaderPx) / timeutil.HourHeightPx)
	}

	for i := 0; i < rows; i++ {
		hour := m.scrollRow + i
		if hour > 23 {
			break
		}
		b.WriteString(m.renderHourRow(day, hour, hour == nowRow, colWidth))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderHourRow(day layout.DayColumn, hour int, isNow bool, colWidth int) string {
	label := day.Hours[hour].Label
	ruler := m.styles.ruler.Render(fmt.Sprintf("%6s ", strings.TrimSpace(label)))
	cell := colWidth - 7
	if cell < 3 {
		cell = 3
	}

	if slot, ok := slotAtHour(day, hour); ok {
		text := ""
		if slotStartRow(slot) == hour {
			text = slot.Label
		}
		return ruler + m.styles.busy.Render(pad(" "+text, cell))
	}
	if isNow {
		rule := "now"
		if n := cell - 4; n > 0 {
			rule = strings.Repeat("-", n) + " now"
		}
		return ruler + m.styles.now.Render(pad(rule, cell))
	}
	return ruler + pad("", cell)
}

// slotStartRow is the hour row where a slot's top edge lands.
func slotStartRow(s layout.Slot) int {
	return int((s.TopPx - timeutil.HourRowHeaderPx) / timeutil.HourHeightPx)
}

// slotAtHour reports whether any busy slot covers the given hour row.
func slotAtHour(day layout.DayColumn, hour int) (layout.Slot, bool) {
	rowTop := float64(hour) * timeutil.HourHeightPx
	rowBottom := rowTop + timeutil.HourHeightPx
	for _, s := range day.Slots {
		top := s.TopPx - timeutil.HourRowHeaderPx
		bottom := top + s.HeightPx
		if top < rowBottom && bottom > rowTop {
			return s, true
		}
	}
	return layout.Slot{}, false
}

func pad(s string, width int) string {
	if len(s) > width {
		if width > 1 {
			return s[:width-1] + "…"
		}
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}
