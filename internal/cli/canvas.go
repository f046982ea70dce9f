package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nuno18084/Ampflux-sub000/pkg/catalog"
	"github.com/nuno18084/Ampflux-sub000/pkg/editor"
	"github.com/nuno18084/Ampflux-sub000/pkg/geom"
	"github.com/nuno18084/Ampflux-sub000/pkg/schematic"
	"github.com/nuno18084/Ampflux-sub000/pkg/sim"
	"github.com/nuno18084/Ampflux-sub000/pkg/store"
)

// Canvas styles.
var (
	canvasComponentStyle = lipgloss.NewStyle().Foreground(colorWhite)
	canvasSelectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	canvasSourceStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	canvasWireStyle      = lipgloss.NewStyle().Foreground(colorDim)
	canvasCursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	statusBarStyle       = lipgloss.NewStyle().Foreground(colorGray)
)

// cursorStep is how many screen units one arrow press moves the cursor.
// Shifted arrows move a single unit for fine positioning.
const cursorStep = 4

// canvasModel is the bubbletea model for the edit command. One terminal
// cell is one screen unit; the editor session owns all canvas semantics,
// the model only translates keys into pointer events and draws the
// result.
type canvasModel struct {
	sess    *editor.Session
	cat     *catalog.Catalog
	kinds   []catalog.Kind
	kindIdx int

	cursor  geom.Point
	pressed bool

	width  int
	height int
	status string
}

func newCanvasModel(sess *editor.Session, cat *catalog.Catalog) canvasModel {
	return canvasModel{
		sess:   sess,
		cat:    cat,
		kinds:  cat.Kinds(),
		cursor: geom.Point{X: 20, Y: 10},
		width:  80,
		height: 24,
	}
}

type saveDoneMsg struct {
	rec store.VersionRecord
	err error
}

type simDoneMsg struct {
	res sim.Result
	err error
}

func (m canvasModel) Init() tea.Cmd {
	return nil
}

func (m canvasModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case saveDoneMsg:
		if msg.err != nil {
			m.status = StyleWarning.Render(fmt.Sprintf("save failed: %v", msg.err))
		} else {
			m.status = StyleSuccess.Render(fmt.Sprintf("saved v%d", msg.rec.Number))
		}

	case simDoneMsg:
		switch {
		case msg.err != nil:
			m.status = StyleWarning.Render(fmt.Sprintf("simulation failed: %v", msg.err))
		case msg.res.OK:
			m.status = StyleSuccess.Render("simulation ok: " + msg.res.Detail)
		default:
			m.status = StyleWarning.Render("simulation: " + msg.res.Detail)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m canvasModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		m.moveCursor(0, -cursorStep)
	case "down", "j":
		m.moveCursor(0, cursorStep)
	case "left", "h":
		m.moveCursor(-cursorStep, 0)
	case "right", "l":
		m.moveCursor(cursorStep, 0)
	case "shift+up":
		m.moveCursor(0, -1)
	case "shift+down":
		m.moveCursor(0, 1)
	case "shift+left":
		m.moveCursor(-1, 0)
	case "shift+right":
		m.moveCursor(1, 0)

	case " ":
		m.togglePointer()

	case "c":
		m.connect()

	case "p", "enter":
		m.place()

	case "tab":
		if len(m.kinds) > 0 {
			m.kindIdx = (m.kindIdx + 1) % len(m.kinds)
		}
	case "shift+tab":
		if len(m.kinds) > 0 {
			m.kindIdx = (m.kindIdx + len(m.kinds) - 1) % len(m.kinds)
		}

	case "x", "delete", "backspace":
		m.report(m.sess.DeleteSelected())

	case "+", "=":
		m.sess.Wheel(1)
	case "-", "_":
		m.sess.Wheel(-1)

	case "esc":
		m.sess.Cancel()
		m.pressed = false
		m.status = ""

	case "s":
		if m.sess.Saving() {
			m.status = StyleDim.Render("save already in flight")
			return m, nil
		}
		return m, m.saveCmd()

	case "r":
		if m.sess.Simulating() {
			m.status = StyleDim.Render("simulation already running")
			return m, nil
		}
		return m, m.simulateCmd()
	}
	return m, nil
}

func (m *canvasModel) moveCursor(dx, dy float64) {
	m.cursor.X = clamp(m.cursor.X+dx, 0, float64(m.width-1))
	m.cursor.Y = clamp(m.cursor.Y+dy, 0, float64(m.height-3))
	if m.pressed {
		m.report(m.sess.PointerMove(m.cursor))
	}
}

// togglePointer models press-and-hold with a single key: the first press
// puts the pointer down (on a component if the cursor is over one), the
// second lifts it.
func (m *canvasModel) togglePointer() {
	if m.pressed {
		m.report(m.sess.PointerUp(m.cursor))
		m.pressed = false
		return
	}
	if id := m.hit(m.cursor); id != "" {
		m.sess.PointerDownOnComponent(id, m.cursor)
	} else {
		m.sess.PointerDownOnCanvas(m.cursor)
	}
	m.pressed = true
}

func (m *canvasModel) connect() {
	id := m.hit(m.cursor)
	if id == "" {
		m.status = StyleDim.Render("no component under cursor")
		return
	}
	m.report(m.sess.ClickConnectionDot(id))
}

// place drops the selected palette kind. Drops anchor the component's
// top-left away from the pointer to sit under a drag ghost; the terminal
// has no ghost, so the offset is compensated to land the part at the
// cursor.
func (m *canvasModel) place() {
	if len(m.kinds) == 0 {
		return
	}
	offset := geom.Point{X: geom.CenterOffset, Y: geom.CenterOffset}.Scale(m.sess.View().Zoom)
	desc := m.cat.Descriptor(m.kinds[m.kindIdx].ID)
	_, err := m.sess.Drop(desc, m.cursor.Add(offset))
	m.report(err)
}

// report maps session errors to the status line. Permission denials are
// the common case for viewers; everything else is shown as-is.
func (m *canvasModel) report(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, editor.ErrPermissionDenied) {
		m.status = StyleWarning.Render("read-only: this role cannot edit")
		return
	}
	m.status = StyleWarning.Render(err.Error())
}

// hit returns the id of the component whose rendered label covers the
// given screen point, or "" when the point is over empty canvas.
func (m canvasModel) hit(p geom.Point) string {
	px, py := int(p.X), int(p.Y)
	for _, c := range m.sess.Graph().Components() {
		x, y, w := m.footprint(c)
		if py == y && px >= x && px < x+w {
			return c.ID
		}
	}
	return ""
}

// footprint returns the top-left cell and width of a component's label.
func (m canvasModel) footprint(c schematic.Component) (x, y, w int) {
	s := geom.WorldToScreen(c.Pos, geom.Point{}, m.sess.Transform())
	label := componentLabel(c)
	return int(s.X), int(s.Y), len([]rune(label))
}

func componentLabel(c schematic.Component) string {
	name := c.Name
	if name == "" {
		name = c.Kind
	}
	return "[" + name + "]"
}

func (m canvasModel) saveCmd() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ch := make(chan saveDoneMsg, 1)
		err := sess.Save(context.Background(), func(rec store.VersionRecord, err error) {
			ch <- saveDoneMsg{rec: rec, err: err}
		})
		if err != nil {
			return saveDoneMsg{err: err}
		}
		return <-ch
	}
}

func (m canvasModel) simulateCmd() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ch := make(chan simDoneMsg, 1)
		err := sess.Simulate(context.Background(), func(res sim.Result, err error) {
			ch <- simDoneMsg{res: res, err: err}
		})
		if err != nil {
			return simDoneMsg{err: err}
		}
		return <-ch
	}
}

func (m canvasModel) View() string {
	rows := m.height - 2
	if rows < 1 {
		rows = 1
	}
	grid := make([][]string, rows)
	for y := range grid {
		grid[y] = make([]string, m.width)
		for x := range grid[y] {
			grid[y][x] = " "
		}
	}

	m.drawWires(grid)
	m.drawComponents(grid)
	m.put(grid, int(m.cursor.X), int(m.cursor.Y), canvasCursorStyle.Render("+"))

	var b strings.Builder
	for _, row := range grid {
		b.WriteString(strings.Join(row, ""))
		b.WriteString("\n")
	}
	b.WriteString(m.statusBar())
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("arrows move  space press/lift  p place  c wire  tab kind  x delete  +/- zoom  s save  r simulate  esc cancel  q quit"))
	return b.String()
}

func (m canvasModel) drawWires(grid [][]string) {
	for _, conn := range m.sess.Graph().Connections() {
		from, okF := m.sess.Graph().Component(conn.From)
		to, okT := m.sess.Graph().Component(conn.To)
		if !okF || !okT {
			continue
		}
		fx, fy, fw := m.footprint(from)
		tx, ty, tw := m.footprint(to)
		m.drawLine(grid, fx+fw/2, fy, tx+tw/2, ty)
	}
}

// drawLine steps between two cells, dotting empty cells only so labels
// stay readable.
func (m canvasModel) drawLine(grid [][]string, x0, y0, x1, y1 int) {
	dx, dy := x1-x0, y1-y0
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		return
	}
	dot := canvasWireStyle.Render("·")
	for i := 0; i <= steps; i++ {
		x := x0 + dx*i/steps
		y := y0 + dy*i/steps
		if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[y]) && grid[y][x] == " " {
			grid[y][x] = dot
		}
	}
}

func (m canvasModel) drawComponents(grid [][]string) {
	selection := m.sess.Selection()
	source := m.sess.ConnectSource()

	for _, c := range m.sess.Graph().Components() {
		style := canvasComponentStyle
		switch c.ID {
		case source:
			style = canvasSourceStyle
		case selection:
			style = canvasSelectedStyle
		}

		x, y, _ := m.footprint(c)
		for i, r := range componentLabel(c) {
			m.put(grid, x+i, y, style.Render(string(r)))
		}
	}
}

func (m canvasModel) put(grid [][]string, x, y int, s string) {
	if y < 0 || y >= len(grid) || x < 0 || x >= len(grid[y]) {
		return
	}
	grid[y][x] = s
}

func (m canvasModel) statusBar() string {
	parts := []string{
		StyleTitle.Render(m.sess.ProjectID()),
		m.sess.State().String(),
		fmt.Sprintf("%d%%", int(m.sess.View().Zoom*100+0.5)),
	}
	if len(m.kinds) > 0 {
		parts = append(parts, "kind: "+m.kinds[m.kindIdx].Name)
	}
	if id := m.sess.Selection(); id != "" {
		if c, ok := m.sess.Graph().Component(id); ok {
			parts = append(parts, "sel: "+componentLabel(c))
		}
	}
	if m.sess.Saving() {
		parts = append(parts, StyleDim.Render("saving"))
	}
	if m.sess.Simulating() {
		parts = append(parts, StyleDim.Render("simulating"))
	}
	line := statusBarStyle.Render(strings.Join(parts, "  "))
	if m.status != "" {
		line += "  " + m.status
	}
	return line
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
