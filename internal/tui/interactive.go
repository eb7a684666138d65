package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/phasespace/internal/analysis"
	"github.com/san-kum/phasespace/internal/config"
	"github.com/san-kum/phasespace/internal/dynamo"
	"github.com/san-kum/phasespace/internal/integrators"
	"github.com/san-kum/phasespace/internal/physics"
	"github.com/san-kum/phasespace/internal/trajectory"
	"github.com/san-kum/phasespace/internal/workbench"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type state int

const (
	stateMenu state = iota
	stateEdit
	statePhase
)

// Options configures the explorer. With Definition set the system menu is
// skipped.
type Options struct {
	Registry   *physics.Registry
	Definition *dynamo.Definition
	Config     *config.Config
	Solver     trajectory.Solver
}

// field is one editable number on the edit screen.
type field struct {
	label string
	get   func() float64
	set   func(float64) error
	step  float64
}

type model struct {
	state  state
	opts   Options
	cursor int
	names  []string

	wb         *workbench.Workbench
	row        int
	fieldIdx   int
	editing    bool
	editBuf    string
	xIdx, yIdx int
	series     bool
	section    bool

	busy   bool
	status string
	err    error

	width  int
	height int
}

type integratedMsg struct{ err error }

func newModel(opts Options) model {
	if opts.Registry == nil {
		opts.Registry = physics.Default
	}
	if opts.Solver == nil {
		opts.Solver = integrators.NewSolver()
	}
	m := model{
		state:  stateMenu,
		opts:   opts,
		names:  opts.Registry.List(),
		width:  80,
		height: 24,
	}
	if opts.Definition != nil {
		m.open(opts.Definition)
	}
	return m
}

func (m *model) open(def *dynamo.Definition) {
	m.wb = workbench.New(def, m.opts.Solver)
	cfg := m.opts.Config
	if cfg == nil || cfg.System != def.Name {
		cfg = config.DefaultConfig()
		cfg.System = def.Name
		if m.opts.Config != nil {
			cfg.Solver = m.opts.Config.Solver
		}
	}
	if err := m.wb.Apply(cfg); err != nil {
		m.err = err
		_ = m.wb.Apply(&config.Config{System: def.Name, Solver: cfg.Solver})
	}
	dim := def.Dim()
	m.xIdx, m.yIdx = 0, min(1, dim)
	if x, err := config.AxisIndex(cfg.Plot.X, def.VariableNames, m.xIdx); err == nil {
		m.xIdx = x
	}
	if y, err := config.AxisIndex(cfg.Plot.Y, def.VariableNames, m.yIdx); err == nil {
		m.yIdx = y
	}
	m.row, m.fieldIdx = 0, 0
	m.state = stateEdit
}

func (m model) Init() tea.Cmd { return nil }

func (m model) integrate() tea.Cmd {
	wb := m.wb
	return func() tea.Msg {
		return integratedMsg{err: wb.IntegrateAll(context.Background())}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case integratedMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.status = fmt.Sprintf("integrated %d rows", len(m.wb.Rows()))
		}
		m.state = statePhase
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateEdit:
		return m.editKey(msg)
	case statePhase:
		return m.phaseKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.names)-1 {
			m.cursor++
		}
	case "enter", " ":
		def, err := m.opts.Registry.Get(m.names[m.cursor])
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.open(def)
	}
	return m, nil
}

// fields lists the parameters, then the initial state and span of the
// current row.
func (m *model) fields() []field {
	wb := m.wb
	def := wb.Definition()
	var out []field
	for i, name := range def.ParameterNames {
		out = append(out, field{
			label: name,
			get:   func() float64 { return wb.Params()[i] },
			set:   func(v float64) error { return wb.SetParam(name, v) },
			step:  0.1,
		})
	}
	r, err := wb.Row(m.row)
	if err != nil {
		return out
	}
	row := m.row
	for i, name := range def.VariableNames {
		out = append(out, field{
			label: name + "₀",
			get:   func() float64 { return r.Processor.InitialState()[i] },
			set: func(v float64) error {
				x0 := r.Processor.InitialState()
				x0[i] = v
				return wb.SetInitial(row, x0)
			},
			step: 0.1,
		})
	}
	spanField := func(label string, get func(dynamo.Span) float64, set func(*dynamo.Span, float64), step float64) field {
		return field{
			label: label,
			get:   func() float64 { return get(r.Span) },
			set: func(v float64) error {
				s := r.Span
				set(&s, v)
				return wb.SetSpan(row, s)
			},
			step: step,
		}
	}
	out = append(out,
		spanField("t_start", func(s dynamo.Span) float64 { return s.Start }, func(s *dynamo.Span, v float64) { s.Start = v }, 1),
		spanField("t_end", func(s dynamo.Span) float64 { return s.End }, func(s *dynamo.Span, v float64) { s.End = v }, 1),
		spanField("t_steps", func(s dynamo.Span) float64 { return float64(s.Steps) }, func(s *dynamo.Span, v float64) { s.Steps = int(v) }, 100),
	)
	return out
}

func (m model) editKey(msg tea.KeyMsg) (model, tea.Cmd) {
	fields := m.fields()
	if m.editing {
		switch msg.String() {
		case "enter":
			m.editing = false
			v, err := strconv.ParseFloat(m.editBuf, 64)
			m.editBuf = ""
			if err != nil {
				m.err = err
				return m, nil
			}
			m.err = fields[m.fieldIdx].set(v)
		case "esc":
			m.editing = false
			m.editBuf = ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == 'e' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}

	key := msg.String()
	if len(fields) == 0 {
		switch key {
		case "left", "h", "right", "l", "enter", " ":
			return m, nil
		}
	}
	switch key {
	case "q", "esc":
		if m.opts.Definition != nil {
			return m, tea.Quit
		}
		m.state = stateMenu
		m.wb = nil
	case "up", "k":
		if m.fieldIdx > 0 {
			m.fieldIdx--
		}
	case "down", "j":
		if m.fieldIdx < len(fields)-1 {
			m.fieldIdx++
		}
	case "left", "h":
		f := fields[m.fieldIdx]
		m.err = f.set(f.get() - f.step)
	case "right", "l":
		f := fields[m.fieldIdx]
		m.err = f.set(f.get() + f.step)
	case "enter", " ":
		m.editing = true
		m.editBuf = strconv.FormatFloat(fields[m.fieldIdx].get(), 'g', -1, 64)
	case "tab":
		if n := len(m.wb.Rows()); n > 0 {
			m.row = (m.row + 1) % n
		}
	case "a":
		m.err = m.addRow()
	case "x":
		if len(m.wb.Rows()) > 1 {
			m.err = m.wb.RemoveRow(m.row)
			m.row = max(0, m.row-1)
			m.fieldIdx = min(m.fieldIdx, len(m.fields())-1)
		}
	case "v":
		if r, err := m.wb.Row(m.row); err == nil {
			m.err = m.wb.SetShow(m.row, !r.Show)
		}
	case "r":
		m.err = m.wb.Reverse(m.row)
	case "i", "s":
		m.busy = true
		m.status = "integrating…"
		return m, m.integrate()
	}
	return m, nil
}

// addRow duplicates the current row.
func (m *model) addRow() error {
	r, err := m.wb.Row(m.row)
	if err != nil {
		return err
	}
	i, err := m.wb.AddRow(r.Processor.InitialState(), r.Span)
	if err != nil {
		return err
	}
	m.row = i
	return nil
}

func (m model) phaseKey(msg tea.KeyMsg) (model, tea.Cmd) {
	dim := m.wb.Definition().Dim()
	switch msg.String() {
	case "q":
		if m.opts.Definition != nil {
			return m, tea.Quit
		}
		m.state = stateMenu
		m.wb = nil
	case "e", "esc":
		m.state = stateEdit
	case "x":
		m.xIdx = (m.xIdx + 1) % (dim + 1)
	case "y":
		m.yIdx = (m.yIdx + 1) % (dim + 1)
	case "t":
		m.series = !m.series
	case "p":
		m.section = !m.section
	case "tab":
		if n := len(m.wb.Rows()); n > 0 {
			m.row = (m.row + 1) % n
		}
	case "d":
		m.err = m.wb.Reverse(m.row)
		if m.err == nil {
			m.busy = true
			return m, m.integrate()
		}
	case "c":
		m.err = m.wb.Continue(m.row)
		if m.err == nil {
			m.busy = true
			return m, m.integrate()
		}
	case "i":
		m.busy = true
		return m, m.integrate()
	}
	return m, nil
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateEdit:
		return m.viewEdit()
	case statePhase:
		return m.viewPhase()
	}
	return ""
}

func (m model) footer(help string) string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString("\n      " + red.Render(m.err.Error()) + "\n")
	} else if m.status != "" {
		b.WriteString("\n      " + green.Render(m.status) + "\n")
	}
	b.WriteString("\n" + dim.Render("      "+help) + "\n")
	return b.String()
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("           " + cyan.Render("p h a s e s p a c e") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, name := range m.names {
		desc := ""
		if def, err := m.opts.Registry.Get(name); err == nil {
			desc = def.Description
		}
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-14s", name)) + dim.Render(desc) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-14s", name)) + dimmer.Render(desc) + "\n")
		}
	}

	b.WriteString(m.footer("↑↓ select   enter open   q quit"))
	return b.String()
}

func (m model) viewEdit() string {
	var b strings.Builder
	def := m.wb.Definition()

	b.WriteString("\n")
	b.WriteString("      " + cyan.Render(def.Name) + "  " + dim.Render(def.Description) + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 40)) + "\n")

	rows := m.wb.Rows()
	var tabs []string
	for i, r := range rows {
		label := fmt.Sprintf("%s %s", r.Name, r.Direction())
		if !r.Show {
			label += " (hidden)"
		}
		if i == m.row {
			tabs = append(tabs, magenta.Render("["+label+"]"))
		} else {
			tabs = append(tabs, dim.Render(" "+label+" "))
		}
	}
	b.WriteString("      " + strings.Join(tabs, " ") + "\n\n")

	nParams := len(def.ParameterNames)
	for i, f := range m.fields() {
		if i == nParams {
			b.WriteString(dimmer.Render("      "+strings.Repeat("·", 20)) + "\n")
		}
		val := fmt.Sprintf("%10.4g", f.get())
		if m.editing && i == m.fieldIdx {
			val = fmt.Sprintf("%10s", m.editBuf+"▋")
		}
		if i == m.fieldIdx {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-10s", f.label)) + magenta.Render(val) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-10s", f.label)) + dim.Render(val) + "\n")
		}
	}

	b.WriteString(m.footer("↑↓ field  ←→ adjust  enter edit  tab row  a add  x drop  v show  r reverse  i integrate  esc back"))
	return b.String()
}

func axisName(names []string, idx int) string {
	if idx == len(names) {
		return config.TimeAxis
	}
	return names[idx]
}

func (m model) viewPhase() string {
	def := m.wb.Definition()
	cw := max(m.width-8, 40)
	ch := max(m.height-12, 12)

	var b strings.Builder
	xName, yName := axisName(def.VariableNames, m.xIdx), axisName(def.VariableNames, m.yIdx)
	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n\n",
		green.Render("●"), cyan.Render(def.Name), dim.Render(fmt.Sprintf("%s vs %s", yName, xName))))

	if m.series {
		b.WriteString(m.viewSeries(cw, ch))
	} else {
		series := m.wb.Series(true)
		if m.section {
			series = m.sections()
		}
		portrait := analysis.PhasePortraitASCII(series, m.xIdx, m.yIdx, cw, ch)
		if portrait == "" {
			b.WriteString("   " + yellow.Render("nothing to draw") + "\n")
		}
		for _, line := range strings.Split(strings.TrimRight(portrait, "\n"), "\n") {
			b.WriteString("   " + line + "\n")
		}
		b.WriteString("\n   ")
		for i, s := range series {
			b.WriteString(cyan.Render(string(analysis.Glyph(i))) + " " + dim.Render(s.Name) + "  ")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.footer("x/y axis  t series  p section  tab row  d reverse  c continue  i integrate  e edit  q quit"))
	return b.String()
}

func (m model) sections() []analysis.Series {
	var out []analysis.Series
	for _, r := range m.wb.Rows() {
		if !r.Show {
			continue
		}
		events, err := r.Processor.Events()
		if err != nil {
			continue
		}
		s := analysis.PoincareSection(events)
		s.Name = r.Name
		out = append(out, s)
	}
	return out
}

// viewSeries plots the y-axis variable of the current row against time.
func (m model) viewSeries(w, h int) string {
	r, err := m.wb.Row(m.row)
	if err != nil {
		return ""
	}
	full, err := r.Processor.Full()
	if err != nil || m.yIdx >= m.wb.Definition().Dim() {
		return "   " + yellow.Render("no series for this axis") + "\n"
	}
	data := make([]float64, len(full))
	for i, s := range full {
		data[i] = s.X[m.yIdx]
	}
	graph := asciigraph.Plot(data,
		asciigraph.Height(h),
		asciigraph.Width(w),
		asciigraph.Caption(fmt.Sprintf("%s %s over t", r.Name, m.wb.Definition().VariableNames[m.yIdx])),
	)
	return graph + "\n"
}

// RunExplorer starts the interactive explorer.
func RunExplorer(opts Options) error {
	p := tea.NewProgram(newModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
