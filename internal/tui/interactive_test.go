package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/phasespace/internal/physics"
)

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(model)
	// run integration commands synchronously
	if cmd != nil {
		if out := cmd(); out != nil {
			if res, ok := out.(integratedMsg); ok {
				next, _ = m.Update(res)
				m = next.(model)
			}
		}
	}
	return m
}

func TestExplorer_MenuToPhase(t *testing.T) {
	m := newModel(Options{})
	if m.state != stateMenu {
		t.Fatalf("expected menu, got %v", m.state)
	}
	if !strings.Contains(m.View(), "pendulum") {
		t.Error("menu should list pendulum")
	}

	for i, name := range m.names {
		if name == "pendulum" {
			m.cursor = i
		}
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != stateEdit {
		t.Fatalf("expected edit screen, got %v", m.state)
	}
	if !strings.Contains(m.View(), "t_end") {
		t.Error("edit screen should show span fields")
	}

	m = send(t, m, keys("i"))
	if m.state != statePhase {
		t.Fatalf("expected phase screen, got %v", m.state)
	}
	if m.err != nil {
		t.Fatalf("integration failed: %v", m.err)
	}
	if len(m.wb.Series(true)) != 1 {
		t.Errorf("expected one series, got %d", len(m.wb.Series(true)))
	}
	if m.View() == "" {
		t.Error("empty phase view")
	}

	// cycle x onto the time axis
	dim := m.wb.Definition().Dim()
	for m.xIdx != dim {
		m = send(t, m, keys("x"))
	}
	if !strings.Contains(m.View(), "vs t") {
		t.Error("expected time on the x axis")
	}

	m = send(t, m, keys("t"))
	if !m.series {
		t.Error("expected series view")
	}
	_ = m.View()
}

func TestExplorer_EditFields(t *testing.T) {
	def, err := physics.Default.Get("pendulum")
	if err != nil {
		t.Fatal(err)
	}
	m := newModel(Options{Definition: def})
	if m.state != stateEdit {
		t.Fatalf("expected edit screen, got %v", m.state)
	}

	// first field is g
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.editing {
		t.Fatal("expected editing mode")
	}
	m.editBuf = ""
	for _, r := range "1.5" {
		m = send(t, m, keys(string(r)))
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.wb.Params()[0]; got != 1.5 {
		t.Errorf("expected g=1.5, got %g", got)
	}

	m = send(t, m, keys("a"))
	if len(m.wb.Rows()) != 2 || m.row != 1 {
		t.Errorf("expected a second row, got %d rows (current %d)", len(m.wb.Rows()), m.row)
	}
	m = send(t, m, keys("r"))
	row, _ := m.wb.Row(1)
	if row.Span.End >= row.Span.Start {
		t.Error("expected reversed span")
	}

	m = send(t, m, keys("x"))
	if len(m.wb.Rows()) != 1 {
		t.Errorf("expected row removed, got %d", len(m.wb.Rows()))
	}

	// quitting with a preloaded system exits the program
	_, cmd := m.Update(keys("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
