// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/tunnelmaster/internal/i18n"
	"github.com/toeirei/tunnelmaster/internal/surface"
)

// formDoneMsg carries the outcome of one form submission.
type formDoneMsg struct {
	form   string
	ticket surface.Ticket
	err    error
	label  string
}

// form renders a surface.Surface as a column of text inputs. The surface
// owns the draft and the Closed/Editing/Submitting state; the inputs are
// only a view of it.
type form[D any] struct {
	name      string
	surface   *surface.Surface[D]
	keys      []string
	inputs    []textinput.Model
	focus     int
	title     string
	submit    func(context.Context, D) error
	label     func(D) string
	successID string
	inputErr  error // inputs that could not be copied into the draft
}

func newForm[D any](name string, keys []string, submit func(context.Context, D) error, label func(D) string) *form[D] {
	return &form[D]{
		name:    name,
		surface: surface.New[D](),
		keys:    keys,
		submit:  submit,
		label:   label,
	}
}

// Open starts editing seed (nil for a blank draft).
func (f *form[D]) Open(title, successID string, seed *D) tea.Cmd {
	f.surface.Open(seed)
	f.title, f.successID, f.inputErr = title, successID, nil
	values, _ := f.surface.Fields()
	f.inputs = make([]textinput.Model, len(f.keys))
	for i, k := range f.keys {
		t := textinput.New()
		t.Cursor.Style = focusedStyle
		t.CharLimit = 253
		t.Width = 40
		t.Prompt = labelStyle.Render(i18n.T("field."+k)) + " "
		if v, ok := values[k]; ok && v != nil {
			t.SetValue(fmt.Sprint(v))
		}
		f.inputs[i] = t
	}
	f.focus = 0
	return f.setFocus(0)
}

// Active reports whether the form is shown.
func (f *form[D]) Active() bool { return f.surface.State() != surface.Closed }

// Close discards the draft. A submission in flight finishes unobserved.
func (f *form[D]) Close() { f.surface.Close() }

func (f *form[D]) setFocus(i int) tea.Cmd {
	n := len(f.inputs)
	f.focus = ((i % n) + n) % n
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == f.focus {
			cmd = f.inputs[j].Focus()
			f.inputs[j].TextStyle = focusedStyle
			continue
		}
		f.inputs[j].Blur()
		f.inputs[j].TextStyle = lipgloss.NewStyle()
	}
	return cmd
}

func (f *form[D]) Update(ctx context.Context, msg tea.KeyMsg) tea.Cmd {
	if f.surface.State() == surface.Submitting {
		if msg.String() == "esc" {
			f.Close()
		}
		return nil
	}
	switch msg.String() {
	case "esc":
		f.Close()
		return nil
	case "tab", "down":
		return f.setFocus(f.focus + 1)
	case "shift+tab", "up":
		return f.setFocus(f.focus - 1)
	case "enter":
		return f.begin(ctx)
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// begin copies the inputs into the draft and validates it. An invalid draft
// stays in the form and nothing is sent.
func (f *form[D]) begin(ctx context.Context) tea.Cmd {
	values := make(map[string]any, len(f.keys))
	for i, k := range f.keys {
		values[k] = strings.TrimSpace(f.inputs[i].Value())
	}
	if f.inputErr = f.surface.Set(values); f.inputErr != nil {
		return nil
	}
	draft, ticket, err := f.surface.Begin()
	if err != nil {
		return nil
	}
	name, submit, label := f.name, f.submit, f.label(draft)
	return func() tea.Msg {
		return formDoneMsg{form: name, ticket: ticket, err: submit(ctx, draft), label: label}
	}
}

// Finish applies a submission outcome. It reports false for outcomes of a
// session that was closed or reopened meanwhile.
func (f *form[D]) Finish(msg formDoneMsg, err error) bool {
	return f.surface.Finish(msg.ticket, err)
}

func (f *form[D]) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.title))
	b.WriteString("\n\n")
	errs := f.surface.FieldErrors()
	for i, k := range f.keys {
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n")
		if msg, ok := errs[k]; ok {
			b.WriteString(errorStyle.Render("  " + msg))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	switch {
	case f.surface.State() == surface.Submitting:
		b.WriteString(specialStyle.Render(i18n.T("app.submitting")))
	case f.inputErr != nil:
		b.WriteString(errorStyle.Render(i18n.T("notify.failed", errText(f.inputErr))))
	case len(errs) > 0:
		b.WriteString(errorStyle.Render(i18n.T("validation.summary")))
	case f.surface.Err() != nil:
		b.WriteString(errorStyle.Render(i18n.T("notify.failed", errText(f.surface.Err()))))
	default:
		b.WriteString(helpStyle.Render(i18n.T("app.help_form")))
	}
	return dialogBoxStyle.Render(b.String())
}
