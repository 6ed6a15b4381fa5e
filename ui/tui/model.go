// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/tunnelmaster/internal/api"
	"github.com/toeirei/tunnelmaster/internal/core"
	"github.com/toeirei/tunnelmaster/internal/i18n"
	"github.com/toeirei/tunnelmaster/internal/model"
	"github.com/toeirei/tunnelmaster/internal/store"
)

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

type view int

const (
	viewTunnels view = iota
	viewRoutes
)

const (
	formTunnel = "tunnel"
	formRoute  = "route"
)

type (
	tunnelsLoadedMsg struct{ err error }
	routesLoadedMsg  struct {
		tunnelID string
		err      error
	}
	// actionDoneMsg is the outcome of a delete or rotate.
	actionDoneMsg struct {
		successID string
		label     string
		err       error
	}
	tokenCopiedMsg struct {
		label     string
		err       error
		clipboard bool // err came from the clipboard, not the server
	}
)

type notice struct {
	text string
	err  bool
}

type confirmation struct {
	prompt string
	action tea.Cmd
}

// Model is the root bubbletea model: a tunnel table, the route table of the
// selected tunnel, the create/edit forms and a one-line notice.
type Model struct {
	ctx     context.Context
	console *core.Console

	view     view
	tunnels  table.Model
	routes   table.Model
	tunnelID string // tunnel whose routes are shown

	tunnelForm *form[model.TunnelDraft]
	routeForm  *form[model.RouteDraft]
	confirm    *confirmation
	notice     notice
	loading    bool

	width, height int
}

// New builds the root model. Nothing is fetched until Init runs.
func New(ctx context.Context, c *core.Console) Model {
	m := Model{
		ctx:     ctx,
		console: c,
		tunnels: newTable([]table.Column{
			{Title: "ID", Width: 12},
			{Title: "NAME", Width: 24},
			{Title: "STATUS", Width: 11},
			{Title: "LAST SEEN", Width: 20},
		}),
		routes: newTable([]table.Column{
			{Title: "ID", Width: 12},
			{Title: "PROTOCOL", Width: 8},
			{Title: "HOSTNAME", Width: 28},
			{Title: "PREFIX", Width: 12},
			{Title: "TARGET", Width: 22},
		}),
		loading: true,
	}
	m.tunnelForm = newForm(formTunnel, []string{"name"}, c.SaveTunnel,
		func(d model.TunnelDraft) string { return d.Name })
	m.routeForm = newForm(formRoute, []string{"tunnel_id", "hostname", "prefix", "target", "protocol"}, c.SaveRoute,
		func(d model.RouteDraft) string { return d.Hostname + d.Prefix })
	return m
}

func newTable(cols []table.Column) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	t.SetStyles(tableStyles())
	return t
}

func (m Model) Init() tea.Cmd {
	return m.refreshTunnels()
}

func (m Model) refreshTunnels() tea.Cmd {
	ctx, c := m.ctx, m.console
	return func() tea.Msg {
		return tunnelsLoadedMsg{err: c.Tunnels.Refresh(ctx)}
	}
}

func (m Model) openRoutes(tunnelID string) tea.Cmd {
	ctx, c := m.ctx, m.console
	return func() tea.Msg {
		_, err := c.OpenRoutes(ctx, tunnelID)
		return routesLoadedMsg{tunnelID: tunnelID, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := max(msg.Height-10, 3)
		m.tunnels.SetHeight(h)
		m.routes.SetHeight(h)
		return m, nil

	case tunnelsLoadedMsg:
		m.loading = false
		if msg.err != nil && !errors.Is(msg.err, store.ErrSuperseded) {
			m.notice = failure(msg.err)
		}
		m.syncTunnels()
		return m, nil

	case routesLoadedMsg:
		if msg.err != nil && !errors.Is(msg.err, store.ErrSuperseded) {
			m.notice = failure(msg.err)
		}
		if msg.tunnelID == m.tunnelID {
			m.syncRoutes()
		}
		return m, nil

	case formDoneMsg:
		return m.finishForm(msg)

	case actionDoneMsg:
		m.notice = outcome(msg.err, msg.successID, msg.label)
		m.syncTunnels()
		m.syncRoutes()
		return m, nil

	case tokenCopiedMsg:
		switch {
		case msg.err == nil:
			m.notice = notice{text: i18n.T("notify.token_copied", msg.label)}
		case msg.clipboard:
			m.notice = notice{text: i18n.T("notify.clipboard_failed", msg.err), err: true}
		default:
			m.notice = failure(msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// finishForm hands a submission outcome to its form. Outcomes of a form
// session the user already left are dropped; the stores were refreshed by
// the console either way.
func (m Model) finishForm(msg formDoneMsg) (tea.Model, tea.Cmd) {
	// the mutation landed even if the refresh after it failed
	finishErr := msg.err
	if core.IsResync(msg.err) {
		finishErr = nil
	}
	var applied bool
	var successID string
	switch msg.form {
	case formTunnel:
		successID = m.tunnelForm.successID
		applied = m.tunnelForm.Finish(msg, finishErr)
	case formRoute:
		successID = m.routeForm.successID
		applied = m.routeForm.Finish(msg, finishErr)
	}
	m.syncTunnels()
	m.syncRoutes()
	if !applied {
		return m, nil
	}
	if finishErr == nil {
		m.notice = outcome(msg.err, successID, msg.label)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.tunnelForm.Active() {
		return m, m.tunnelForm.Update(m.ctx, msg)
	}
	if m.routeForm.Active() {
		return m, m.routeForm.Update(m.ctx, msg)
	}
	if m.confirm != nil {
		action := m.confirm.action
		m.confirm = nil
		if s := msg.String(); s == "y" || s == "j" {
			return m, action
		}
		return m, nil
	}
	if m.view == viewRoutes {
		return m.handleRoutesKey(msg)
	}
	return m.handleTunnelsKey(msg)
}

func (m Model) handleTunnelsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sel, ok := m.selectedTunnel()
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "g":
		return m, m.refreshTunnels()
	case "n":
		m.notice = notice{}
		return m, m.tunnelForm.Open(i18n.T("app.new_tunnel"), "notify.tunnel_created", nil)
	case "e":
		if !ok {
			return m, nil
		}
		m.notice = notice{}
		d := model.DraftFromTunnel(sel)
		return m, m.tunnelForm.Open(i18n.T("app.edit_tunnel"), "notify.tunnel_updated", &d)
	case "d":
		if !ok {
			return m, nil
		}
		ctx, c := m.ctx, m.console
		m.confirm = &confirmation{
			prompt: i18n.T("app.confirm_delete", sel.Name),
			action: func() tea.Msg {
				return actionDoneMsg{successID: "notify.tunnel_deleted", label: sel.Name, err: c.DeleteTunnel(ctx, sel.ID)}
			},
		}
		return m, nil
	case "r":
		if !ok {
			return m, nil
		}
		ctx, c := m.ctx, m.console
		return m, func() tea.Msg {
			return actionDoneMsg{successID: "notify.token_rotated", label: sel.Name, err: c.RotateToken(ctx, sel.ID)}
		}
	case "c":
		if !ok {
			return m, nil
		}
		return m, m.copyToken(sel)
	case "enter":
		if !ok {
			return m, nil
		}
		m.view, m.tunnelID = viewRoutes, sel.ID
		m.routes.SetRows(nil)
		return m, m.openRoutes(sel.ID)
	}
	var cmd tea.Cmd
	m.tunnels, cmd = m.tunnels.Update(msg)
	return m, cmd
}

func (m Model) handleRoutesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sel, ok := m.selectedRoute()
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewTunnels
		return m, nil
	case "g":
		return m, m.openRoutes(m.tunnelID)
	case "n":
		m.notice = notice{}
		seed := model.RouteDraft{TunnelID: m.tunnelID, Protocol: model.ProtocolHTTP}
		return m, m.routeForm.Open(i18n.T("app.new_route"), "notify.route_created", &seed)
	case "e":
		if !ok {
			return m, nil
		}
		m.notice = notice{}
		d := model.DraftFromRoute(sel)
		return m, m.routeForm.Open(i18n.T("app.edit_route"), "notify.route_updated", &d)
	case "d":
		if !ok {
			return m, nil
		}
		ctx, c := m.ctx, m.console
		label := sel.Hostname + sel.Prefix
		m.confirm = &confirmation{
			prompt: i18n.T("app.confirm_delete", label),
			action: func() tea.Msg {
				return actionDoneMsg{successID: "notify.route_deleted", label: label, err: c.DeleteRoute(ctx, sel.ID)}
			},
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.routes, cmd = m.routes.Update(msg)
	return m, cmd
}

// copyToken reveals the token and puts it on the clipboard. The secret is
// zeroed afterwards and never reaches the model.
func (m Model) copyToken(t model.Tunnel) tea.Cmd {
	ctx, c := m.ctx, m.console
	return func() tea.Msg {
		tok, err := c.RevealToken(ctx, t.ID)
		if err != nil {
			return tokenCopiedMsg{label: t.Name, err: err}
		}
		defer tok.Zero()
		if err := tok.Use(func(b []byte) error { return writeClipboard(string(b)) }); err != nil {
			return tokenCopiedMsg{label: t.Name, err: err, clipboard: true}
		}
		return tokenCopiedMsg{label: t.Name}
	}
}

func (m Model) selectedTunnel() (model.Tunnel, bool) {
	row := m.tunnels.SelectedRow()
	if row == nil {
		return model.Tunnel{}, false
	}
	return m.console.Tunnels.Get(row[0])
}

func (m Model) selectedRoute() (model.Route, bool) {
	row := m.routes.SelectedRow()
	if row == nil || m.tunnelID == "" {
		return model.Route{}, false
	}
	return m.console.RoutesFor(m.tunnelID).Get(row[0])
}

// syncTunnels rebuilds the tunnel rows from the store.
func (m *Model) syncTunnels() {
	list := m.console.Tunnels.List()
	rows := make([]table.Row, 0, len(list))
	for _, t := range list {
		rows = append(rows, table.Row{t.ID, t.Name, statusBadge(t.Status), lastSeen(t)})
	}
	m.tunnels.SetRows(rows)
	if m.tunnels.Cursor() >= len(rows) {
		m.tunnels.SetCursor(max(len(rows)-1, 0))
	}
}

// syncRoutes rebuilds the route rows of the open tunnel from its store.
func (m *Model) syncRoutes() {
	if m.tunnelID == "" {
		return
	}
	list := m.console.RoutesFor(m.tunnelID).List()
	rows := make([]table.Row, 0, len(list))
	for _, r := range list {
		rows = append(rows, table.Row{r.ID, string(r.Protocol), r.Hostname, r.Prefix, r.Target})
	}
	m.routes.SetRows(rows)
	if m.routes.Cursor() >= len(rows) {
		m.routes.SetCursor(max(len(rows)-1, 0))
	}
}

func lastSeen(t model.Tunnel) string {
	ts, ok := t.LastSeen()
	if !ok {
		return i18n.T("app.never")
	}
	return ts.Local().Format(time.DateTime)
}

// outcome turns the result of a mutation into a notice.
func outcome(err error, successID, label string) notice {
	switch {
	case err == nil:
		return notice{text: i18n.T(successID, label)}
	case core.IsResync(err):
		return notice{text: i18n.T(successID, label) + " " + i18n.T("notify.resync_failed", errText(err)), err: true}
	default:
		return failure(err)
	}
}

func failure(err error) notice {
	return notice{text: i18n.T("notify.failed", errText(err)), err: true}
}

func errText(err error) string {
	var re *core.ResyncError
	if errors.As(err, &re) {
		err = re.Err
	}
	return api.Message(err)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(i18n.T("app.title")))
	if m.view == viewRoutes {
		t, _ := m.console.Tunnels.Get(m.tunnelID)
		b.WriteString(helpStyle.Render(" › " + t.Name))
	}
	b.WriteString("\n\n")

	switch {
	case m.tunnelForm.Active():
		b.WriteString(m.tunnelForm.View())
	case m.routeForm.Active():
		b.WriteString(m.routeForm.View())
	case m.loading:
		b.WriteString(helpStyle.Render(i18n.T("app.loading")))
	case m.view == viewRoutes:
		b.WriteString(m.routes.View())
	default:
		b.WriteString(m.tunnels.View())
	}
	b.WriteString("\n\n")

	switch {
	case m.confirm != nil:
		b.WriteString(specialStyle.Render(m.confirm.prompt))
	case m.notice.text != "" && m.notice.err:
		b.WriteString(errorStyle.Render(m.notice.text))
	case m.notice.text != "":
		b.WriteString(successStyle.Render(m.notice.text))
	}
	b.WriteString("\n")

	if !m.tunnelForm.Active() && !m.routeForm.Active() {
		help := "app.help_tunnels"
		if m.view == viewRoutes {
			help = "app.help_routes"
		}
		b.WriteString(helpStyle.Render(i18n.T(help)))
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, b.String()))
}
