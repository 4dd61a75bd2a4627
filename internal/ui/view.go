package ui

import (
	"strings"

	"github.com/atomicstack/save-cloud/internal/explorer"
	"github.com/atomicstack/save-cloud/internal/format/table"
	"github.com/atomicstack/save-cloud/internal/overlay"
	"github.com/atomicstack/save-cloud/internal/panel"
	"github.com/atomicstack/save-cloud/internal/saves"
	uistate "github.com/atomicstack/save-cloud/internal/ui/state"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

const (
	defaultWidth  = 80
	panelChrome   = 2 // left and right border
	headerDivider = " › "
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	sections := []string{styles.Header.Render(truncateText(m.header(), width))}
	switch m.screen {
	case ScreenSaves:
		sections = append(sections, m.viewSaves(width))
	default:
		sections = append(sections, m.viewExplorer(width))
	}
	if m.form != nil {
		sections = append(sections, m.viewForm(width-4))
	}
	sections = append(sections, m.statusLines(width)...)
	if m.showFooter {
		sections = append(sections, styles.Footer.Render(truncateText(m.footer(), width)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) header() string {
	segments := []string{"save-cloud", m.screen.String()}
	if m.screen == ScreenSaves && m.titles != nil {
		if menu := m.titles.Menu(); menu != nil {
			segments = append(segments, menu.Title().Label())
		}
	}
	if m.session != nil {
		if profile := m.session.Profile(); profile != "" && m.session.Authenticated() {
			segments = append(segments, "cloud: "+profile)
		}
	}
	return strings.Join(segments, headerDivider)
}

func (m *Model) footer() string {
	switch {
	case m.screen == ScreenSaves && m.titles != nil && m.titles.Menu() != nil:
		return "←/→ tab • enter backup • s restore • m delete • space transfer • esc close"
	case m.screen == ScreenSaves:
		return "enter open • / jump • tab files • q quit"
	default:
		return "←/→ focus • enter open • esc up • m menu • s cloud • o sign out • / jump • tab saves • q quit"
	}
}

// statusLines renders the loading overlay and the toast.
func (m *Model) statusLines(width int) []string {
	var lines []string
	if title, desc, open := overlay.Loading().Snapshot(); open {
		text := m.spinner.View() + " " + title
		if desc != "" {
			text += ": " + desc
		}
		lines = append(lines, styles.Loading.Render(truncateText(text, width)))
	}
	if text, ok := overlay.Shared().Text(); ok {
		lines = append(lines, styles.Toast.Render(truncateText(text, width-2)))
	}
	return lines
}

func (m *Model) viewExplorer(width int) string {
	e := m.explorer
	if e == nil {
		return styles.Info.Render("(file manager unavailable)")
	}
	col := width/2 - panelChrome
	if col < 8 {
		col = 8
	}
	left := m.renderPanel(e, explorer.LocalLeft, col)
	right := m.renderPanel(e, e.Right(), col)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	if menu := e.Menu(); menu.IsOpen() {
		items := menu.Items()
		labels := make([]string, len(items))
		for i, item := range items {
			labels[i] = item.Label
		}
		lines := append([]string{styles.Header.Render("Actions")}, renderList(labels, menu.List, true, width-4)...)
		body = lipgloss.JoinVertical(lipgloss.Left, body, styles.Menu.Render(strings.Join(lines, "\n")))
	}
	return body
}

func (m *Model) renderPanel(e *explorer.Explorer, idx, width int) string {
	p := e.Panel(idx)
	focused := e.Active() == idx
	title := panelTitle(p, idx)
	lines := []string{styles.Header.Render(truncateText(title, width))}
	switch {
	case idx == explorer.CloudRight && m.session != nil && !m.session.Authenticated():
		lines = append(lines, m.loginLines(width)...)
	case p.Current() == nil || (p.IsPending() && p.Current().Len() == 0):
		lines = append(lines, styles.Loading.Render(m.spinner.View()+" loading"))
	default:
		lines = append(lines, renderDir(p.Current(), focused, width)...)
		if p.IsPending() {
			lines = append(lines, styles.Loading.Render(m.spinner.View()+" loading"))
		}
	}
	style := styles.Panel
	if focused {
		style = styles.ActivePanel
	}
	return style.Copy().Width(width).Render(strings.Join(lines, "\n"))
}

func panelTitle(p *panel.Panel, idx int) string {
	path := p.Path()
	switch {
	case path != "":
		return path
	case idx == explorer.CloudRight:
		return "cloud"
	default:
		return "devices"
	}
}

func renderDir(dir *uistate.Dir, focused bool, width int) []string {
	if dir.Len() == 0 {
		return []string{styles.Info.Render("(empty)")}
	}
	labels := make([]string, dir.Len())
	for i, item := range dir.Items {
		labels[i] = item.Name
		if item.IsDir {
			labels[i] += "/"
		}
	}
	return renderList(labels, dir.List, focused, width)
}

// renderList draws the visible window of labels with the cursor row
// highlighted. An unfocused list keeps a dimmer cursor.
func renderList(labels []string, list uistate.ListState, focused bool, width int) []string {
	start, end := list.Window(len(labels))
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		text := truncateText(labels[i], width)
		style := styles.Item
		if i == list.Selected {
			style = styles.InactiveCursor
			if focused {
				style = styles.SelectedItem
			}
		}
		lines = append(lines, style.Render(text))
	}
	return lines
}

// loginLines shows the device-code sign-in while the cloud is not connected.
func (m *Model) loginLines(width int) []string {
	if m.session.Stalled() {
		return []string{styles.Error.Render(truncateText("cloud sign-in failed; reopen to retry", width))}
	}
	auth, ok := m.session.Pending()
	if !ok {
		return []string{styles.Loading.Render(m.spinner.View() + " connecting")}
	}
	lines := []string{
		styles.Info.Render(truncateText("open "+auth.VerificationURL, width)),
		styles.Info.Render(truncateText("code: "+auth.UserCode, width)),
	}
	if qr := m.session.QR(); qr != "" && lipgloss.Width(qr) <= width {
		lines = append(lines, styles.QR.Render(qr))
	}
	return append(lines, styles.Footer.Render(truncateText("c: copy link", width)))
}

func (m *Model) viewSaves(width int) string {
	t := m.titles
	if t == nil {
		return styles.Info.Render("(save browser unavailable)")
	}
	if menu := t.Menu(); menu != nil {
		return m.viewSaveMenu(menu, width)
	}
	entries := t.Entries()
	if len(entries) == 0 {
		return styles.Info.Render("(no saves found)")
	}
	rows := make([][]string, len(entries))
	for i, title := range entries {
		rows[i] = []string{title.Name, title.ID}
	}
	return strings.Join(renderList(table.FormatWidth(rows, nil, width), t.Cursor(), true, width), "\n")
}

func (m *Model) viewSaveMenu(menu *saves.Menu, width int) string {
	tabs := []string{renderTab("Local", menu.Tab() == saves.TabLocal)}
	if menu.Cloud() != nil {
		tabs = append(tabs, renderTab("Cloud", menu.Tab() == saves.TabCloud))
	}
	lines := []string{lipgloss.JoinHorizontal(lipgloss.Top, tabs...)}

	if menu.Tab() == saves.TabCloud {
		c := menu.Cloud()
		if m.session != nil && !m.session.Authenticated() {
			lines = append(lines, m.loginLines(width)...)
			return strings.Join(lines, "\n")
		}
		lines = append(lines, renderRows(c.Rows(), c.Cursor(), width)...)
		if c.Loading() {
			lines = append(lines, styles.Loading.Render(m.spinner.View()+" loading"))
		}
		return strings.Join(lines, "\n")
	}
	l := menu.Local()
	lines = append(lines, renderRows(l.Rows(), l.Cursor(), width)...)
	return strings.Join(lines, "\n")
}

func renderTab(label string, active bool) string {
	if active {
		return styles.ActiveTab.Render(label)
	}
	return styles.Tab.Render(label)
}

func renderRows(rows []saves.Row, list uistate.ListState, width int) []string {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = []string{row.Label, row.Detail}
	}
	return renderList(table.FormatWidth(cells, []table.Alignment{table.AlignLeft, table.AlignRight}, width), list, true, width)
}

// truncateText cuts text to width cells, ending in "…".
func truncateText(text string, width int) string {
	if width <= 0 || lipgloss.Width(text) <= width {
		return text
	}
	if width == 1 {
		return "…"
	}
	return truncate.StringWithTail(text, uint(width), "…")
}

