package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.renderLoading()
	}

	sections := []string{m.renderHeader()}

	switch m.state {
	case StateTags:
		sections = append(sections, m.renderTagPicker())
	default:
		sections = append(sections, m.table.View())
	}

	if m.state == StateSearch || m.state == StateNote {
		sections = append(sections, m.input.View())
	} else {
		sections = append(sections, m.renderStatus())
	}

	sections = append(sections, m.help.View(m.keymap))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderLoading() string {
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		m.theme.Title.Render("🏠 Loading transactions..."),
	)
}

// renderHeader shows the title and the active listing options.
func (m Model) renderHeader() string {
	order := "newest first"
	if m.query.Ascending {
		order = "ascending"
	} else if m.query.SortBy != "" && m.query.SortBy != "date" {
		order = "descending"
	}

	parts := []string{fmt.Sprintf("%d transactions", len(m.transactions)), "sorted by " + string(m.query.SortBy) + ", " + order}
	if m.query.SearchText != "" {
		parts = append(parts, fmt.Sprintf("%s contains %q", m.searchColumn(), m.query.SearchText))
	}
	if m.query.Tag != "" {
		parts = append(parts, "tag "+m.query.Tag)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("🏠 House Money"),
		m.theme.Subtitle.Render(strings.Join(parts, " · ")),
	)
}

// renderTagPicker lists every tag with a checkbox for the edited transaction.
func (m Model) renderTagPicker() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tags for transaction %d\n\n", m.editingID)
	for i, tag := range m.tags {
		box := "[ ]"
		if m.tagSelected[tag.ID] {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s", box, tag.Name)
		if i == m.tagCursor {
			line = m.theme.Selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		if i < len(m.tags)-1 {
			b.WriteString("\n")
		}
	}
	return m.theme.RoundedBox.Render(b.String())
}

func (m Model) renderStatus() string {
	switch {
	case m.lastError != nil:
		return m.theme.StatusError.Render("✗ " + m.lastError.Error())
	case m.status != "":
		return m.theme.StatusSuccess.Render("✓ " + m.status)
	case len(m.transactions) == 0:
		return m.theme.StatusInfo.Render("No transactions match")
	default:
		return ""
	}
}
