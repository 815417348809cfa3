package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/timmy/rawgdex/internal/domain"
	"github.com/timmy/rawgdex/internal/rawg"
)

// View renders the browser.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteByte('\n')
	b.WriteString(m.renderFilterLine())
	b.WriteByte('\n')

	if m.mode == modeDetail {
		b.WriteString(m.renderDetailPane())
	} else {
		b.WriteString(m.renderList())
	}
	b.WriteByte('\n')
	b.WriteString(m.renderStatus())
	b.WriteByte('\n')
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m *Model) renderTabs() string {
	parts := []string{appNameStyle.Render("rawgdex")}
	for i, t := range m.tabs {
		style := tabStyle
		if i == m.active {
			style = activeTabStyle
		}
		parts = append(parts, style.Render(t.desc.Title))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderFilterLine() string {
	t := m.current()
	switch {
	case t.honors("query"):
		if m.search.Focused() {
			return m.search.View()
		}
		if q := t.list.Filter().Query; q != "" {
			return filterStyle.Render(fmt.Sprintf("Results for %q (/ to edit)", q))
		}
		return filterStyle.Render("Press / to search")
	case t.honors("genre"):
		return filterStyle.Render("Genre: " + m.genreName(t.list.Filter().Genre.ID) + " (f/F to change)")
	default:
		return filterStyle.Render(t.desc.Title)
	}
}

func (m *Model) genreName(id int) string {
	if id == 0 {
		return "All"
	}
	for _, g := range m.genres {
		if g.ID == id {
			return g.Name
		}
	}
	return "#" + strconv.Itoa(id)
}

func (m *Model) renderList() string {
	t := m.current()
	rows := m.rows()
	n := t.list.Len()

	lines := make([]string, 0, rows)
	switch {
	case n == 0 && t.list.Loading():
		lines = append(lines, m.spinner.View()+" Loading…")
	case n == 0 && t.list.Err() == nil:
		if t.honors("query") && t.list.Filter().Query == "" {
			lines = append(lines, dimStyle.Render("Type a game name to search RAWG."))
		} else {
			lines = append(lines, dimStyle.Render("No games found."))
		}
	}

	for i := t.offset; i < n && len(lines) < rows; i++ {
		game, _ := t.list.Item(i)
		lines = append(lines, m.renderGame(game, i == t.cursor))
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderGame(g rawg.GameSummary, selected bool) string {
	released := g.Released
	if released == "" {
		released = "TBA"
	}
	meta := fmt.Sprintf("%-10s %s", released, ratingStyle.Render(fmt.Sprintf("★ %.1f", g.Rating)))
	platforms := strings.Join(g.PlatformNames(), ", ")

	nameWidth := max(m.width-lipgloss.Width(meta)-6, 10)
	name := truncate(g.Name, nameWidth)

	prefix, style := "  ", itemStyle
	if selected {
		prefix, style = "> ", selectedStyle
	}
	line := prefix + style.Render(fmt.Sprintf("%-*s", nameWidth, name)) + "  " + meta
	if platforms != "" && lipgloss.Width(line)+3 < m.width {
		line += "  " + dimStyle.Render(truncate(platforms, m.width-lipgloss.Width(line)-3))
	}
	return line
}

func (m *Model) renderStatus() string {
	t := m.current()
	if m.mode == modeDetail {
		switch {
		case m.detailLoading:
			return m.spinner.View() + " Loading " + m.detailName + "…"
		case m.detailErr != "":
			return errorStyle.Render(m.detailErr + " (r to retry, esc to go back)")
		}
		return dimStyle.Render("esc to go back")
	}

	switch {
	case t.list.Len() > 0 && t.list.Loading():
		return m.spinner.View() + " Loading more…"
	case t.list.Err() != nil:
		return errorStyle.Render(rawg.UserMessage(t.list.Err()) + " (r to retry)")
	}
	status := fmt.Sprintf("%d games", t.list.Len())
	if t.list.Snapshot().HasMore {
		status += " · more below"
	}
	return dimStyle.Render(status)
}

func (m *Model) renderDetailPane() string {
	if m.detail == nil {
		lines := make([]string, m.rows())
		lines[0] = titleStyle.Render(m.detailName)
		return strings.Join(lines, "\n")
	}
	return m.viewport.View()
}

// renderDetail lays out a game detail for the viewport.
func renderDetail(v *domain.GameView, width int) string {
	d := v.Detail
	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Name))
	b.WriteByte('\n')

	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}

	released := d.Released
	if d.TBA || released == "" {
		released = "TBA"
	}
	row("Released", released)
	if d.Rating > 0 {
		row("Rating", ratingStyle.Render(fmt.Sprintf("%.2f / %d", d.Rating, max(d.RatingTop, 5)))+
			dimStyle.Render(fmt.Sprintf(" (%d ratings)", d.RatingsCount)))
	}
	if d.Metacritic > 0 {
		row("Metacritic", strconv.Itoa(d.Metacritic))
	}
	if d.Playtime > 0 {
		row("Playtime", fmt.Sprintf("%d h", d.Playtime))
	}
	genres := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		genres = append(genres, g.Name)
	}
	row("Genres", strings.Join(genres, ", "))
	platforms := make([]string, 0, len(d.Platforms))
	for _, p := range d.Platforms {
		platforms = append(platforms, p.Platform.Name)
	}
	row("Platforms", strings.Join(platforms, ", "))
	row("Developers", companyNames(d.Developers))
	row("Publishers", companyNames(d.Publishers))
	if d.ESRBRating != nil {
		row("ESRB", d.ESRBRating.Name)
	}
	stores := make([]string, 0, len(d.Stores))
	for _, s := range d.Stores {
		stores = append(stores, s.Store.Name)
	}
	row("Stores", strings.Join(stores, ", "))
	row("Website", d.Website)
	row("Media", fmt.Sprintf("%d screenshots, %d trailers", len(v.Screenshots), len(v.Movies)))
	if v.Cached {
		row("Fetched", dimStyle.Render(v.FetchedAt.Format("2006-01-02 15:04")+" (cached)"))
	}

	if desc := strings.TrimSpace(d.DescriptionRaw); desc != "" {
		b.WriteByte('\n')
		b.WriteString(lipgloss.NewStyle().Width(max(width-4, 20)).Render(desc))
		b.WriteByte('\n')
	}
	return detailStyle.Render(b.String())
}

func companyNames(cs []rawg.Company) string {
	names := make([]string, 0, len(cs))
	for _, c := range cs {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
