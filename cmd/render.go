package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/sahayak/internal"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	categoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// truncate shortens s to n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatDate renders backend timestamps relative to now
func formatDate(raw string, now time.Time) string {
	if raw == "" {
		return dateStyle.Render("—")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// The backend sometimes omits the zone
		if t, err = time.Parse("2006-01-02T15:04:05", raw); err != nil {
			return dateStyle.Render(raw)
		}
	}
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return dateStyle.Render(t.Local().Format("Today 15:04"))
	case diff < 7*24*time.Hour:
		return dateStyle.Render(t.Local().Format("Mon 15:04"))
	case diff < 365*24*time.Hour:
		return dateStyle.Render(t.Local().Format("Jan 02 15:04"))
	default:
		return dateStyle.Render(t.Local().Format("2006-01-02"))
	}
}

func displaySchemes(w io.Writer, schemes []internal.Scheme) {
	if len(schemes) == 0 {
		fmt.Fprintln(w, headerStyle.Render("📋 No schemes found"))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("📋 Found %d scheme(s)", len(schemes))))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Category")+"\t")
	_, _ = fmt.Fprintln(tw, strings.Repeat("─", 80))
	for _, s := range schemes {
		title := truncate(s.Title, 50)
		if s.IsNew {
			title += " " + countStyle.Render("NEW")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t\n", idStyle.Render(s.ID), title, categoryStyle.Render(s.Category))
	}
	_ = tw.Flush()
}

func displayScheme(w io.Writer, s internal.Scheme) {
	fmt.Fprintln(w, headerStyle.Render(s.Title))
	fmt.Fprintf(w, "%s %s   %s %s\n", titleStyle.Render("ID:"), idStyle.Render(s.ID), titleStyle.Render("Category:"), categoryStyle.Render(s.Category))
	section := func(name, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, sectionStyle.Render(name))
		if strings.Contains(body, "\n") {
			body = "• " + body
		}
		fmt.Fprintln(w, body)
	}
	section("About", s.Description)
	section("Eligibility", s.Eligibility)
	section("Benefits", s.Benefits)
	section("How to apply", s.ApplicationProcess)
	if s.SourceURL != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s\n", titleStyle.Render("More:"), infoStyle.Render(s.SourceURL))
	}
}

func displayUser(w io.Writer, u internal.User, lang internal.Language) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Name", u.Name},
		{"Email", u.Email},
		{"Mobile", u.MobileNo},
		{"Role", string(u.Role)},
		{"Language", lang.DisplayName()},
	}
	if u.CreatedAt != "" {
		rows = append(rows, [2]string{"Member since", u.CreatedAt})
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", titleStyle.Render(r[0]+":"), r[1])
	}
	_ = tw.Flush()
}

func displayNotifications(w io.Writer, ns []internal.Notification, now time.Time) {
	if len(ns) == 0 {
		fmt.Fprintln(w, headerStyle.Render("🔔 No notifications"))
		return
	}

	unread := 0
	for _, n := range ns {
		if !n.IsRead {
			unread++
		}
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("🔔 %d notification(s), %d unread", len(ns), unread)))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	for _, n := range ns {
		marker := " "
		if !n.IsRead {
			marker = countStyle.Render("●")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t\n", marker, n.Message, formatDate(n.CreatedAt, now))
	}
	_ = tw.Flush()
}
