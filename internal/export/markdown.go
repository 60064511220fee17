package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/sahayak/internal"
)

// MarkdownExporter writes a transcript as a readable Markdown document
type MarkdownExporter struct{}

// Export writes t as Markdown. User text is escaped; assistant replies are
// already Markdown and are written as-is.
func (e *MarkdownExporter) Export(t *Transcript, w io.Writer) error {
	var b strings.Builder
	b.WriteString("# Sahayak chat\n\n")

	fields := [][2]string{
		{"User", t.UserName},
		{"Language", t.Language.DisplayName()},
		{"Exported", t.ExportedAt.Format("2006-01-02 15:04 MST")},
	}
	for _, f := range fields {
		if f[1] != "" {
			fmt.Fprintf(&b, "**%s:** %s  \n", f[0], f[1])
		}
	}
	fmt.Fprintf(&b, "**Messages:** %d\n\n---\n\n", len(t.Messages))

	for i, msg := range t.Messages {
		if i > 0 {
			b.WriteString("---\n\n")
		}
		b.WriteString("**" + senderLabel(msg.Sender) + ":**")
		if msg.Timestamp != "" {
			b.WriteString(" (" + msg.Timestamp + ")")
		}
		text := msg.Text
		if msg.Sender == internal.SenderUser {
			text = escapeMarkdown(text)
		}
		b.WriteString("\n\n" + text + "\n\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write markdown: %w", err)
	}
	return nil
}

func senderLabel(s internal.Sender) string {
	if s == internal.SenderAI {
		return "Sahayak"
	}
	return "You"
}

var markdownEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`")

// escapeMarkdown makes plain text render literally. Headings and quotes are
// only special at the start of a line.
func escapeMarkdown(text string) string {
	lines := strings.Split(markdownEscaper.Replace(text), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, ">") {
			lines[i] = `\` + line
		}
	}
	return strings.Join(lines, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
