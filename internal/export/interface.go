package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iksnae/sahayak/internal"
)

// Transcript is a chat transcript with the context needed to read it later
type Transcript struct {
	UserName   string                 `json:"user_name,omitempty" yaml:"user_name,omitempty"`
	UserEmail  string                 `json:"user_email,omitempty" yaml:"user_email,omitempty"`
	Language   internal.Language      `json:"language" yaml:"language"`
	ExportedAt time.Time              `json:"exported_at" yaml:"exported_at"`
	Messages   []internal.ChatMessage `json:"messages" yaml:"messages"`
}

// NewTranscript captures the transcript held in st
func NewTranscript(st internal.State, exportedAt time.Time) *Transcript {
	t := &Transcript{
		Language:   st.Language,
		ExportedAt: exportedAt.UTC(),
		Messages:   append([]internal.ChatMessage(nil), st.Transcript...),
	}
	if st.User != nil {
		t.UserName = st.User.Name
		t.UserEmail = st.User.Email
	}
	return t
}

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(t *Transcript, w io.Writer) error
	Extension() string
}

// NewExporter returns the exporter for format. Names are case-insensitive.
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want jsonl, md, yaml or json)", format)
	}
}

// DefaultFileName returns a timestamped file name for an export
func DefaultFileName(e Exporter, at time.Time) string {
	return fmt.Sprintf("sahayak-chat-%s.%s", at.UTC().Format("20060102-150405"), e.Extension())
}

// WriteFile exports t to path, creating parent directories
func WriteFile(e Exporter, t *Transcript, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &internal.ExportError{Format: e.Extension(), Path: path, Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: e.Extension(), Path: path, Err: err}
	}
	if err := e.Export(t, f); err != nil {
		_ = f.Close()
		return &internal.ExportError{Format: e.Extension(), Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &internal.ExportError{Format: e.Extension(), Path: path, Err: err}
	}
	return nil
}
