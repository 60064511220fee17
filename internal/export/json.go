package export

import (
	"encoding/json"
	"io"
)

// JSONExporter writes the whole transcript as one indented JSON document
type JSONExporter struct{}

// Export writes t as JSON. HTML is left unescaped so replies read naturally.
func (e *JSONExporter) Export(t *Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(t)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
