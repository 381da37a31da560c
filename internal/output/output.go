// Package output renders CLI results as text, JSON or YAML. Structured output
// uses the JSON field names in both JSON and YAML.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"go.yaml.in/yaml/v3"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json or yaml (case-insensitive); empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (want text, json or yaml)", s)
	}
}

// TextWriter is implemented by values with their own human-readable form.
type TextWriter interface {
	WriteText(w io.Writer) error
}

// Writer handles formatted output.
type Writer struct {
	format Format
	out    io.Writer
	errOut io.Writer
}

// Option configures the Writer.
type Option func(*Writer)

// WithOutput sets the standard output writer.
func WithOutput(w io.Writer) Option {
	return func(wr *Writer) {
		wr.out = w
	}
}

// WithErrorOutput sets the error output writer.
func WithErrorOutput(w io.Writer) Option {
	return func(wr *Writer) {
		wr.errOut = w
	}
}

// New creates a new output writer.
func New(format Format, opts ...Option) *Writer {
	w := &Writer{
		format: format,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Format returns the configured format.
func (w *Writer) Format() Format {
	return w.format
}

// IsStructured reports whether output is JSON or YAML.
func (w *Writer) IsStructured() bool {
	return w.format == FormatJSON || w.format == FormatYAML
}

// Write outputs data in the configured format.
func (w *Writer) Write(data any) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		b, err := marshalYAML(data)
		if err != nil {
			return err
		}
		_, err = w.out.Write(b)
		return err
	case FormatText, "":
		if tw, ok := data.(TextWriter); ok {
			return tw.WriteText(w.out)
		}
		_, err := fmt.Fprintf(w.out, "%v\n", data)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", w.format)
	}
}

// WriteNDJSON outputs data as one compact JSON document per line in JSON
// mode, and as text otherwise.
func (w *Writer) WriteNDJSON(data any) error {
	switch w.format {
	case FormatJSON:
		return json.NewEncoder(w.out).Encode(data)
	case FormatText, "":
		_, err := fmt.Fprintf(w.out, "%v\n", data)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", w.format)
	}
}

// Success outputs a success message.
func (w *Writer) Success(msg string) {
	if w.IsStructured() {
		_ = w.Write(map[string]any{"status": "success", "message": msg})
		return
	}
	fmt.Fprintf(w.errOut, "✓ %s\n", msg)
}

// ErrorPayload is the structured form of an error.
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Error outputs an error message. Structured errors go to stdout so callers
// parsing JSON or YAML see them.
func (w *Writer) Error(err error) {
	if w.IsStructured() {
		_ = w.Write(ErrorPayload{Error: "error", Message: err.Error(), Code: 1})
		return
	}
	fmt.Fprintf(w.errOut, "✗ %s\n", err.Error())
}

// Table is a text table that renders as a list of row objects when
// structured.
type Table struct {
	Headers []string
	Rows    [][]string
}

// WriteText writes the table with aligned columns.
func (t Table) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// MarshalJSON encodes rows as objects keyed by header.
func (t Table) MarshalJSON() ([]byte, error) {
	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		records = append(records, rec)
	}
	return json.Marshal(records)
}

// marshalYAML converts via JSON first so YAML keys follow the json tags.
func marshalYAML(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var normalized any
	if err := dec.Decode(&normalized); err != nil {
		return nil, err
	}
	normalized = numbersToYAML(normalized)

	b, err := yaml.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 || b[len(b)-1] != '\n' {
		b = append(b, '\n')
	}
	return b, nil
}

// numbersToYAML turns json.Number into int64 or float64 so YAML prints
// them unquoted.
func numbersToYAML(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, val := range x {
			x[k] = numbersToYAML(val)
		}
		return x
	case []any:
		for i, val := range x {
			x[i] = numbersToYAML(val)
		}
		return x
	default:
		return v
	}
}
