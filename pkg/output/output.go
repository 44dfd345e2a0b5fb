// Package output renders command results as human-readable text, JSON, or YAML.
//
// Machine-readable formats write exactly one document per Print call and nothing else, so stdout
// can be piped into tools such as jq.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "text", "json", or "yaml" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// TextWriter is implemented by results that have a human-readable rendering.
type TextWriter interface {
	WriteText(w io.Writer) error
}

// Printer writes command results in a fixed format.
type Printer struct {
	format Format
	w      io.Writer
}

func NewPrinter(format Format, w io.Writer) *Printer {
	if format == "" {
		format = FormatText
	}
	return &Printer{format: format, w: w}
}

func (p *Printer) Format() Format {
	return p.format
}

// Machine returns true if output is meant to be parsed by another program.
func (p *Printer) Machine() bool {
	return p.format != FormatText
}

// Print writes v. In text mode, values implementing [TextWriter] (or slices of them) render
// themselves; other values are printed with fmt.
func (p *Printer) Print(v interface{}) error {
	switch p.format {
	case FormatJSON:
		encoded, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "%s\n", encoded)
		return err
	case FormatYAML:
		encoder := yaml.NewEncoder(p.w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	}
	return p.printText(v)
}

func (p *Printer) printText(v interface{}) error {
	if tw, ok := v.(TextWriter); ok {
		return tw.WriteText(p.w)
	}
	value := reflect.ValueOf(v)
	if value.Kind() == reflect.Slice {
		if value.Len() == 0 {
			_, err := fmt.Fprintln(p.w, "(none)")
			return err
		}
		if _, ok := value.Index(0).Interface().(TextWriter); ok {
			for i := 0; i < value.Len(); i++ {
				if err := value.Index(i).Interface().(TextWriter).WriteText(p.w); err != nil {
					return err
				}
			}
			return nil
		}
	}
	_, err := fmt.Fprintln(p.w, v)
	return err
}

// Message writes a progress or result line in text mode. It does nothing in machine-readable
// modes.
func (p *Printer) Message(format string, a ...interface{}) {
	if p.Machine() {
		return
	}
	fmt.Fprintf(p.w, format+"\n", a...)
}

// Raw writes an API payload under a "=== title ===" header. Machine-readable modes include raw
// payloads in the printed document instead, so Raw does nothing there.
func (p *Printer) Raw(title string, payload json.RawMessage) error {
	if p.Machine() || len(payload) == 0 {
		return nil
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, payload, "", "  "); err != nil {
		indented.Reset()
		indented.Write(payload)
	}
	_, err := fmt.Fprintf(p.w, "=== %s ===\n%s\n", title, indented.Bytes())
	return err
}
