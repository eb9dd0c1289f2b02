// Package codec encodes topology snapshots for export.
package codec

import (
	"encoding/json"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/model"
)

// Format is a snapshot encoding
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml in any case. An empty string
// means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", errs.Invalidf("snapshot format %q", s)
}

// ContentType returns the HTTP media type for f
func (f Format) ContentType() string {
	if f == YAML {
		return "application/yaml"
	}
	return "application/json"
}

// Extension returns the file extension for f, without the dot
func (f Format) Extension() string {
	return string(f)
}

// Encode writes snap to w in format f
func Encode(w io.Writer, f Format, snap model.Snapshot) error {
	switch f {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return errs.Invalidf("snapshot format %q", string(f))
}

// Marshal returns snap encoded in format f
func Marshal(f Format, snap model.Snapshot) ([]byte, error) {
	var b strings.Builder
	if err := Encode(&b, f, snap); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// Decode reads a snapshot written by Encode
func Decode(r io.Reader, f Format) (model.Snapshot, error) {
	var snap model.Snapshot
	switch f {
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
			return snap, err
		}
	case JSON:
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return snap, err
		}
	default:
		return snap, errs.Invalidf("snapshot format %q", string(f))
	}
	return snap, nil
}
