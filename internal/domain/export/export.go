// Package export serializes payloads into files a user can take away and
// imports such files back.
//
// The standalone document is the faithful format: it is lossless and
// behaves like the preview. React, Vue and Angular outputs are templates
// layered on top and only approximate the original semantics.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
)

// Format names an export target.
type Format string

const (
	FormatStandalone Format = "standalone"
	FormatReact      Format = "react"
	FormatVue        Format = "vue"
	FormatAngular    Format = "angular"
	FormatBundle     Format = "bundle"
)

// Formats lists every supported export target.
var Formats = []Format{FormatStandalone, FormatReact, FormatVue, FormatAngular, FormatBundle}

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Artifact is one downloadable export.
type Artifact struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Export renders p in format f. An empty name is derived from the markup.
func Export(f Format, p payload.CodePayload, name string) (Artifact, error) {
	if strings.TrimSpace(name) == "" {
		name = SmartName(p.HTML)
	}

	switch f {
	case FormatStandalone:
		return Artifact{
			Filename:    Kebab(name) + ".html",
			ContentType: "text/html; charset=utf-8",
			Content:     []byte(Standalone(p, name)),
		}, nil
	case FormatReact:
		return Artifact{
			Filename:    PascalCase(name) + ".jsx",
			ContentType: "text/plain; charset=utf-8",
			Content:     []byte(React(p, name)),
		}, nil
	case FormatVue:
		return Artifact{
			Filename:    PascalCase(name) + ".vue",
			ContentType: "text/plain; charset=utf-8",
			Content:     []byte(Vue(p, name)),
		}, nil
	case FormatAngular:
		files := Angular(p, name)
		return Artifact{
			Filename:    files.BaseName + ".component.ts",
			ContentType: "text/plain; charset=utf-8",
			Content:     []byte(files.TS),
		}, nil
	case FormatBundle:
		data, err := Bundle(p, name)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{
			Filename:    Kebab(name) + ".zip",
			ContentType: "application/zip",
			Content:     data,
		}, nil
	}
	return Artifact{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Bundle zips every format plus the raw payload as JSON.
func Bundle(p payload.CodePayload, name string) ([]byte, error) {
	raw, err := p.Encode()
	if err != nil {
		return nil, err
	}
	base := Kebab(name)
	component := PascalCase(name)
	angular := Angular(p, name)

	files := []struct {
		path string
		data string
	}{
		{"component.json", string(raw)},
		{"standalone/" + base + ".html", Standalone(p, name)},
		{"react/" + component + ".jsx", React(p, name)},
		{"vue/" + component + ".vue", Vue(p, name)},
		{"angular/" + base + ".component.ts", angular.TS},
		{"angular/" + base + ".component.html", angular.HTML},
		{"angular/" + base + ".component.css", angular.CSS},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.path)
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", f.path, err)
		}
		if _, err := w.Write([]byte(f.data)); err != nil {
			return nil, fmt.Errorf("bundle %s: %w", f.path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}
	return buf.Bytes(), nil
}
