package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
)

var (
	// ErrUnsupportedType is returned for uploads that are not HTML.
	ErrUnsupportedType = errors.New("unsupported import type")
	// ErrEmptyImport is returned when an upload contains no component.
	ErrEmptyImport = errors.New("import contains no html, css or js")
)

// MaxImportBytes bounds uploaded documents.
const MaxImportBytes = 2 << 20

// minConfidence is the chardet score below which the declared or default
// encoding is kept.
const minConfidence = 50

// Import turns an uploaded HTML document back into a payload. Documents
// written by Standalone round-trip exactly; anything else is taken apart
// with goquery.
func Import(data []byte) (payload.CodePayload, error) {
	if len(data) > MaxImportBytes {
		return payload.CodePayload{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrUnsupportedType, len(data), MaxImportBytes)
	}

	mt := mimetype.Detect(data)
	if !mt.Is("text/html") && !mt.Is("text/plain") {
		return payload.CodePayload{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	text, err := toUTF8(data)
	if err != nil {
		return payload.CodePayload{}, err
	}

	if p, err := ParseStandalone(text); err == nil {
		return p, nil
	}
	return extract(text)
}

// toUTF8 decodes data using its BOM or meta charset. Undeclared input
// that is not valid UTF-8 goes through statistical detection.
func toUTF8(data []byte) (string, error) {
	enc, name, certain := charset.DetermineEncoding(data, "text/html")
	if !certain && name == "windows-1252" {
		if utf8.Valid(data) {
			return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
		}
		if result, err := chardet.NewHtmlDetector().DetectBest(data); err == nil && result.Confidence >= minConfidence {
			if detected, detectedName := charset.Lookup(result.Charset); detected != nil {
				enc, name = detected, detectedName
			}
		}
	}
	if name == "utf-8" {
		return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), nil
}

// extract pulls styles, inline scripts and body markup out of an arbitrary
// document.
func extract(text string) (payload.CodePayload, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return payload.CodePayload{}, fmt.Errorf("parse import: %w", err)
	}

	var css []string
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.Text()); v != "" {
			css = append(css, v)
		}
	})

	var js []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		switch strings.ToLower(strings.TrimSpace(s.AttrOr("type", ""))) {
		case "", "text/javascript", "application/javascript", "text/plain":
		default:
			return
		}
		if v := strings.TrimSpace(s.Text()); v != "" {
			js = append(js, v)
		}
	})

	body := doc.Find("body")
	body.Find("script, style").Remove()
	markup, err := body.Html()
	if err != nil {
		return payload.CodePayload{}, fmt.Errorf("render import body: %w", err)
	}

	p := payload.New(strings.TrimSpace(markup), strings.Join(css, "\n\n"), strings.Join(js, "\n\n"))
	if p.IsEmpty() {
		return payload.CodePayload{}, ErrEmptyImport
	}
	return p, nil
}
