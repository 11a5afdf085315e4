package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/charlievieth/fastwalk"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/domain/export"
	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
)

// DefaultPattern matches template files below the gallery directory.
const DefaultPattern = "**/*.{yaml,yml,json}"

var ErrTemplateNotFound = errors.New("template not found")

// Template is a read-only starting point offered by the gallery.
type Template struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Category    string              `json:"category,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Payload     payload.CodePayload `json:"payload"`
}

// templateFile is the on-disk layout of a template.
type templateFile struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Category    string   `yaml:"category" json:"category"`
	Tags        []string `yaml:"tags" json:"tags"`
	HTML        string   `yaml:"html" json:"html"`
	CSS         string   `yaml:"css" json:"css"`
	JS          string   `yaml:"js" json:"js"`
}

// Gallery is an immutable set of templates keyed by slug.
type Gallery struct {
	byID  map[string]Template
	order []string
}

// NewGallery builds a gallery from templates. Later duplicates of an id
// are ignored.
func NewGallery(templates ...Template) *Gallery {
	g := &Gallery{byID: make(map[string]Template, len(templates))}
	for _, t := range templates {
		if _, dup := g.byID[t.ID]; dup || t.ID == "" {
			continue
		}
		g.byID[t.ID] = t
		g.order = append(g.order, t.ID)
	}
	sort.Strings(g.order)
	return g
}

// LoadGallery walks dir for files matching pattern and decodes each as a
// template. A missing directory yields an empty gallery. Files that fail
// to decode are logged and skipped.
func LoadGallery(ctx context.Context, dir, pattern string, logger *zap.Logger) (*Gallery, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid template pattern %q", pattern)
	}

	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("Template directory not found, gallery is empty", zap.String("dir", dir))
		return NewGallery(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat template dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template path %s is not a directory", dir)
	}

	var (
		mu    sync.Mutex
		paths []string
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil || d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil
		}
		matched, err := doublestar.Match(pattern, filepath.ToSlash(rel))
		if err != nil || !matched {
			return nil
		}

		mu.Lock()
		paths = append(paths, p)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk templates: %w", err)
	}
	sort.Strings(paths)

	templates := make([]Template, 0, len(paths))
	for _, p := range paths {
		rel, _ := filepath.Rel(dir, p)
		t, err := readTemplate(p, rel)
		if err != nil {
			logger.Warn("Skipping template", zap.String("path", p), zap.Error(err))
			continue
		}
		templates = append(templates, t)
	}

	g := NewGallery(templates...)
	logger.Info("Template gallery loaded", zap.String("dir", dir), zap.Int("templates", g.Len()))
	return g, nil
}

func readTemplate(path, rel string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, err
	}

	var f templateFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = sonic.ConfigStd.Unmarshal(data, &f)
	default:
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return Template{}, fmt.Errorf("decode: %w", err)
	}

	p := payload.New(f.HTML, f.CSS, f.JS)
	if p.IsEmpty() {
		return Template{}, ErrEmptyComponent
	}

	t := Template{
		ID:          Slug(f.ID),
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		Category:    strings.ToLower(strings.TrimSpace(f.Category)),
		Tags:        normalizeTags(f.Tags),
		Payload:     p,
	}
	if t.ID == "" {
		t.ID = Slug(strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel)))
	}
	if t.Name == "" {
		t.Name = export.SmartName(p.HTML)
	}
	return t, nil
}

// Slug lower-cases s and keeps only letters and digits, separating runs
// of anything else with a single dash.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// List returns templates ordered by id.
func (g *Gallery) List() []Template {
	out := make([]Template, 0, len(g.order))
	for _, tid := range g.order {
		out = append(out, g.byID[tid])
	}
	return out
}

// Get looks up a template by id.
func (g *Gallery) Get(tid string) (Template, error) {
	t, ok := g.byID[tid]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, tid)
	}
	return t, nil
}

func (g *Gallery) Len() int { return len(g.order) }
