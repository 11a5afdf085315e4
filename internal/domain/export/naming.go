package export

import (
	"strings"
	"unicode"

	"github.com/antchfx/htmlquery"
)

// DefaultName is used when nothing in the markup suggests a better one.
const DefaultName = "UIComponent"

// nameRules are checked in order; the first query with a match wins.
var nameRules = []struct {
	name  string
	query string
}{
	{"InteractiveForm", "//form | //input | //button | //textarea | //select"},
	{"ProductCard", "//*[@class[contains(., 'card') or contains(., 'product')] or @id[contains(., 'card') or contains(., 'product')]]"},
	{"NavigationMenu", "//nav | //menu | //*[@class[contains(., 'nav') or contains(., 'menu')] or @id[contains(., 'nav') or contains(., 'menu')]]"},
	{"ModalDialog", "//dialog | //*[@role='dialog'] | //*[@class[contains(., 'modal') or contains(., 'dialog')] or @id[contains(., 'modal') or contains(., 'dialog')]]"},
	{"DataTable", "//table | //th | //td"},
	{"ChartWidget", "//canvas | //svg | //*[@class[contains(., 'chart') or contains(., 'graph')] or @id[contains(., 'chart') or contains(., 'graph')]]"},
}

// SmartName guesses a component name from its markup.
func SmartName(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return DefaultName
	}
	doc, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return DefaultName
	}
	for _, rule := range nameRules {
		node, err := htmlquery.Query(doc, rule.query)
		if err == nil && node != nil {
			return rule.name
		}
	}
	return DefaultName
}

// PascalCase joins the words of name with each first letter upper-cased.
// "product card" and "product-card" both become ProductCard.
func PascalCase(name string) string {
	var b strings.Builder
	for _, word := range words(name) {
		r := []rune(word)
		b.WriteString(string(unicode.ToUpper(r[0])) + string(r[1:]))
	}
	if b.Len() == 0 {
		return DefaultName
	}
	return b.String()
}

// Kebab lower-cases name and joins its words with hyphens. Word breaks
// are also found inside PascalCase names.
func Kebab(name string) string {
	var parts []string
	for _, word := range words(name) {
		parts = append(parts, splitCamel(word)...)
	}
	if len(parts) == 0 {
		return "ui-component"
	}
	return strings.ToLower(strings.Join(parts, "-"))
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func splitCamel(word string) []string {
	var parts []string
	r := []rune(word)
	start := 0
	for i := 1; i < len(r); i++ {
		if unicode.IsUpper(r[i]) && (unicode.IsLower(r[i-1]) || (i+1 < len(r) && unicode.IsLower(r[i+1]))) {
			parts = append(parts, string(r[start:i]))
			start = i
		}
	}
	return append(parts, string(r[start:]))
}
