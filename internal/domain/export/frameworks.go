package export

import (
	"regexp"
	"strings"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
)

var (
	inlineHandler = regexp.MustCompile(`\bon(\w+)="([^"]*)"`)
	classAttr     = regexp.MustCompile(`\bclass="`)
	forAttr       = regexp.MustCompile(`\bfor="`)
)

// React renders a function component. Inline handlers become arrow
// functions and the js runs once in a mount effect.
func React(p payload.CodePayload, name string) string {
	component := PascalCase(name)

	markup := inlineHandler.ReplaceAllStringFunc(p.HTML, func(m string) string {
		parts := inlineHandler.FindStringSubmatch(m)
		event := parts[1]
		return "on" + strings.ToUpper(event[:1]) + event[1:] + "={() => { " + parts[2] + " }}"
	})
	markup = classAttr.ReplaceAllString(markup, `className="`)
	markup = forAttr.ReplaceAllString(markup, `htmlFor="`)

	var b strings.Builder
	b.WriteString("import React, { useEffect } from 'react';\n\n")
	b.WriteString("// " + component + " Component\n")
	b.WriteString("const " + component + " = () => {\n")
	b.WriteString("  useEffect(() => {\n")
	b.WriteString("    const initComponent = () => {\n")
	b.WriteString(indent(p.JS, "      ") + "\n")
	b.WriteString("    };\n\n")
	b.WriteString("    initComponent();\n")
	b.WriteString("  }, []);\n\n")
	b.WriteString("  return (\n")
	b.WriteString("    <div className=\"" + strings.ToLower(component) + "-container\">\n")
	b.WriteString(indent(markup, "      ") + "\n")
	b.WriteString("    </div>\n")
	b.WriteString("  );\n")
	b.WriteString("};\n\n")
	b.WriteString("const styles = `\n" + escapeTemplateLiteral(p.CSS) + "\n`;\n\n")
	b.WriteString("export default function " + component + "WithStyles() {\n")
	b.WriteString("  return (\n")
	b.WriteString("    <>\n")
	b.WriteString("      <style>{styles}</style>\n")
	b.WriteString("      <" + component + " />\n")
	b.WriteString("    </>\n")
	b.WriteString("  );\n")
	b.WriteString("}\n")
	return b.String()
}

// Vue renders a single-file component with the js in mounted.
func Vue(p payload.CodePayload, name string) string {
	var b strings.Builder
	b.WriteString("<template>\n")
	b.WriteString("  <div>\n" + indent(p.HTML, "    ") + "\n  </div>\n")
	b.WriteString("</template>\n\n")
	b.WriteString("<script>\n")
	b.WriteString("export default {\n")
	b.WriteString("  name: '" + PascalCase(name) + "',\n")
	b.WriteString("  mounted() {\n")
	b.WriteString(indent(p.JS, "    ") + "\n")
	b.WriteString("  }\n")
	b.WriteString("}\n")
	b.WriteString("</script>\n\n")
	b.WriteString("<style scoped>\n" + p.CSS + "\n</style>\n")
	return b.String()
}

// AngularFiles is the three-file layout of an Angular component.
type AngularFiles struct {
	Selector string
	TS       string
	HTML     string
	CSS      string
	BaseName string
}

// Angular renders a component class that runs the js after view init,
// plus its template and stylesheet.
func Angular(p payload.CodePayload, name string) AngularFiles {
	base := Kebab(name)
	class := PascalCase(name) + "Component"

	var b strings.Builder
	b.WriteString("import { Component, OnInit, AfterViewInit } from '@angular/core';\n\n")
	b.WriteString("@Component({\n")
	b.WriteString("  selector: 'app-" + base + "',\n")
	b.WriteString("  templateUrl: './" + base + ".component.html',\n")
	b.WriteString("  styleUrls: ['./" + base + ".component.css']\n")
	b.WriteString("})\n")
	b.WriteString("export class " + class + " implements OnInit, AfterViewInit {\n\n")
	b.WriteString("  constructor() { }\n\n")
	b.WriteString("  ngOnInit(): void {\n  }\n\n")
	b.WriteString("  ngAfterViewInit(): void {\n")
	b.WriteString(indent(p.JS, "    ") + "\n")
	b.WriteString("  }\n")
	b.WriteString("}\n")

	return AngularFiles{
		Selector: "app-" + base,
		TS:       b.String(),
		HTML:     p.HTML,
		CSS:      p.CSS,
		BaseName: base,
	}
}

// indent prefixes every non-empty line.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func escapeTemplateLiteral(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "`", "\\`")
	return strings.ReplaceAll(s, "${", "\\${")
}
