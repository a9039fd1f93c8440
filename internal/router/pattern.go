// Package router implements the routing core of the embedded server: the
// pattern compiler, the ordered route table with first-match-wins dispatch,
// and route groups.
package router

import (
	"regexp"
	"strings"

	"github.com/vyrodovalexey/embhttp/internal/util"
)

// ParamType identifies the matching rule of a placeholder. Types are
// resolved once at compile time and stored alongside each placeholder, so
// extraction never inspects regex group names at request time.
type ParamType int

// Supported placeholder types.
const (
	// ParamDefault matches a run of one or more non-slash characters.
	ParamDefault ParamType = iota

	// ParamInt matches one or more decimal digits.
	ParamInt

	// ParamGUID matches the canonical 8-4-4-4-12 hex UUID form.
	ParamGUID

	// ParamSlug matches lowercase alphanumeric segments joined by single
	// hyphens.
	ParamSlug

	// ParamWildcard greedily matches the rest of the path, slashes
	// included.
	ParamWildcard
)

// String returns the type tag as written in templates.
func (t ParamType) String() string {
	switch t {
	case ParamInt:
		return "int"
	case ParamGUID:
		return "guid"
	case ParamSlug:
		return "slug"
	case ParamWildcard:
		return "*"
	default:
		return "default"
	}
}

// parseParamType maps a template type tag to a ParamType. Unrecognized
// tags fall back to the default non-slash-run behavior.
func parseParamType(tag string) ParamType {
	switch tag {
	case "int":
		return ParamInt
	case "guid":
		return ParamGUID
	case "slug":
		return ParamSlug
	case "*":
		return ParamWildcard
	default:
		return ParamDefault
	}
}

// fragment returns the regular-expression fragment for the type.
func (t ParamType) fragment() string {
	switch t {
	case ParamInt:
		return `[0-9]+`
	case ParamGUID:
		return `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`
	case ParamSlug:
		return `[a-z0-9]+(?:-[a-z0-9]+)*`
	case ParamWildcard:
		return `.*`
	default:
		return `[^/]+`
	}
}

// placeholder is one compiled template parameter. Anonymous placeholders
// have an empty name and are skipped during extraction.
type placeholder struct {
	name string
	typ  ParamType
}

// Pattern is a compiled route template: an anchored regular expression with
// one capturing group per placeholder, in template order.
type Pattern struct {
	template     string
	regex        *regexp.Regexp
	placeholders []placeholder
}

// Compile translates a route template into a Pattern. Literal characters
// must match exactly; each {name}, {name:type}, or {} placeholder becomes
// one capturing group. The result is anchored at both ends so a pattern
// matches whole paths only. A malformed placeholder yields a PatternError.
func Compile(template string) (*Pattern, error) {
	var expr strings.Builder
	expr.WriteString("^")

	var placeholders []placeholder

	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			expr.WriteString(regexp.QuoteMeta(rest))
			break
		}

		expr.WriteString(regexp.QuoteMeta(rest[:open]))
		rest = rest[open+1:]

		closing := strings.IndexByte(rest, '}')
		if closing < 0 {
			return nil, util.NewPatternError(template, "unterminated placeholder")
		}

		ph, err := parsePlaceholder(template, rest[:closing])
		if err != nil {
			return nil, err
		}
		placeholders = append(placeholders, ph)

		expr.WriteString("(")
		expr.WriteString(ph.typ.fragment())
		expr.WriteString(")")

		rest = rest[closing+1:]
	}

	expr.WriteString("$")

	regex, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, util.NewPatternErrorWithCause(template, "compile failed", err)
	}

	return &Pattern{
		template:     template,
		regex:        regex,
		placeholders: placeholders,
	}, nil
}

// MustCompile is like Compile but panics on error. Route templates are
// static configuration, so a bad template is a startup failure.
func MustCompile(template string) *Pattern {
	p, err := Compile(template)
	if err != nil {
		panic(err)
	}
	return p
}

// parsePlaceholder parses the content between braces: "name", "name:type",
// or "" for an anonymous placeholder.
func parsePlaceholder(template, content string) (placeholder, error) {
	name := content
	tag := ""
	if i := strings.IndexByte(content, ':'); i >= 0 {
		name = content[:i]
		tag = content[i+1:]
	}

	if name != "" && !isIdentifier(name) {
		return placeholder{}, util.NewPatternError(template, "placeholder name "+name+" is not a valid identifier")
	}

	return placeholder{name: name, typ: parseParamType(tag)}, nil
}

// isIdentifier reports whether s is a letter or underscore followed by
// letters, digits, or underscores.
func isIdentifier(s string) bool {
	for i, c := range s {
		switch {
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return s != ""
}

// Template returns the original route template.
func (p *Pattern) Template() string {
	return p.template
}

// Match checks path against the pattern and, on success, extracts one value
// per named placeholder.
func (p *Pattern) Match(path string) (bool, Params) {
	matches := p.regex.FindStringSubmatch(path)
	if matches == nil {
		return false, nil
	}

	params := make(Params, len(p.placeholders))
	for i, ph := range p.placeholders {
		if ph.name == "" {
			continue
		}
		if i+1 < len(matches) {
			params[ph.name] = matches[i+1]
		}
	}

	return true, params
}

// Matches reports whether path matches without extracting parameters.
func (p *Pattern) Matches(path string) bool {
	return p.regex.MatchString(path)
}
