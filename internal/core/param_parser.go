package core

import (
	"regexp"
	"strings"
)

// VariableParser turns bookmark variable comments into positional parameters.
// A bookmark such as
//
//	SELECT * FROM orders WHERE id = /*'[VARIABLE]'*/ 1
//
// runs as written when no variable is supplied. With a variable, each
// comment holding [VARIABLE] is opened up and the marker becomes ?.
type VariableParser struct {
	regex *regexp.Regexp
}

func NewVariableParser() *VariableParser {
	// Matches /* prefix [VARIABLE] suffix */ without running past the first */
	return &VariableParser{
		regex: regexp.MustCompile(`/\*((?:[^*]|\*[^/])*?)\[VARIABLE\]((?:[^*]|\*[^/])*?)\*/`),
	}
}

// ParseResult contains the transformed SQL and the values to bind, in order
type ParseResult struct {
	SQL  string
	Args []any
}

// Parse rewrites sqlText for the given variable. An empty variable leaves the
// statement untouched.
func (p *VariableParser) Parse(sqlText, variable string) *ParseResult {
	if variable == "" {
		return &ParseResult{SQL: sqlText}
	}

	args := []any{}
	transformed := p.regex.ReplaceAllStringFunc(sqlText, func(match string) string {
		sub := p.regex.FindStringSubmatch(match)
		prefix, suffix := sub[1], sub[2]

		// '[VARIABLE]' and "[VARIABLE]" were literal slots; the bound value replaces the quotes too
		for _, q := range []string{"'", `"`} {
			if strings.HasSuffix(prefix, q) && strings.HasPrefix(suffix, q) {
				prefix = strings.TrimSuffix(prefix, q)
				suffix = strings.TrimPrefix(suffix, q)
				break
			}
		}

		args = append(args, variable)
		return prefix + "?" + suffix
	})

	return &ParseResult{
		SQL:  transformed,
		Args: args,
	}
}

// HasVariable reports whether sqlText contains a bookmark variable slot.
func (p *VariableParser) HasVariable(sqlText string) bool {
	return p.regex.MatchString(sqlText)
}
