package service

import (
	"regexp"
	"strings"
)

// Matcher is a compiled route pattern: a regex anchored with ^...$ plus
// the ordered list of named capture groups. `:name` segments become
// `([^/]+)` bound to "name"; a trailing `*` becomes `(.*)` bound to "*" and
// captures the remainder including any slashes. Pattern keeps the literal
// text the script passed to listen(), so dispatch can find the matching
// handler by exact equality even when the regex was compiled from an
// implicitly '/'-prefixed form.
type Matcher struct {
	Pattern string
	Regex   *regexp.Regexp
	Params  []string
}

// Match reports whether sub matches the pattern, returning extracted params
// keyed by name on success.
func (m *Matcher) Match(sub string) (map[string]string, bool) {
	g := m.Regex.FindStringSubmatch(sub)
	if g == nil {
		return nil, false
	}

	out := make(map[string]string, len(m.Params))
	for i, name := range m.Params {
		out[name] = g[i+1]
	}
	return out, true
}

var segmentRE = regexp.MustCompile(`:[A-Za-z_][A-Za-z0-9_]*|\*`)

// CompilePath compiles a route declaration ("/:a/:b", "static/*", ...) into
// a Matcher. Patterns without a leading '/' are implicitly prefixed.
func CompilePath(pattern string) (*Matcher, error) {
	if pattern == "" {
		return nil, ErrorInvalidPattern.Error(nil)
	}

	orig := pattern
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}

	var (
		params []string
		out    strings.Builder
		last   int
	)

	locs := segmentRE.FindAllStringIndex(pattern, -1)
	for _, loc := range locs {
		out.WriteString(regexp.QuoteMeta(pattern[last:loc[0]]))

		tok := pattern[loc[0]:loc[1]]
		if tok == "*" {
			out.WriteString("(.*)")
			params = append(params, "*")
		} else {
			out.WriteString("([^/]+)")
			params = append(params, tok[1:])
		}

		last = loc[1]
	}
	out.WriteString(regexp.QuoteMeta(pattern[last:]))

	re, err := regexp.Compile("^" + out.String() + "$")
	if err != nil {
		return nil, ErrorInvalidPattern.Error(err)
	}

	return &Matcher{Pattern: orig, Regex: re, Params: params}, nil
}
