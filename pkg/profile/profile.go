// Package profile parses environment profiles: newline-delimited KEY=VALUE
// text holding the variables one environment exposes to step templates.
package profile

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Profile maps variable names to values. It is read-only once loaded.
type Profile map[string]string

// Parse reads KEY=VALUE lines. Blank lines and lines starting with '#' are
// skipped, as are lines without '='. Only the first '=' separates key from
// value, so values may contain '='. A value wrapped in matching single or
// double quotes is unwrapped. Later lines override earlier ones.
func Parse(text string) Profile {
	p := Profile{}
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		if key == "" {
			continue
		}
		p[key] = unquote(strings.TrimSpace(val))
	}
	return p
}

// Load reads and parses a profile file.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Parse(string(data)), nil
}

// Keys returns the variable names in sorted order.
func (p Profile) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
