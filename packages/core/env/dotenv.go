package env

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Load parses a dotenv file.
// Supports: KEY=value, export KEY=value, KEY="quoted ${REF}", KEY='literal',
// trailing " # comments" on unquoted values and # comment lines.
// Nothing is exported to the process environment.
func Load(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, raw, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("%s:%d: expected KEY=value", path, lineNo)
		}

		value, expand := unquote(strings.TrimSpace(raw))
		if expand {
			value = Expand(value, vars)
		}
		vars[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	return vars, nil
}

// unquote strips surrounding quotes and reports whether ${NAME} references
// in the value should be expanded. Single quotes keep the value literal.
func unquote(value string) (string, bool) {
	if len(value) >= 2 {
		switch {
		case value[0] == '\'' && value[len(value)-1] == '\'':
			return value[1 : len(value)-1], false
		case value[0] == '"' && value[len(value)-1] == '"':
			return value[1 : len(value)-1], true
		}
	}
	if i := strings.Index(value, " #"); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	return value, true
}

// Expand replaces ${NAME} and $NAME in s, looking names up in vars first and
// the process environment second. Unknown names expand to "".
func Expand(s string, vars map[string]string) string {
	return os.Expand(s, func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		return os.Getenv(name)
	})
}

// Merge layers variable sets, later sets taking precedence
func Merge(sets ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}
