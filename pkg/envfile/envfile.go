package envfile

// Package envfile reads flat KEY=value files (aka ".env" files).
// We only support the simple dialect that the Hailo example scripts use:
// comments, blank lines, optional "export " prefixes, and optionally
// quoted values. There is no variable expansion.

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Parse reads KEY=value lines from r.
// Lines starting with '#' and blank lines are ignored.
// Lines without an '=' are ignored.
// Values keep everything after the first '=', minus surrounding whitespace
// and one level of matching quotes.
// If a key appears more than once, the last value wins.
func Parse(r io.Reader) (map[string]string, error) {
	values := map[string]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		values[key] = unquote(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

// Load parses the given file.
func Load(filename string) (map[string]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file)
}

// Strip one level of matching single or double quotes
func unquote(v string) string {
	if len(v) >= 2 {
		first := v[0]
		last := v[len(v)-1]
		if first == last && (first == '"' || first == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
