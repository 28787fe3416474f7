// Package envfile reads and mutates newline-delimited KEY=VALUE files (the
// gateway's .env). Values are normalized to exactly one layer of quoting on
// write so repeated provisioning runs never stack quotes, a failure mode seen
// when several platforms' shells edited the same file.
package envfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrUnreadable is returned when a file exists but cannot be parsed as
// KEY=VALUE lines. A missing file is not an error.
var ErrUnreadable = errors.New("envfile: unreadable")

var keyLineRe = regexp.MustCompile(`^\s*([\w.-]+)\s*=\s*(.*)$`)

// Load parses the file at path into a key→value map. Missing file yields an
// empty map. Comments and blank lines are ignored; surrounding quotes and
// trailing inline comments are stripped from values.
func Load(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}

	vars := map[string]string{}
	for i, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		m := keyLineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%w: %s: line %d is not KEY=VALUE", ErrUnreadable, path, i+1)
		}
		vars[m[1]] = parseValue(m[2])
	}
	return vars, nil
}

// Get returns the value for key, or ok=false if the key is absent.
func Get(path, key string) (string, bool, error) {
	vars, err := Load(path)
	if err != nil {
		return "", false, err
	}
	v, ok := vars[key]
	return v, ok, nil
}

// Upsert replaces the value of key in place, or appends a new line if the key
// is absent. Every other line (comments, blanks, unrelated keys and their
// quoting) is preserved byte-for-byte. The write is atomic (temp file plus
// rename) so a killed process never leaves a truncated file.
func Upsert(path, key, value string) error {
	rendered := key + "=" + formatValue(value)

	var lines []string
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		lines = strings.Split(string(data), "\n")
		// Drop a single trailing empty element from the final newline.
		if n := len(lines); n > 0 && lines[n-1] == "" {
			lines = lines[:n-1]
		}
	case os.IsNotExist(err):
		// File is created on first write.
	default:
		return fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}

	found := false
	prefix := key + "="
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			lines[i] = rendered
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, rendered)
	}

	return writeAtomic(path, strings.Join(lines, "\n")+"\n")
}

// parseValue strips one layer of surrounding quotes and, for unquoted values,
// a trailing inline comment.
func parseValue(raw string) string {
	v := strings.TrimSpace(raw)
	if isQuoted(v) {
		return v[1 : len(v)-1]
	}
	if i := strings.Index(v, "#"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return v
}

// formatValue normalizes quoting: strip one surrounding pair if present, then
// re-wrap in exactly one pair of double quotes when the value needs it.
func formatValue(value string) string {
	v := strings.TrimSpace(value)
	if isQuoted(v) {
		v = v[1 : len(v)-1]
	}
	if needsQuoting(v) {
		return `"` + v + `"`
	}
	return v
}

func isQuoted(v string) bool {
	if len(v) < 2 {
		return false
	}
	return (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'')
}

// needsQuoting reports whether a bare value would be mangled by a shell or an
// env parser: whitespace or common shell metacharacters.
func needsQuoting(v string) bool {
	if v == "" {
		return false
	}
	return strings.ContainsAny(v, " \t\n#$&|;<>()`'\\*?~!")
}

func writeAtomic(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("envfile: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("envfile: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("envfile: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("envfile: rename: %w", err)
	}
	return nil
}
