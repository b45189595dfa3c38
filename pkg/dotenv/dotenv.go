// Package dotenv implements the dotenv wire format used by the Vezor
// export and import endpoints and the CLI pull command.
//
// The format is deliberately minimal: KEY=VALUE lines, # comments, and
// one optional pair of surrounding quotes on values. Values pass through
// verbatim, so the encoding is only reversible for single-line values.
package dotenv

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Encode renders values as KEY=VALUE lines. Keys are sorted so output is
// deterministic. Embedded newlines or '=' characters in values are not
// escaped.
func Encode(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, values[k])
	}
	return b.String()
}

// EncodeExport renders values as shell-sourceable export statements with
// single-quoted values.
func EncodeExport(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "export %s='%s'\n", k, strings.ReplaceAll(values[k], "'", `'\''`))
	}
	return b.String()
}

// Decode parses dotenv text into a map. Per line: surrounding whitespace
// is trimmed, blank lines and # comments are skipped, key and value
// split on the first '=', and one matching pair of surrounding single or
// double quotes is stripped from the value. Lines without '=' or with an
// empty key are skipped silently, so a partially damaged file still
// yields its intact entries.
func Decode(data string) map[string]string {
	values := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		values[key] = unquote(strings.TrimSpace(parts[1]))
	}
	return values
}

// unquote strips one matching pair of surrounding quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// DecodeFile reads and decodes a dotenv file.
func DecodeFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(string(data)), nil
}

// WriteFile encodes values to a dotenv file with owner-only permissions.
func WriteFile(path string, values map[string]string) error {
	return os.WriteFile(path, []byte(Encode(values)), 0o600)
}
