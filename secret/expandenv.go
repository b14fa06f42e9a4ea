package secret

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// ExpandEnv substitutes environment references in s.
//
//   - ${VAR} is replaced by the value of VAR; an unset VAR is an error.
//   - ${VAR:-fallback} uses fallback when VAR is unset or empty.
//   - $$ produces a literal $. Any other $ is kept as is.
//
// Every missing variable is reported in one error.
func ExpandEnv(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var (
		b       strings.Builder
		missing []string
	)
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '$' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case '$':
			b.WriteByte('$')
			i++
		case '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				b.WriteString(s[i:])
				i = len(s)
				continue
			}
			body := s[i+2 : i+2+end]
			name, fallback, hasFallback := strings.Cut(body, ":-")
			if !validEnvName(name) {
				b.WriteString(s[i : i+3+end])
			} else if v, ok := os.LookupEnv(name); ok && (v != "" || !hasFallback) {
				b.WriteString(v)
			} else if hasFallback {
				b.WriteString(fallback)
			} else if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
			i += 2 + end
		default:
			b.WriteByte('$')
		}
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("secret: missing environment variables: %s", strings.Join(missing, ", "))
	}
	return b.String(), nil
}

func validEnvName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
