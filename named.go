package xrecord

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Placeholder selects how "@name" placeholders reach the driver.
//
//   - PlaceholderNamed     → "@name" untouched, args as sql.NamedArg (SQL Server)
//   - PlaceholderQuestion  → "?"          (MySQL, SQLite)
//   - PlaceholderDollar    → "$1, $2, …"  (PostgreSQL)
//   - PlaceholderAtP       → "@p1, @p2…"  (SQL Server, positional)
//   - PlaceholderColonNum  → ":1, :2, …"  (Oracle)
type Placeholder int

const (
	PlaceholderNamed Placeholder = iota
	PlaceholderQuestion
	PlaceholderDollar
	PlaceholderAtP
	PlaceholderColonNum
)

// PlaceholderFor picks a Placeholder based on a driver name.
//
//	ph := xrecord.PlaceholderFor("sqlserver") // => PlaceholderNamed
//	ph := xrecord.PlaceholderFor("pgx")       // => PlaceholderDollar
//	ph := xrecord.PlaceholderFor("mysql")     // => PlaceholderQuestion
func PlaceholderFor(driverName string) Placeholder {
	switch strings.ToLower(driverName) {
	case "sqlserver", "mssql", "azuresql":
		return PlaceholderNamed
	case "pgx", "postgres", "postgresql", "lib/pq", "pg":
		return PlaceholderDollar
	case "godror", "oracle", "goracle":
		return PlaceholderColonNum
	default:
		return PlaceholderQuestion
	}
}

// Bind prepares bound parameters for a driver. With PlaceholderNamed the
// query is returned unchanged and every parameter becomes a sql.NamedArg.
// Positional styles rewrite each "@name" occurrence in order of appearance
// and pass plain values; a name used twice repeats its value. A placeholder
// without a bound parameter fails with ErrMissingParam.
func Bind(query string, bound []*BoundParam, ph Placeholder) (string, []any, error) {
	named := make(map[string]sql.NamedArg, len(bound))
	args := make([]any, 0, len(bound))
	for _, b := range bound {
		a, err := b.Arg()
		if err != nil {
			return "", nil, err
		}
		named[a.Name] = a
		args = append(args, a)
	}
	if ph == PlaceholderNamed {
		return query, args, nil
	}

	toks, err := findPlaceholders(query)
	if err != nil {
		return "", nil, err
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	pos := make([]any, 0, len(toks))
	last := 0
	for n, t := range toks {
		a, ok := named[t.name]
		if !ok {
			return "", nil, fmt.Errorf("%w: @%s", ErrMissingParam, t.name)
		}
		b.WriteString(query[last:t.start])
		switch ph {
		case PlaceholderDollar:
			b.WriteString("$" + strconv.Itoa(n+1))
		case PlaceholderAtP:
			b.WriteString("@p" + strconv.Itoa(n+1))
		case PlaceholderColonNum:
			b.WriteString(":" + strconv.Itoa(n+1))
		default:
			b.WriteByte('?')
		}
		pos = append(pos, a.Value)
		last = t.end
	}
	b.WriteString(query[last:])
	return b.String(), pos, nil
}

// FindPlaceholders returns the names of the "@name" placeholders in query,
// without the "@", in order of appearance.
func FindPlaceholders(query string) ([]string, error) {
	toks, err := findPlaceholders(query)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(toks))
	for i, t := range toks {
		names[i] = t.name
	}
	return names, nil
}

type nameToken struct {
	name  string
	start int
	end   int
}

// findPlaceholders lexes "@name" tokens, skipping string literals, quoted
// and bracketed identifiers, comments and "@@" system variables.
func findPlaceholders(query string) ([]nameToken, error) {
	var out []nameToken
	i := 0
	for i < len(query) {
		r, w := utf8.DecodeRuneInString(query[i:])
		switch r {
		case '\'':
			j, err := skipQuoted(query, i+w, '\'', "string")
			if err != nil {
				return nil, err
			}
			i = j
			continue
		case '"':
			j, err := skipQuoted(query, i+w, '"', "double-quoted identifier")
			if err != nil {
				return nil, err
			}
			i = j
			continue
		case '[':
			j, err := skipQuoted(query, i+w, ']', "bracketed identifier")
			if err != nil {
				return nil, err
			}
			i = j
			continue
		case '-':
			if hasPrefix(query[i:], "--") {
				i = skipLineComment(query, i+2)
				continue
			}
		case '/':
			if hasPrefix(query[i:], "/*") {
				j, err := skipBlockComment(query, i+2)
				if err != nil {
					return nil, err
				}
				i = j
				continue
			}
		case '@':
			if hasPrefix(query[i:], "@@") {
				_, end := parseIdent(query, i+2)
				i = end
				continue
			}
			name, end := parseIdent(query, i+1)
			if name != "" {
				out = append(out, nameToken{name: name, start: i, end: end})
				i = end
				continue
			}
		}
		i += w
	}
	return out, nil
}

// skipQuoted skips to just past the closing quote q. A doubled quote is an
// escaped one.
func skipQuoted(s string, i int, q byte, what string) (int, error) {
	for i < len(s) {
		c := s[i]
		i++
		if c == q {
			if i < len(s) && s[i] == q {
				i++
				continue
			}
			return i, nil
		}
	}
	return 0, fmt.Errorf("xrecord: unterminated %s", what)
}

func skipLineComment(s string, i int) int {
	for i < len(s) {
		if s[i] == '\n' {
			return i + 1
		}
		i++
	}
	return i
}

func skipBlockComment(s string, i int) (int, error) {
	for i < len(s)-1 {
		if s[i] == '*' && s[i+1] == '/' {
			return i + 2, nil
		}
		i++
	}
	return 0, fmt.Errorf("xrecord: unterminated block comment")
}

func hasPrefix(s, p string) bool { return len(s) >= len(p) && s[:len(p)] == p }

func parseIdent(s string, i int) (string, int) {
	start := i
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		if !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			break
		}
		i += w
	}
	if i == start {
		return "", i
	}
	return s[start:i], i
}
