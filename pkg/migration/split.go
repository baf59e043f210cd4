package migration

import "strings"

// splitStatements breaks a SQL script into individual statements on
// semicolons, honoring single quotes, double quotes, backticks and line
// comments so a semicolon inside a literal never splits. Empty and
// comment-only fragments are dropped.
func splitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      rune // active quote char, 0 when outside literals
		inComment  bool
	)

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if inComment {
			current.WriteRune(ch)
			if ch == '\n' {
				inComment = false
			}
			continue
		}

		switch {
		case quote != 0:
			current.WriteRune(ch)
			if ch == quote {
				// Doubled quote chars escape inside literals.
				if i+1 < len(runes) && runes[i+1] == quote {
					current.WriteRune(runes[i+1])
					i++
				} else {
					quote = 0
				}
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			current.WriteRune(ch)
		case ch == '-' && i+1 < len(runes) && runes[i+1] == '-':
			inComment = true
			current.WriteRune(ch)
		case ch == ';':
			if stmt := cleanStatement(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	if stmt := cleanStatement(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}

// cleanStatement trims a fragment and discards it when nothing but
// comments and whitespace remain.
func cleanStatement(fragment string) string {
	trimmed := strings.TrimSpace(fragment)
	if trimmed == "" {
		return ""
	}
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return trimmed
		}
	}
	return ""
}
