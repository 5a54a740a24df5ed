package dialect

import "strings"

// SplitStatements splits a script into executable statements. Statements end
// at a semicolon outside quotes and comments, or at a line holding only "go".
// Comments are kept with the statement that follows them; empty statements
// are dropped.
func SplitStatements(script string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote byte
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" && !onlyComments(s) {
			out = append(out, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(script); i++ {
		c := script[i]
		if quote != 0 {
			cur.WriteByte(c)
			if c == quote {
				if i+1 < len(script) && script[i+1] == quote {
					cur.WriteByte(script[i+1])
					i++
				} else {
					quote = 0
				}
			}
			continue
		}
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
			cur.WriteByte(c)
		case c == '[':
			end := strings.IndexByte(script[i:], ']')
			if end < 0 {
				end = len(script) - i - 1
			}
			cur.WriteString(script[i : i+end+1])
			i += end
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			end := strings.IndexByte(script[i:], '\n')
			if end < 0 {
				end = len(script) - i
			}
			cur.WriteString(script[i : i+end])
			i += end - 1
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				cur.WriteString(script[i:])
				i = len(script)
				break
			}
			cur.WriteString(script[i : i+end+4])
			i += end + 3
		case c == ';':
			flush()
		case c == '\n':
			cur.WriteByte(c)
			if isBatchSeparator(script[i+1:]) {
				flush()
				if nl := strings.IndexByte(script[i+1:], '\n'); nl >= 0 {
					i += nl
				} else {
					i = len(script)
				}
			}
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}

// isBatchSeparator reports whether the line starting rest is "go".
func isBatchSeparator(rest string) bool {
	line := rest
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		line = rest[:nl]
	}
	return strings.EqualFold(strings.TrimSpace(line), "go")
}

func onlyComments(s string) bool {
	for s != "" {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "--"):
			nl := strings.IndexByte(s, '\n')
			if nl < 0 {
				return true
			}
			s = s[nl+1:]
		case strings.HasPrefix(s, "/*"):
			end := strings.Index(s, "*/")
			if end < 0 {
				return true
			}
			s = s[end+2:]
		default:
			return s == ""
		}
	}
	return true
}
