package transcode

import "fmt"

// SplitOptions splits an option string into arguments the way a POSIX shell
// would for plain words, single quotes, double quotes and backslash escapes.
// No expansion is performed.
func SplitOptions(s string) ([]string, error) {
	var (
		args    []string
		cur     []rune
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur = append(cur, r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur = append(cur, r)
			}
		case quote == '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				cur = append(cur, r)
			}
		case r == '\\':
			escaped = true
			inWord = true
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inWord {
				args = append(args, string(cur))
				cur = cur[:0]
				inWord = false
			}
		default:
			cur = append(cur, r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote in options", quote)
	}
	if escaped {
		return nil, fmt.Errorf("trailing backslash in options")
	}
	if inWord {
		args = append(args, string(cur))
	}
	return args, nil
}
