package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/mattn/go-shellwords"
)

// handlerFunc runs one matched command. rest is the untouched remainder of
// the message after the command prefix; args is rest tokenised.
type handlerFunc func(ctx context.Context, c *call) (string, error)

// command is one catalogue entry. Lower Priority values are tested first.
type command struct {
	Name     string
	Priority int
	Prefixes []string
	MinArgs  int
	Usage    string
	Help     string
	// Literal commands carry user content, so their arguments are split
	// without shell escape processing.
	Literal bool
	handler handlerFunc
}

// call is the per-invocation state handed to a handler.
type call struct {
	cmd  *command
	req  Request
	rest string
	args []string
}

// arg returns args[i] or def when absent.
func (c *call) arg(i int, def string) string {
	if i < len(c.args) {
		return c.args[i]
	}
	return def
}

// joined returns the remainder as a single value: the sole token when the
// user quoted it, otherwise the raw text.
func (c *call) joined() string {
	if len(c.args) == 1 {
		return c.args[0]
	}
	return c.rest
}

// table is an ordered, validated command catalogue.
type table struct {
	cmds []*command
}

// newTable sorts cmds by priority and rejects catalogues in which a shorter
// prefix would be tested before a longer prefix that extends it.
func newTable(cmds []*command) (*table, error) {
	sorted := make([]*command, len(cmds))
	copy(sorted, cmds)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	seen := make(map[int]string, len(sorted))
	for _, c := range sorted {
		if other, dup := seen[c.Priority]; dup {
			return nil, fmt.Errorf("commands %q and %q share priority %d", other, c.Name, c.Priority)
		}
		seen[c.Priority] = c.Name
	}

	for i, early := range sorted {
		for _, late := range sorted[i+1:] {
			for _, ep := range early.Prefixes {
				for _, lp := range late.Prefixes {
					if ep != lp && wordPrefix(words(ep), words(lp)) {
						return nil, fmt.Errorf("command %q (%q) shadows %q (%q): give the longer prefix a lower priority",
							early.Name, ep, late.Name, lp)
					}
				}
			}
		}
	}
	return &table{cmds: sorted}, nil
}

// match returns the first command whose prefix begins msg on word
// boundaries, case-insensitively, plus the remainder after the prefix.
func (t *table) match(msg string) (*command, string) {
	for _, c := range t.cmds {
		for _, p := range c.Prefixes {
			if rest, ok := matchWords(msg, words(p)); ok {
				return c, rest
			}
		}
	}
	return nil, ""
}

func words(s string) []string { return strings.Fields(strings.ToLower(s)) }

// wordPrefix reports whether a is a proper word-wise prefix of b.
func wordPrefix(a, b []string) bool {
	if len(a) >= len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// matchWords consumes want from the start of msg, one whitespace-separated
// word at a time. Each word must be followed by whitespace or end of input.
func matchWords(msg string, want []string) (string, bool) {
	s := msg
	for _, w := range want {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if len(s) < len(w) || !strings.EqualFold(s[:len(w)], w) {
			return "", false
		}
		s = s[len(w):]
		if s != "" && !startsWithSpace(s) {
			return "", false
		}
	}
	return strings.TrimSpace(s), true
}

func startsWithSpace(s string) bool {
	for _, r := range s {
		return unicode.IsSpace(r)
	}
	return false
}

// splitArgs tokenises with shell quoting rules so names may contain spaces.
// Unbalanced quotes fall back to plain whitespace splitting.
func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	p := shellwords.NewParser()
	p.ParseEnv = false
	p.ParseBacktick = false
	args, err := p.Parse(s)
	if err != nil {
		return strings.Fields(s)
	}
	return args
}

// literalArgs splits s on whitespace. A token opening with ' or " runs to the
// matching quote that ends a word and loses the quotes; nothing is unescaped.
// An unterminated quote is kept as literal text.
func literalArgs(s string) []string {
	var out []string
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return out
		}
		if q := s[0]; q == '"' || q == '\'' {
			if end := closingQuote(s, q); end > 0 {
				out = append(out, s[1:end])
				s = s[end+1:]
				continue
			}
		}
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			return append(out, s)
		}
		out = append(out, s[:end])
		s = s[end:]
	}
}

// closingQuote returns the index of the first q after s[0] that is followed by
// whitespace or end of input, or -1.
func closingQuote(s string, q byte) int {
	for i := 1; i < len(s); i++ {
		if s[i] == q && (i+1 == len(s) || startsWithSpace(s[i+1:])) {
			return i
		}
	}
	return -1
}
