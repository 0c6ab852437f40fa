package ai

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxReplyLen = 1800

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

func isGarbageResponse(s string) bool {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "<html"):
		return true
	case strings.Contains(l, "not allowed"):
		return true
	case len(strings.TrimSpace(s)) < 2:
		return true
	}
	return false
}

func truncate(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "..."
	}
	return string(b)
}

// cleanReply strips reasoning blocks and wrapping quotes and keeps the reply
// within a single Discord message.
func cleanReply(reply string) string {
	reply = thinkBlock.ReplaceAllString(reply, "")
	reply = strings.TrimSpace(reply)

	if len(reply) >= 2 {
		quotes := []struct{ open, close string }{
			{`"`, `"`}, {`'`, `'`}, {"“", "”"}, {"‘", "’"},
		}
		for _, q := range quotes {
			if strings.HasPrefix(reply, q.open) && strings.HasSuffix(reply, q.close) {
				reply = strings.TrimSuffix(strings.TrimPrefix(reply, q.open), q.close)
				reply = strings.TrimSpace(reply)
				break
			}
		}
	}

	if utf8.RuneCountInString(reply) > maxReplyLen {
		r := []rune(reply)
		reply = string(r[:maxReplyLen]) + "…"
	}
	return reply
}
