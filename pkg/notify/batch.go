package notify

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const separator = "\n\n"

// Batch packs messages into as few chunks as possible without exceeding maxLen runes per chunk.
// Order is kept. A message longer than maxLen is split across chunks of its own.
func Batch(messages []string, maxLen int) []string {
	if maxLen <= 0 {
		return append([]string(nil), messages...)
	}
	sepLen := utf8.RuneCountInString(separator)
	var out []string
	var cur string
	curLen := 0
	flush := func() {
		if curLen > 0 {
			out = append(out, cur)
			cur, curLen = "", 0
		}
	}
	for _, msg := range messages {
		n := utf8.RuneCountInString(msg)
		if n == 0 {
			continue
		}
		if n > maxLen {
			flush()
			out = append(out, split(msg, maxLen)...)
			continue
		}
		if curLen > 0 && curLen+sepLen+n > maxLen {
			flush()
		}
		if curLen == 0 {
			cur, curLen = msg, n
			continue
		}
		cur += separator + msg
		curLen += sepLen + n
	}
	flush()
	return out
}

// split breaks an oversized message at a newline, then a space, then any point outside markup.
// A chunk never ends inside a tag, an entity or an open element, so each chunk stays valid HTML.
func split(msg string, maxLen int) []string {
	runes := []rune(msg)
	var out []string
	for len(runes) > maxLen {
		end, skip := cutPoint(runes, maxLen)
		out = append(out, string(runes[:end]))
		runes = runes[end+skip:]
		for len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

// cutPoint returns where to end the next chunk and how many separator runes to drop after it.
func cutPoint(runes []rune, maxLen int) (end, skip int) {
	var inTag, inEntity bool
	depth, tagStart := 0, 0
	newline, space, safe := -1, -1, -1

	for i := 0; i <= maxLen; i++ {
		if i > 0 && !inTag && !inEntity && depth == 0 {
			safe = i
			switch runes[i] {
			case '\n':
				newline = i
			case ' ':
				space = i
			}
		}
		if i == maxLen {
			break
		}

		r := runes[i]
		switch {
		case inTag:
			if r == '>' {
				inTag = false
				tag := string(runes[tagStart : i+1])
				switch {
				case strings.HasPrefix(tag, "</"):
					if depth > 0 {
						depth--
					}
				case !strings.HasSuffix(tag, "/>"):
					depth++
				}
			}
		case inEntity:
			if r == ';' || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '#') {
				inEntity = false
			}
		case r == '<':
			inTag, tagStart = true, i
		case r == '&':
			inEntity = true
		}
	}

	switch {
	case newline > 0:
		return newline, 1
	case space > 0:
		return space, 1
	case safe > 0:
		return safe, 0
	}
	return maxLen, 0
}
