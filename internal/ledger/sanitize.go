package ledger

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sanitizer defaults.
const (
	DefaultMaxMessageLength = 200
	LinkPlaceholder         = "[link]"

	maxRepeat       = 4
	capsMinLetters  = 6
	capsRatio       = 0.7
	ellipsis        = "…"
	displayEdgeSize = 4
)

var linkPattern = regexp.MustCompile(`(?i)(?:https?://|www\.|discord\.gg/|t\.me/)\S*`)

// Sanitizer normalizes viewer messages before they are stored and shown.
type Sanitizer struct {
	maxLength int
	profanity map[string]struct{}
}

// NewSanitizer creates a sanitizer. Profanity matching is case-insensitive and exact per token.
func NewSanitizer(maxLength int, profanity []string) *Sanitizer {
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}
	words := make(map[string]struct{}, len(profanity))
	for _, w := range profanity {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			words[w] = struct{}{}
		}
	}
	return &Sanitizer{maxLength: maxLength, profanity: words}
}

// Clean returns the display form of raw, or false if nothing worth showing remains.
func (s *Sanitizer) Clean(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	text = linkPattern.ReplaceAllString(text, LinkPlaceholder)
	text = collapseRepeats(text, maxRepeat)
	if shouting(text) {
		text = strings.ToLower(text)
	}

	tokens := strings.Fields(text)
	for i, tok := range tokens {
		tokens[i] = s.mask(tok)
	}
	text = strings.Join(tokens, " ")

	if strings.TrimSpace(strings.ReplaceAll(text, LinkPlaceholder, "")) == "" {
		return "", false
	}
	return truncate(text, s.maxLength), true
}

// collapseRepeats shortens runs of more than n identical runes to n.
func collapseRepeats(s string, n int) string {
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run <= n {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// shouting reports whether s has enough letters and mostly upper-case ones.
// Link placeholders are not counted.
func shouting(s string) bool {
	s = strings.ReplaceAll(s, LinkPlaceholder, "")
	letters, upper := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return letters >= capsMinLetters && float64(upper)/float64(letters) > capsRatio
}

// mask replaces a profane token with asterisks, keeping surrounding punctuation.
func (s *Sanitizer) mask(tok string) string {
	if len(s.profanity) == 0 || tok == LinkPlaceholder {
		return tok
	}
	isEdge := func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) }
	start := strings.IndexFunc(tok, func(r rune) bool { return !isEdge(r) })
	if start < 0 {
		return tok
	}
	end := strings.LastIndexFunc(tok, func(r rune) bool { return !isEdge(r) })
	_, size := utf8.DecodeRuneInString(tok[end:])
	end += size

	core := tok[start:end]
	if _, bad := s.profanity[strings.ToLower(core)]; !bad {
		return tok
	}
	return tok[:start] + strings.Repeat("*", utf8.RuneCountInString(core)) + tok[end:]
}

// truncate cuts s to at most limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := strings.TrimRightFunc(string(runes[:limit-1]), unicode.IsSpace)
	return cut + ellipsis
}

// DisplayWallet shortens a wallet address to its first and last four characters.
func DisplayWallet(wallet string) string {
	if utf8.RuneCountInString(wallet) <= 2*displayEdgeSize {
		return wallet
	}
	runes := []rune(wallet)
	return string(runes[:displayEdgeSize]) + "…" + string(runes[len(runes)-displayEdgeSize:])
}
