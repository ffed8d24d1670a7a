// Package normalizer labels reviews with their language and canonicalizes script, punctuation and whitespace.
package normalizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
)

const (
	// DefaultMarathiThreshold is the share of Marathi hints needed to label a Devanagari review Marathi.
	DefaultMarathiThreshold = 0.6

	virama = '\u094d'
	nukta  = '\u093c'
	zwnj   = '\u200c'
	zwj    = '\u200d'
	vs16   = '\ufe0f'
)

var (
	urlExpr     = regexp.MustCompile(`(?i)(https?://|www\.)\S+`)
	handleExpr  = regexp.MustCompile(`(^|\s)[@#][\p{L}\p{M}\p{N}_]+`)
	repeatPunct = regexp.MustCompile(`([!?,।.])[!?,।.]*`)
)

var defaultMarathiHints = []string{
	"आहे", "आहेत", "नाही", "नाहीत", "खूप", "छान", "आणि", "मध्ये", "पण", "चांगला", "चांगली", "चांगले",
	"होते", "होता", "किंवा", "साठी", "पासून", "जास्त", "कमी", "लवकर", "संपते", "वाटते", "झाला", "झाली",
	"अतिशय", "किंमत", "महाग", "परवडणारी", "उत्तम", "मस्तच", "अजिबात", "एकदम",
}

var defaultHindiHints = []string{
	"है", "हैं", "था", "थी", "थे", "नहीं", "बहुत", "का", "की", "के", "और", "में", "से", "को", "पर",
	"यह", "वह", "अच्छा", "अच्छी", "बढ़िया", "भी", "लेकिन", "बिल्कुल", "ज्यादा", "कम", "जल्दी", "जाती", "जाता",
	"कीमत", "शानदार", "बेकार", "खराब",
}

// Normalizer performs language detection and text canonicalization. It is safe for concurrent use.
type Normalizer struct {
	marathiHints map[string]struct{}
	hindiHints   map[string]struct{}
	threshold    float64
}

// Option customizes a Normalizer.
type Option func(*Normalizer)

// WithMarathiHints replaces the Marathi-distinctive token set. An empty list keeps the built-in set.
func WithMarathiHints(tokens []string) Option {
	return func(n *Normalizer) {
		if set := buildSet(tokens); len(set) > 0 {
			n.marathiHints = set
		}
	}
}

// WithHindiHints replaces the Hindi-distinctive token set. An empty list keeps the built-in set.
func WithHindiHints(tokens []string) Option {
	return func(n *Normalizer) {
		if set := buildSet(tokens); len(set) > 0 {
			n.hindiHints = set
		}
	}
}

// WithMarathiThreshold overrides the Marathi confidence threshold.
func WithMarathiThreshold(v float64) Option {
	return func(n *Normalizer) {
		if v > 0 && v <= 1 {
			n.threshold = v
		}
	}
}

// New builds a Normalizer with the built-in hint sets.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		marathiHints: buildSet(defaultMarathiHints),
		hindiHints:   buildSet(defaultHindiHints),
		threshold:    DefaultMarathiThreshold,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize derives a NormalizedReview from a raw provider record.
func (n *Normalizer) Normalize(raw domain.RawReview) domain.NormalizedReview {
	text := Text(raw.Text)
	tokens := Tokenize(text)
	lang, confidence := n.detect(text, tokens)

	rating := raw.Rating
	if !domain.ValidRating(rating) {
		rating = 0
	}

	return domain.NormalizedReview{
		ID:                 raw.SourceID,
		Original:           strings.TrimSpace(raw.Text),
		Text:               text,
		Tokens:             tokens,
		Language:           lang,
		LanguageConfidence: confidence,
		Rating:             rating,
		Timestamp:          raw.Timestamp,
	}
}

// Detect labels already normalized text.
func (n *Normalizer) Detect(text string) (domain.Language, float64) {
	return n.detect(text, Tokenize(text))
}

func (n *Normalizer) detect(text string, tokens []string) (domain.Language, float64) {
	var devanagari, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Devanagari, r) && (unicode.IsLetter(r) || unicode.IsMark(r)):
			devanagari++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}

	if devanagari == 0 || devanagari < latin {
		total := devanagari + latin
		if total == 0 {
			return domain.LanguageOther, 0
		}
		return domain.LanguageOther, float64(latin) / float64(total)
	}

	var marathi, hindi int
	for _, tok := range tokens {
		if _, ok := n.marathiHints[tok]; ok || hasMarathiMarker(tok) {
			marathi++
			continue
		}
		if _, ok := n.hindiHints[tok]; ok {
			hindi++
		}
	}

	if marathi+hindi == 0 {
		return domain.LanguageHindi, 0.5
	}

	share := float64(marathi) / float64(marathi+hindi)
	if share >= n.threshold {
		return domain.LanguageMarathi, share
	}
	return domain.LanguageHindi, 1 - share
}

// hasMarathiMarker spots letters that Hindi orthography does not use: ळ and the candra-e sign in कॅमेरा, बॅटरी.
func hasMarathiMarker(token string) bool {
	return strings.ContainsRune(token, 'ळ') || strings.ContainsRune(token, 'ॅ')
}

// Text canonicalizes review text. Text(Text(s)) == Text(s) for every s.
func Text(s string) string {
	s = norm.NFC.String(s)
	s = urlExpr.ReplaceAllString(s, " ")
	s = stripHandles(foldRunes(s))
	s = repeatPunct.ReplaceAllString(s, "$1")
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// stripHandles removes @mentions and #hashtags. Matches do not overlap, so adjacent handles
// such as "#a#b" need another pass.
func stripHandles(s string) string {
	for {
		out := handleExpr.ReplaceAllString(s, "$1 ")
		if out == s {
			return out
		}
		s = out
	}
}

// Name canonicalizes a product name for deduplication: case-insensitive and whitespace-collapsed.
func Name(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Tokenize splits normalized text into word and emoji tokens.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'' && r != '-')
	})

	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'-")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func foldRunes(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))

	var (
		prev      rune
		inEmoji   bool
		flagRunes int
	)
	emit := func(r rune) {
		b.WriteRune(r)
		prev = r
	}

	for i, r := range runes {
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case r == '\u200b' || r == '\ufeff' || r == '\u2060':
			continue
		case r == zwj && inEmoji && isEmoji(next):
			emit(r)
			continue
		case r == zwj || r == zwnj:
			if prev == virama && isDevanagariLetter(next) {
				emit(r)
			}
			continue
		case r == nukta && isFoldableConsonant(prev):
			continue
		case r == vs16 && inEmoji:
			emit(r)
			continue
		case isSkinTone(r) && inEmoji:
			emit(r)
			continue
		}

		if isEmoji(r) {
			regional := r >= 0x1F1E6 && r <= 0x1F1FF
			joined := prev == zwj || (regional && flagRunes%2 == 1)
			if !joined && prev != 0 && prev != ' ' {
				emit(' ')
			}
			if regional {
				flagRunes++
			} else {
				flagRunes = 0
			}
			inEmoji = true
			emit(r)
			continue
		}

		if inEmoji && !unicode.IsSpace(r) {
			emit(' ')
		}
		inEmoji = false
		flagRunes = 0
		emit(canonicalRune(r))
	}
	return b.String()
}

func canonicalRune(r rune) rune {
	switch r {
	case '‘', '’', '‛', '`':
		return '\''
	case '“', '”', '„':
		return '"'
	case '–', '—', '−':
		return '-'
	case '…':
		return '.'
	case '॥':
		return '।'
	}
	if unicode.IsSpace(r) {
		return ' '
	}
	if unicode.Is(unicode.Latin, r) {
		return unicode.ToLower(r)
	}
	return r
}

func isFoldableConsonant(r rune) bool {
	switch r {
	case 'क', 'ख', 'ग', 'ज', 'फ':
		return true
	}
	return false
}

func isDevanagariLetter(r rune) bool {
	return unicode.Is(unicode.Devanagari, r) && unicode.IsLetter(r)
}

func isSkinTone(r rune) bool {
	return r >= 0x1F3FB && r <= 0x1F3FF
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF:
		return !isSkinTone(r)
	case r >= 0x1F1E6 && r <= 0x1F1FF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r == 0x2B50 || r == 0x2B55 || r == 0x2764:
		return true
	}
	return false
}

func buildSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		t = Text(t)
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}
