// Package lexicon loads the aspect triggers, disambiguation rules and polarity terms used by the analyzer.
package lexicon

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/normalizer"
)

//go:embed default.yaml
var defaultLexicon []byte

// Script tags used by lexicon entries. "en" covers Latin-script text, romanized Hindi and Marathi included.
const (
	LangHindi   = "hi"
	LangMarathi = "mr"
	LangLatin   = "en"
)

// AspectTerm is a (possibly multi-token) trigger for an aspect.
type AspectTerm struct {
	Tokens     []string
	Aspect     domain.Aspect
	Confidence float64
	Lang       string
}

// PolarTerm is a sentiment-bearing term.
type PolarTerm struct {
	Tokens   []string
	Polarity float64
}

// Context assigns an aspect to a rule term when one of Near occurs in the rule window.
type Context struct {
	Aspect     domain.Aspect
	Confidence float64
	Near       map[string]struct{}
}

// Rule disambiguates a term whose aspect depends on its neighbours.
type Rule struct {
	Term     string
	Window   int
	Contexts []Context
	Default  *Context
}

// Resolve evaluates the rule for the token at position i.
func (r Rule) Resolve(tokens []string, i int) (domain.Aspect, float64, bool) {
	lo, hi := max(0, i-r.Window), min(len(tokens), i+r.Window+1)
	for _, c := range r.Contexts {
		for j := lo; j < hi; j++ {
			if j == i {
				continue
			}
			if _, ok := c.Near[tokens[j]]; ok {
				return c.Aspect, c.Confidence, true
			}
		}
	}
	if r.Default != nil {
		return r.Default.Aspect, r.Default.Confidence, true
	}
	return "", 0, false
}

// Lexicon is an immutable, indexed lexicon. It is safe for concurrent use.
type Lexicon struct {
	version      string
	penalty      float64
	floor        float64
	aspects      map[string][]AspectTerm
	rules        map[string]Rule
	polarity     map[string][]PolarTerm
	negators     map[string]struct{}
	intensifiers map[string]struct{}
	hints        map[string][]string
}

type fileFormat struct {
	CrossLanguagePenalty float64 `yaml:"crossLanguagePenalty"`
	ConfidenceFloor      float64 `yaml:"confidenceFloor"`
	Aspects              []struct {
		Aspect string                        `yaml:"aspect"`
		Terms  map[string]map[string]float64 `yaml:"terms"`
	} `yaml:"aspects"`
	Rules []struct {
		Term     string        `yaml:"term"`
		Window   int           `yaml:"window"`
		Contexts []contextSpec `yaml:"contexts"`
		Default  *contextSpec  `yaml:"default"`
	} `yaml:"rules"`
	Polarity     map[string]map[string]float64 `yaml:"polarity"`
	Negators     map[string][]string           `yaml:"negators"`
	Intensifiers map[string][]string           `yaml:"intensifiers"`
	// LanguageHints replaces the normalizer's Devanagari hint sets per language.
	LanguageHints map[string][]string `yaml:"languageHints"`
}

type contextSpec struct {
	Aspect     string   `yaml:"aspect"`
	Confidence float64  `yaml:"confidence"`
	Near       []string `yaml:"near"`
}

// Default returns the built-in lexicon.
func Default() *Lexicon {
	lex, err := Parse(defaultLexicon)
	if err != nil {
		panic(fmt.Sprintf("lexicon: built-in lexicon is invalid: %v", err))
	}
	return lex
}

// Load reads a lexicon file. An empty path yields the built-in lexicon.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse builds a Lexicon from YAML. Every term is normalized the same way review text is.
func Parse(raw []byte) (*Lexicon, error) {
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	sum := sha256.Sum256(raw)
	lex := &Lexicon{
		version:      "lex-" + hex.EncodeToString(sum[:])[:12],
		penalty:      f.CrossLanguagePenalty,
		floor:        f.ConfidenceFloor,
		aspects:      make(map[string][]AspectTerm),
		rules:        make(map[string]Rule),
		polarity:     make(map[string][]PolarTerm),
		negators:     make(map[string]struct{}),
		intensifiers: make(map[string]struct{}),
		hints:        make(map[string][]string),
	}
	if lex.penalty <= 0 || lex.penalty > 1 {
		lex.penalty = 1
	}
	if lex.floor < 0 || lex.floor >= 1 {
		return nil, fmt.Errorf("lexicon: confidence floor %v out of range", f.ConfidenceFloor)
	}

	for _, group := range f.Aspects {
		aspect, ok := domain.ParseAspect(group.Aspect)
		if !ok || !aspect.Ranked() {
			return nil, fmt.Errorf("lexicon: unknown aspect %q", group.Aspect)
		}
		for lang, terms := range group.Terms {
			if err := checkLang(lang); err != nil {
				return nil, err
			}
			for term, conf := range terms {
				if conf <= 0 || conf > 1 {
					return nil, fmt.Errorf("lexicon: %s/%q confidence %v out of range", aspect, term, conf)
				}
				tokens := normalizer.Tokenize(normalizer.Text(term))
				if len(tokens) == 0 {
					continue
				}
				lex.aspects[tokens[0]] = append(lex.aspects[tokens[0]], AspectTerm{
					Tokens: tokens, Aspect: aspect, Confidence: conf, Lang: strings.ToLower(lang),
				})
			}
		}
	}

	for _, spec := range f.Rules {
		tokens := normalizer.Tokenize(normalizer.Text(spec.Term))
		if len(tokens) != 1 {
			return nil, fmt.Errorf("lexicon: rule term %q must be a single token", spec.Term)
		}
		rule := Rule{Term: tokens[0], Window: spec.Window}
		if rule.Window <= 0 {
			rule.Window = 4
		}
		for _, c := range spec.Contexts {
			ctx, err := buildContext(c)
			if err != nil {
				return nil, err
			}
			rule.Contexts = append(rule.Contexts, ctx)
		}
		if spec.Default != nil {
			ctx, err := buildContext(*spec.Default)
			if err != nil {
				return nil, err
			}
			rule.Default = &ctx
		}
		lex.rules[rule.Term] = rule
	}

	for lang, terms := range f.Polarity {
		if err := checkLang(lang); err != nil {
			return nil, err
		}
		for term, polarity := range terms {
			if polarity == 0 || polarity < -1 || polarity > 1 {
				return nil, fmt.Errorf("lexicon: polarity of %q must be in [-1, 1] and non-zero", term)
			}
			tokens := normalizer.Tokenize(normalizer.Text(term))
			if len(tokens) == 0 {
				continue
			}
			lex.polarity[tokens[0]] = append(lex.polarity[tokens[0]], PolarTerm{Tokens: tokens, Polarity: polarity})
		}
	}

	fillSet(lex.negators, f.Negators)
	fillSet(lex.intensifiers, f.Intensifiers)

	for lang, terms := range f.LanguageHints {
		lang = strings.ToLower(lang)
		if lang != LangHindi && lang != LangMarathi {
			return nil, fmt.Errorf("lexicon: language hints only apply to %s and %s, got %q", LangHindi, LangMarathi, lang)
		}
		for _, t := range terms {
			lex.hints[lang] = append(lex.hints[lang], normalizer.Tokenize(normalizer.Text(t))...)
		}
	}

	// Longest phrase first, then a stable order so matching never depends on map iteration.
	for k, terms := range lex.aspects {
		sort.Slice(terms, func(i, j int) bool {
			a, b := terms[i], terms[j]
			if len(a.Tokens) != len(b.Tokens) {
				return len(a.Tokens) > len(b.Tokens)
			}
			if a.Confidence != b.Confidence {
				return a.Confidence > b.Confidence
			}
			if a.Lang != b.Lang {
				return a.Lang < b.Lang
			}
			return a.Aspect.Index() < b.Aspect.Index()
		})
		lex.aspects[k] = terms
	}
	for k, terms := range lex.polarity {
		sort.Slice(terms, func(i, j int) bool {
			if len(terms[i].Tokens) != len(terms[j].Tokens) {
				return len(terms[i].Tokens) > len(terms[j].Tokens)
			}
			return terms[i].Polarity < terms[j].Polarity
		})
		lex.polarity[k] = terms
	}

	return lex, nil
}

// Hints returns the language hint tokens configured for lang, or nil when the built-in set applies.
func (l *Lexicon) Hints(lang string) []string {
	return append([]string(nil), l.hints[lang]...)
}

// Version identifies the lexicon content.
func (l *Lexicon) Version() string { return l.version }

// CrossLanguagePenalty multiplies the confidence of a Hindi trigger found in a Marathi review and vice versa.
func (l *Lexicon) CrossLanguagePenalty() float64 { return l.penalty }

// ConfidenceFloor is the minimum mention confidence worth emitting.
func (l *Lexicon) ConfidenceFloor() float64 { return l.floor }

// Rule returns the disambiguation rule for a token.
func (l *Lexicon) Rule(token string) (Rule, bool) {
	r, ok := l.rules[token]
	return r, ok
}

// AspectsAt returns every aspect term matching tokens at position i, longest first.
func (l *Lexicon) AspectsAt(tokens []string, i int) []AspectTerm {
	var out []AspectTerm
	for _, t := range l.aspects[tokens[i]] {
		if hasPrefixAt(tokens, i, t.Tokens) {
			out = append(out, t)
		}
	}
	return out
}

// PolarityAt returns the longest polarity term matching tokens at position i.
func (l *Lexicon) PolarityAt(tokens []string, i int) (PolarTerm, bool) {
	for _, t := range l.polarity[tokens[i]] {
		if hasPrefixAt(tokens, i, t.Tokens) {
			return t, true
		}
	}
	return PolarTerm{}, false
}

// IsNegator reports whether the token flips polarity.
func (l *Lexicon) IsNegator(token string) bool {
	_, ok := l.negators[token]
	return ok
}

// IsIntensifier reports whether the token amplifies polarity.
func (l *Lexicon) IsIntensifier(token string) bool {
	_, ok := l.intensifiers[token]
	return ok
}

func hasPrefixAt(tokens []string, i int, phrase []string) bool {
	if i+len(phrase) > len(tokens) {
		return false
	}
	for k, p := range phrase {
		if tokens[i+k] != p {
			return false
		}
	}
	return true
}

func buildContext(spec contextSpec) (Context, error) {
	aspect, ok := domain.ParseAspect(spec.Aspect)
	if !ok || !aspect.Ranked() {
		return Context{}, fmt.Errorf("lexicon: unknown rule aspect %q", spec.Aspect)
	}
	if spec.Confidence <= 0 || spec.Confidence > 1 {
		return Context{}, fmt.Errorf("lexicon: rule confidence %v out of range", spec.Confidence)
	}
	near := make(map[string]struct{}, len(spec.Near))
	for _, n := range spec.Near {
		for _, tok := range normalizer.Tokenize(normalizer.Text(n)) {
			near[tok] = struct{}{}
		}
	}
	return Context{Aspect: aspect, Confidence: spec.Confidence, Near: near}, nil
}

func checkLang(lang string) error {
	switch strings.ToLower(lang) {
	case LangHindi, LangMarathi, LangLatin:
		return nil
	}
	return fmt.Errorf("lexicon: unknown language %q", lang)
}

func fillSet(dst map[string]struct{}, src map[string][]string) {
	for _, terms := range src {
		for _, t := range terms {
			for _, tok := range normalizer.Tokenize(normalizer.Text(t)) {
				dst[tok] = struct{}{}
			}
		}
	}
}
