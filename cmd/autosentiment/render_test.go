package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
)

func init() {
	color.NoColor = true
}

func TestRenderResult(t *testing.T) {
	a := domain.ProductAnalysis{
		ReviewCount: 12,
		Aspects:     []domain.AspectScore{{Aspect: domain.AspectCamera, Score: 81, Support: 6}},
		Overall:     7.3,
		HasOverall:  true,
	}
	res := domain.ComparisonResult{
		QueryID: "q-1",
		Winner:  "Pixel 8",
		Products: []domain.ProductReport{
			{
				Query:     domain.ProductQuery{RawName: "Pixel 8"},
				Status:    domain.StatusOK,
				Analysis:  &a,
				Strengths: []domain.Aspect{domain.AspectCamera},
				Samples:   []domain.SampleReview{{Text: "कैमरा   बढ़िया है", Aspect: domain.AspectCamera, Language: domain.LanguageHindi}},
			},
			{Query: domain.ProductQuery{RawName: "Galaxy M34"}, Status: domain.StatusFailed, Reason: "provider unavailable"},
		},
		Versions: domain.Versions{Provider: "dataset/abc", Analyzer: "lexical"},
		Elapsed:  1500 * time.Millisecond,
	}

	var buf bytes.Buffer
	renderResult(&buf, res)
	out := buf.String()

	for _, want := range []string{
		"Winner: Pixel 8",
		"#1 Pixel 8  7.3/10 positive  (12 reviews)",
		"Camera          81%",
		"strengths: Camera",
		"[Camera/hi] कैमरा बढ़िया है",
		"[failed] Galaxy M34",
		"provider unavailable",
		"query q-1 | provider dataset/abc | analyzer lexical | 1.5s",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output misses %q:\n%s", want, out)
		}
	}
}

func TestRenderResultWithoutWinner(t *testing.T) {
	var buf bytes.Buffer
	renderResult(&buf, domain.ComparisonResult{})
	if !strings.Contains(buf.String(), "No winner") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("अ", 200)
	got := []rune(snippet(long))
	if len(got) != maxSnippetRn {
		t.Fatalf("snippet length = %d, want %d", len(got), maxSnippetRn)
	}
	if snippet(" a  b ") != "a b" {
		t.Fatalf("whitespace not collapsed")
	}
}
