package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
)

var (
	headerStyle = color.New(color.Bold)
	winnerStyle = color.New(color.FgGreen, color.Bold)
	failedStyle = color.New(color.FgRed)
	dimStyle    = color.New(color.Faint)
	goodStyle   = color.New(color.FgGreen)
	weakStyle   = color.New(color.FgYellow)
)

const maxSnippetRn = 90

func renderResult(w io.Writer, res domain.ComparisonResult) {
	if res.HasWinner() {
		fmt.Fprintf(w, "%s %s\n", headerStyle.Sprint("Winner:"), winnerStyle.Sprint(res.Winner))
	} else {
		fmt.Fprintln(w, dimStyle.Sprint("No winner: fewer than two products have an overall score."))
	}

	for i, p := range res.Products {
		fmt.Fprintln(w)
		if p.Status != domain.StatusOK {
			fmt.Fprintf(w, "%s %s\n", failedStyle.Sprintf("[%s]", p.Status), p.Query.RawName)
			fmt.Fprintf(w, "    %s\n", p.Reason)
			continue
		}
		renderProduct(w, i+1, p)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, dimStyle.Sprintf("query %s | provider %s | analyzer %s | %s",
		res.QueryID, res.Versions.Provider, res.Versions.Analyzer, res.Elapsed.Round(1e6)))
}

func renderProduct(w io.Writer, rank int, p domain.ProductReport) {
	a := p.Analysis
	overall := "n/a"
	if a != nil && a.HasOverall {
		overall = fmt.Sprintf("%.1f/10 %s", a.Overall, a.SentimentLabel())
	}
	reviews := 0
	if a != nil {
		reviews = a.ReviewCount
	}
	fmt.Fprintf(w, "%s %s  %s  %s\n",
		headerStyle.Sprintf("#%d", rank), headerStyle.Sprint(p.Query.RawName), overall,
		dimStyle.Sprintf("(%d reviews)", reviews))

	if a != nil {
		for _, s := range a.Aspects {
			fmt.Fprintf(w, "    %-14s %3d%%  %s\n", s.Aspect, s.Score, dimStyle.Sprintf("n=%d", s.Support))
		}
	}
	if len(p.Strengths) > 0 {
		fmt.Fprintf(w, "    %s %s\n", goodStyle.Sprint("strengths:"), joinAspects(p.Strengths))
	}
	if len(p.Weaknesses) > 0 {
		fmt.Fprintf(w, "    %s %s\n", weakStyle.Sprint("weaknesses:"), joinAspects(p.Weaknesses))
	}
	for _, s := range p.Samples {
		fmt.Fprintf(w, "    %s %s\n", dimStyle.Sprintf("[%s/%s]", s.Aspect, s.Language), snippet(s.Text))
	}
}

func joinAspects(aspects []domain.Aspect) string {
	parts := make([]string, len(aspects))
	for i, a := range aspects {
		parts[i] = string(a)
	}
	return strings.Join(parts, ", ")
}

// snippet shortens text to maxSnippetRn runes.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxSnippetRn {
		return text
	}
	return string(runes[:maxSnippetRn-1]) + "…"
}
