// Package ranker orders analysed products and picks their strengths, weaknesses and sample reviews.
package ranker

import (
	"sort"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
)

const (
	// MaxHighlights caps strengths and weaknesses per product.
	MaxHighlights = 3
	// MaxSamples caps representative reviews per product.
	MaxSamples = 3
)

// Entry is a successfully analysed product.
type Entry struct {
	Name     string
	Key      string // normalized name, the final tie-break
	Analysis domain.ProductAnalysis
}

// Ranked is an Entry with its cross-product verdicts.
type Ranked struct {
	Entry
	Leads      int
	Strengths  []domain.Aspect
	Weaknesses []domain.Aspect
	Samples    []domain.SampleReview
}

// Result is the total ordering of the entries.
type Result struct {
	Order  []Ranked
	Winner string
}

type highlight struct {
	aspect domain.Aspect
	margin int
	score  int
}

// Rank orders entries by overall score (products without one last), then strict aspect leads,
// then mean support, then normalized name. The winner is only set when two or more entries have an overall.
func Rank(entries []Entry) Result {
	ranked := make([]Ranked, len(entries))
	strengths := make([][]highlight, len(entries))
	weaknesses := make([][]highlight, len(entries))
	for i, e := range entries {
		ranked[i] = Ranked{Entry: e}
	}

	for _, aspect := range domain.RankedAspects {
		type contender struct {
			idx   int
			score int
		}
		var cs []contender
		for i, e := range entries {
			if s, ok := e.Analysis.Score(aspect); ok {
				cs = append(cs, contender{idx: i, score: s.Score})
			}
		}
		if len(cs) < 2 {
			continue
		}
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].score > cs[j].score })

		top, runnerUp := cs[0], cs[1]
		if top.score > runnerUp.score {
			ranked[top.idx].Leads++
			strengths[top.idx] = append(strengths[top.idx], highlight{aspect, top.score - runnerUp.score, top.score})
		}
		last, prev := cs[len(cs)-1], cs[len(cs)-2]
		if last.score < prev.score {
			weaknesses[last.idx] = append(weaknesses[last.idx], highlight{aspect, prev.score - last.score, last.score})
		}
	}

	for i := range ranked {
		s := topByMargin(strengths[i])
		w := topByMargin(weaknesses[i])
		ranked[i].Strengths = aspectsOf(s)
		ranked[i].Weaknesses = aspectsOf(w)
		ranked[i].Samples = pickSamples(ranked[i].Analysis, s, w)
	}

	sort.SliceStable(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })

	res := Result{Order: ranked}
	withOverall := 0
	for _, r := range ranked {
		if r.Analysis.HasOverall {
			withOverall++
		}
	}
	if withOverall >= 2 {
		res.Winner = ranked[0].Name
	}
	return res
}

func less(a, b Ranked) bool {
	if a.Analysis.HasOverall != b.Analysis.HasOverall {
		return a.Analysis.HasOverall
	}
	if a.Analysis.HasOverall && a.Analysis.Overall != b.Analysis.Overall {
		return a.Analysis.Overall > b.Analysis.Overall
	}
	if a.Leads != b.Leads {
		return a.Leads > b.Leads
	}
	if ma, mb := a.Analysis.MeanSupport(), b.Analysis.MeanSupport(); ma != mb {
		return ma > mb
	}
	return a.Key < b.Key
}

func topByMargin(h []highlight) []highlight {
	sort.SliceStable(h, func(i, j int) bool {
		if h[i].margin != h[j].margin {
			return h[i].margin > h[j].margin
		}
		return h[i].aspect.Index() < h[j].aspect.Index()
	})
	if len(h) > MaxHighlights {
		h = h[:MaxHighlights]
	}
	return h
}

func aspectsOf(h []highlight) []domain.Aspect {
	if len(h) == 0 {
		return nil
	}
	out := make([]domain.Aspect, len(h))
	for i := range h {
		out[i] = h[i].aspect
	}
	return out
}

// pickSamples walks strengths by score, weaknesses by lowness, then the remaining published aspects,
// taking each aspect's best evidence review not already shown. Without any, the rated fallback reviews are used.
func pickSamples(a domain.ProductAnalysis, strengths, weaknesses []highlight) []domain.SampleReview {
	var order []domain.Aspect
	seen := make(map[domain.Aspect]bool)
	add := func(asp domain.Aspect) {
		if !seen[asp] {
			seen[asp] = true
			order = append(order, asp)
		}
	}

	s := append([]highlight(nil), strengths...)
	sort.SliceStable(s, func(i, j int) bool { return s[i].score > s[j].score })
	for _, h := range s {
		add(h.aspect)
	}
	w := append([]highlight(nil), weaknesses...)
	sort.SliceStable(w, func(i, j int) bool { return w[i].score < w[j].score })
	for _, h := range w {
		add(h.aspect)
	}
	rest := append([]domain.AspectScore(nil), a.Aspects...)
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Score > rest[j].Score })
	for _, sc := range rest {
		add(sc.Aspect)
	}

	var out []domain.SampleReview
	used := make(map[string]bool)
	for _, asp := range order {
		if len(out) == MaxSamples {
			break
		}
		for _, ev := range a.EvidenceCandidates(asp) {
			if used[ev.SourceID] {
				continue
			}
			used[ev.SourceID] = true
			out = append(out, ev)
			break
		}
	}
	if len(out) == 0 {
		out = append(out, a.Fallback[:min(len(a.Fallback), MaxSamples)]...)
	}
	return out
}
