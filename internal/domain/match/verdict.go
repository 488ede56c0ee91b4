package match

// Verdict is the re-ranker outcome: either Found with a top judgement or NotFound.
type Verdict struct {
	found        bool
	top          Judgement
	alternatives []Judgement
}

// Found creates a verdict with a top match and optional alternatives.
func Found(top Judgement, alternatives []Judgement) Verdict {
	return Verdict{found: true, top: top, alternatives: alternatives}
}

// NotFound creates an empty verdict.
func NotFound() Verdict { return Verdict{} }

// IsFound reports whether the re-ranker picked a template.
func (v Verdict) IsFound() bool { return v.found }

// Top returns the top judgement. Meaningless when !IsFound().
func (v Verdict) Top() Judgement { return v.top }

// Alternatives returns runner-up judgements.
func (v Verdict) Alternatives() []Judgement { return v.alternatives }

// Resolve binds the verdict to the candidate set.
// A top judgement naming an unknown template yields NotFound; unknown alternatives are dropped.
func (v Verdict) Resolve(candidates []Candidate) Verdict {
	if !v.found {
		return v
	}
	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.Template.ID()] = true
	}
	if !known[v.top.TemplateID] {
		return NotFound()
	}

	alts := make([]Judgement, 0, len(v.alternatives))
	for _, a := range v.alternatives {
		if known[a.TemplateID] && a.TemplateID != v.top.TemplateID {
			alts = append(alts, a)
		}
	}
	return Found(v.top, alts)
}
