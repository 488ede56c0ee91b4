package source

import (
	"strings"
	"unicode"
)

var (
	legalSearchTerms = []string{
		"legal document template", "contract template", "agreement template",
		"legal form", "legal document sample",
	}
	templateSearchTerms = []string{"template", "sample", "format", "example", "draft"}

	jurisdictionHints = []struct {
		triggers []string
		terms    []string
	}{
		{[]string{"india", "indian", "delhi", "mumbai", "bangalore", "chennai", "kolkata"}, []string{"india", "indian law"}},
		{[]string{"us", "usa", "united states", "california", "new york", "texas"}, []string{"united states", "us law"}},
		{[]string{"uk", "britain", "england", "london", "scotland"}, []string{"uk law", "british law"}},
	}

	docTypeHints = []struct {
		triggers []string
		terms    []string
	}{
		{[]string{"affidavit", "sworn", "statement"}, []string{"affidavit template", "sworn statement", "legal affidavit"}},
		{[]string{"contract", "agreement", "deal"}, []string{"contract template", "agreement template", "legal contract"}},
		{[]string{"notice", "demand"}, []string{"legal notice", "demand notice", "legal notice template"}},
		{[]string{"sla", "service level", "service agreement"}, []string{"service level agreement", "sla template", "service agreement"}},
	}

	legalKeywords = []string{
		"agreement", "contract", "terms", "conditions", "liability",
		"indemnity", "warranty", "disclaimer", "governing law",
		"jurisdiction", "party", "parties", "whereas", "hereby",
		"legal", "law", "statute", "regulation", "clause", "section",
		"template", "form", "document", "provision", "stipulation",
		"affidavit", "sworn", "statement", "notice", "demand",
		"service level", "sla", "binding", "enforceable",
		"breach", "remedy", "damages", "penalty", "termination",
	}

	legalPhrases = []string{
		"governing law", "legal document", "binding agreement", "terms and conditions",
		"legal notice", "service level agreement", "affidavit of", "sworn statement",
		"legal template", "contract template", "agreement template",
	}

	templateKeywords  = []string{"template", "sample", "form", "draft", "example", "agreement", "contract"}
	commercialDomains = []string{"amazon", "ebay", "etsy", "shopify", "wix", "squarespace"}
)

// DefaultExcludedDomains are form-selling sites whose pages are sales copy rather than templates.
var DefaultExcludedDomains = []string{
	"contracteasily.com", "evaakil.com", "lawrato.com", "vakilsearch.com", "legalraasta.com",
}

// EnrichQuery expands a user request into a web search query biased towards legal templates.
// Jurisdiction and document type hints are added when the request mentions them.
func EnrichQuery(query string) string {
	parts := []string{strings.TrimSpace(query)}
	parts = append(parts, legalSearchTerms...)

	lower := strings.ToLower(query)
	for _, h := range jurisdictionHints {
		if mentionsAny(lower, h.triggers) {
			parts = append(parts, h.terms...)
			break
		}
	}
	for _, h := range docTypeHints {
		if mentionsAny(lower, h.triggers) {
			parts = append(parts, h.terms...)
			break
		}
	}

	parts = append(parts, templateSearchTerms...)
	return strings.Join(parts, " ")
}

// IsLegal reports whether the page looks like legal content.
func (p Page) IsLegal() bool {
	titleScore := countMentions(strings.ToLower(p.Title), legalKeywords)
	if titleScore >= 2 {
		return true
	}

	content := p.Text
	if strings.TrimSpace(content) == "" {
		content = p.Highlight
	}
	content = strings.ToLower(content)

	keywords := countMentions(content, legalKeywords)
	phrases := countMentions(content, legalPhrases)

	return keywords >= 4 ||
		(keywords >= 2 && phrases >= 1) ||
		(phrases >= 1 && titleScore >= 1)
}

// IsTemplate reports whether the page is plausibly a fillable document and not a storefront.
func (p Page) IsTemplate() bool {
	title := strings.ToLower(p.Title)
	url := strings.ToLower(p.URL)
	if mentionsAny(title, templateKeywords) || mentionsAny(url, templateKeywords) {
		return true
	}
	for _, d := range commercialDomains {
		if strings.Contains(url, d) {
			return false
		}
	}
	return true
}

// mentions matches short terms as whole words and longer ones as substrings.
func mentions(lower, term string) bool {
	if len(term) > 3 {
		return strings.Contains(lower, term)
	}
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if w == term {
			return true
		}
	}
	return false
}

func mentionsAny(lower string, terms []string) bool {
	for _, t := range terms {
		if mentions(lower, t) {
			return true
		}
	}
	return false
}

func countMentions(lower string, terms []string) int {
	n := 0
	for _, t := range terms {
		if mentions(lower, t) {
			n++
		}
	}
	return n
}
