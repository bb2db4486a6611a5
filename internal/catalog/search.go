package catalog

import (
	"strconv"
	"strings"
	"unicode"
)

// MatchStatus represents the outcome of a search
type MatchStatus int

const (
	Matched MatchStatus = iota
	Ambiguous
	Unmatched
)

func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "Matched"
	case Ambiguous:
		return "Ambiguous"
	case Unmatched:
		return "Unmatched"
	default:
		return "Unknown"
	}
}

// SearchResult contains the best-scoring products for a query
type SearchResult struct {
	Status     MatchStatus
	Product    *Product  // when Matched
	Candidates []Product // when Ambiguous
}

const (
	sizeWeight    = 5
	regularWeight = 1
)

// Index performs keyword search over a product list
type Index struct {
	products []Product
	keywords [][]string // pre-tokenized name, category and keywords per product
}

// NewIndex builds an index with pre-tokenized keywords. Unavailable products
// are indexed too; callers decide whether to offer them.
func NewIndex(products []Product) *Index {
	idx := &Index{
		products: products,
		keywords: make([][]string, len(products)),
	}

	for i, p := range products {
		seen := make(map[string]bool)
		var kws []string
		add := func(tok string) {
			if tok != "" && !seen[tok] {
				seen[tok] = true
				kws = append(kws, tok)
			}
		}
		for _, tok := range tokenize(normalize(p.Name)) {
			add(tok)
		}
		add(normalize(p.Category))
		for _, part := range strings.Split(p.Keywords, ",") {
			add(normalize(part))
		}
		idx.keywords[i] = kws
	}

	return idx
}

// Search scores every product against the query. Size tokens such as "5kg"
// or "500ml" are hard filters: a candidate must carry every size the query
// names.
func (idx *Index) Search(query string) SearchResult {
	tokens := tokenize(normalize(query))

	inputTokens := make(map[string]bool, len(tokens))
	inputSizes := make(map[string]bool)
	for _, tok := range tokens {
		inputTokens[tok] = true
		if isSizeToken(tok) {
			inputSizes[tok] = true
		}
	}

	type scoredProduct struct {
		product Product
		score   int
	}

	var scored []scoredProduct

	for i, p := range idx.products {
		keywords := idx.keywords[i]

		if !hasAll(keywords, inputSizes) {
			continue
		}

		score := 0
		for _, kw := range keywords {
			if inputTokens[kw] {
				if isSizeToken(kw) {
					score += sizeWeight
				} else {
					score += regularWeight
				}
			}
		}

		if score > 0 {
			scored = append(scored, scoredProduct{product: p, score: score})
		}
	}

	if len(scored) == 0 {
		return SearchResult{Status: Unmatched}
	}

	maxScore := 0
	for _, s := range scored {
		if s.score > maxScore {
			maxScore = s.score
		}
	}

	var top []Product
	for _, s := range scored {
		if s.score == maxScore {
			top = append(top, s.product)
		}
	}

	if len(top) == 1 {
		return SearchResult{Status: Matched, Product: &top[0]}
	}
	return SearchResult{Status: Ambiguous, Candidates: top}
}

func hasAll(keywords []string, want map[string]bool) bool {
	for w := range want {
		found := false
		for _, kw := range keywords {
			if kw == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// normalize lowercases s and replaces non-alphanumeric runes with spaces
func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}

func tokenize(s string) []string {
	return strings.Fields(s)
}

// isSizeToken reports whether tok looks like "5kg", "500ml" or "1l".
func isSizeToken(tok string) bool {
	digitEnd := 0
	for i, r := range tok {
		if unicode.IsDigit(r) {
			digitEnd = i + 1
		} else {
			break
		}
	}
	if digitEnd == 0 || digitEnd == len(tok) {
		return false
	}
	if _, err := strconv.Atoi(tok[:digitEnd]); err != nil {
		return false
	}
	for _, r := range tok[digitEnd:] {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
