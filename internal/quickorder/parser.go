// Package quickorder reads free-text shopping lists, the kind customers paste
// from a chat ("3 arroz costeño 5kg", "aceite primor x2", "2 cajas inca
// kola"), into search queries and quantities.
package quickorder

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/surtidora/api/internal/apperr"
)

// MaxQuantity caps a single line so a typo like "1000" for "10" is caught.
const MaxQuantity = 999

var ErrEmptyList = fmt.Errorf("%w: no items found in list", apperr.ErrValidation)

// Item is one parsed line.
type Item struct {
	Raw      string `json:"raw"`
	Query    string `json:"query"`
	Quantity int    `json:"quantity"`
	// Cases is set when the quantity was given in case packs ("2 cajas").
	Cases bool `json:"cases,omitempty"`
}

// List is the result of parsing a pasted list.
type List struct {
	Items    []Item
	Warnings []string // lines that could not be read
}

// Words that count the quantity in case packs or in loose units.
var (
	caseUnits = map[string]bool{
		"cj": true, "caja": true, "cajas": true, "cja": true,
		"paq": true, "paquete": true, "paquetes": true, "fardo": true, "fardos": true,
	}
	looseUnits = map[string]bool{
		"u": true, "un": true, "und": true, "unid": true, "unidad": true, "unidades": true,
	}
)

// Parse reads one item per non-empty line. Unreadable lines are reported as
// warnings; a list without a single readable line is an error.
func Parse(text string) (*List, error) {
	var list List
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		item, err := parseLine(line)
		if err != nil {
			list.Warnings = append(list.Warnings, fmt.Sprintf("skipped: %s (%v)", line, err))
			continue
		}
		list.Items = append(list.Items, *item)
	}

	if len(list.Items) == 0 {
		return nil, ErrEmptyList
	}
	return &list, nil
}

// parseLine reads a line like "3 cajas inca kola 500ml". The first quantity
// token wins; size tokens such as "500ml" stay in the query.
func parseLine(line string) (*Item, error) {
	tokens := strings.Fields(strings.ToLower(strings.TrimLeft(line, "-*•· \t")))

	qty := 1
	var cases, qtyFound bool
	var query []string

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if isPriceToken(tok) {
			continue
		}
		if qtyFound {
			query = append(query, tok)
			continue
		}

		n, unit, ok := parseQtyToken(tok)
		if !ok {
			query = append(query, tok)
			continue
		}
		qty, qtyFound = n, true
		switch {
		case caseUnits[unit]:
			cases = true
		case unit == "" && i+1 < len(tokens) && caseUnits[tokens[i+1]]:
			cases = true
			i++
		case unit == "" && i+1 < len(tokens) && looseUnits[tokens[i+1]]:
			i++
		}
	}

	if len(query) == 0 {
		return nil, fmt.Errorf("no product named")
	}
	if qty <= 0 || qty > MaxQuantity {
		return nil, fmt.Errorf("quantity must be between 1 and %d", MaxQuantity)
	}

	return &Item{
		Raw:      line,
		Query:    strings.Join(query, " "),
		Quantity: qty,
		Cases:    cases,
	}, nil
}

// parseQtyToken parses "3" → (3, ""), "x3" and "3x" → (3, ""), "2cj" →
// (2, "cj"). Only known count words are accepted as a suffix, so "5kg" is
// not a quantity.
func parseQtyToken(tok string) (int, string, bool) {
	tok = strings.TrimPrefix(tok, "x")
	if tok == "" {
		return 0, "", false
	}

	digitEnd := 0
	for i, r := range tok {
		if unicode.IsDigit(r) {
			digitEnd = i + 1
		} else {
			break
		}
	}
	if digitEnd == 0 {
		return 0, "", false
	}

	n, err := strconv.Atoi(tok[:digitEnd])
	if err != nil {
		return 0, "", false
	}

	unit := tok[digitEnd:]
	switch {
	case unit == "" || unit == "x":
		return n, "", true
	case caseUnits[unit]:
		return n, unit, true
	case looseUnits[unit]:
		return n, "", true
	}
	return 0, "", false
}

// isPriceToken reports whether tok is a price the customer copied along,
// like "s/21.90" or "s/.4". Prices come from the catalog, never the list.
func isPriceToken(tok string) bool {
	rest, ok := strings.CutPrefix(tok, "s/")
	if !ok {
		return false
	}
	rest = strings.TrimPrefix(rest, ".")
	_, err := strconv.ParseFloat(rest, 64)
	return err == nil
}
