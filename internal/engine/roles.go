package engine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Concept is a business meaning mapped onto a column by name.
type Concept string

const (
	ConceptSales    Concept = "sales"
	ConceptQuantity Concept = "quantity"
	ConceptCity     Concept = "city"
	ConceptRating   Concept = "rating"
	ConceptCategory Concept = "category"
	ConceptPayment  Concept = "payment"
	ConceptDate     Concept = "date"
)

// Concepts lists every concept in resolution order.
var Concepts = []Concept{
	ConceptSales,
	ConceptQuantity,
	ConceptCity,
	ConceptRating,
	ConceptCategory,
	ConceptPayment,
	ConceptDate,
}

var conceptKeywords = map[Concept][]string{
	ConceptSales:    {"sales", "total"},
	ConceptQuantity: {"qty", "quantity"},
	ConceptCity:     {"city"},
	ConceptRating:   {"rating"},
	ConceptCategory: {"product", "category"},
	ConceptPayment:  {"payment"},
	ConceptDate:     {"date"},
}

// RoleMap holds, per concept, the matching column names in column order.
type RoleMap map[Concept][]string

// ResolveRoles matches lower-cased column names against each concept's
// keywords by substring. This is a best-effort heuristic: one column may
// satisfy several concepts ("City Sales Total" is both city and sales) and
// that is accepted as is. A column appears at most once per concept.
func ResolveRoles(columns []string) RoleMap {
	lowered := make([]string, len(columns))
	for i, c := range columns {
		lowered[i] = cases.Lower(language.Und).String(c)
	}

	roles := make(RoleMap, len(Concepts))
	for _, concept := range Concepts {
		matched := []string{}
		for i, name := range lowered {
			for _, kw := range conceptKeywords[concept] {
				if strings.Contains(name, kw) {
					matched = append(matched, columns[i])
					break
				}
			}
		}
		roles[concept] = matched
	}
	return roles
}

// Primary returns the first column resolved for c. Only the primary column
// is used downstream.
func (m RoleMap) Primary(c Concept) (string, bool) {
	cols := m[c]
	if len(cols) == 0 {
		return "", false
	}
	return cols[0], true
}

// Missing lists the concepts that resolved to no column, in Concepts order.
func (m RoleMap) Missing() []Concept {
	var out []Concept
	for _, c := range Concepts {
		if len(m[c]) == 0 {
			out = append(out, c)
		}
	}
	return out
}
