package dashboard

import (
	"fmt"

	"salesdash/internal/engine"
	"salesdash/internal/models"
)

const dateLayout = "2006-01-02"

// Info renders the entry for the presentation layer.
func (e *Entry) Info() models.DatasetInfo {
	info := models.DatasetInfo{
		ID:       e.ID,
		Name:     e.Name,
		Format:   string(e.Format),
		Rows:     e.Dataset.Len(),
		Columns:  append([]string(nil), e.Dataset.Columns...),
		Profiles: make([]models.ColumnProfile, 0, len(e.Profiles)),
		Roles:    make(map[string][]string, len(e.Roles)),
		Filters: models.FilterOptions{
			Categorical: make([]models.CategoricalOption, 0, len(e.Filters.Categorical)),
		},
	}
	for _, p := range e.Profiles {
		info.Profiles = append(info.Profiles, models.ColumnProfile{
			Name:           p.Name,
			Kind:           string(p.Kind),
			DistinctValues: p.DistinctValues,
		})
	}
	for _, c := range engine.Concepts {
		info.Roles[string(c)] = append([]string{}, e.Roles[c]...)
	}
	for _, c := range e.Filters.Categorical {
		info.Filters.Categorical = append(info.Filters.Categorical, models.CategoricalOption{Column: c.Column, Values: c.Values})
	}
	if d := e.Filters.Date; d != nil {
		info.Filters.Date = &models.DateOption{Column: d.Column, Min: d.Min.Format(dateLayout), Max: d.Max.Format(dateLayout)}
	}
	info.DefaultSelection = SelectionToModel(e.Filters.DefaultSelection())
	return info
}

func SelectionToModel(sel engine.Selection) models.Selection {
	out := models.Selection{Categorical: make(map[string][]string, len(sel.Categorical))}
	for col, vals := range sel.Categorical {
		out.Categorical[col] = append([]string{}, vals...)
	}
	if r := sel.DateRange; r != nil {
		out.DateRange = &models.DateRange{Column: r.Column, Start: r.Start.Format(dateLayout), End: r.End.Format(dateLayout)}
	}
	return out
}

// SelectionFromModel parses a request selection. A nil categorical value
// list is kept as an empty selection, which matches no rows.
func SelectionFromModel(sel models.Selection) (engine.Selection, error) {
	out := engine.Selection{Categorical: make(map[string][]string, len(sel.Categorical))}
	for col, vals := range sel.Categorical {
		out.Categorical[col] = append([]string{}, vals...)
	}
	if r := sel.DateRange; r != nil {
		start, ok := engine.ParseDate(r.Start)
		if !ok {
			return engine.Selection{}, fmt.Errorf("invalid date_range.start %q", r.Start)
		}
		end, ok := engine.ParseDate(r.End)
		if !ok {
			return engine.Selection{}, fmt.Errorf("invalid date_range.end %q", r.End)
		}
		out.DateRange = &engine.DateRange{Column: r.Column, Start: start, End: end}
	}
	return out, nil
}
