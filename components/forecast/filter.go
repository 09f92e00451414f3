package forecast

import "sort"

// ComputeFilterChoices returns the distinct company names present in rows in
// lexicographic order. The synthetic ALL choice is not part of the derived
// set; transports prepend it when building selects.
func ComputeFilterChoices(rows []Submission) []string {
	seen := make(map[string]bool, len(rows))
	choices := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.CompanyName == "" || seen[row.CompanyName] {
			continue
		}
		seen[row.CompanyName] = true
		choices = append(choices, row.CompanyName)
	}
	sort.Strings(choices)
	return choices
}

// ComputeFiltered derives the filtered subsequence. ALL yields a shallow copy
// of rows in original order; any other selection yields the rows whose
// company name matches, preserving relative order. Pure: equal inputs always
// produce equal-by-value results.
func ComputeFiltered(rows []Submission, selection string) []Submission {
	if selection == "" || selection == FilterAll {
		return append([]Submission(nil), rows...)
	}
	out := make([]Submission, 0, len(rows))
	for _, row := range rows {
		if row.CompanyName == selection {
			out = append(out, row)
		}
	}
	return out
}
