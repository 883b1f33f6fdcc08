package notes

import "strings"

// UnionKeywords returns the set union of the given keyword lists. Matching is
// case-sensitive; the first occurrence fixes the position. Blank entries are dropped.
func UnionKeywords(lists ...[]string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, l := range lists {
		for _, k := range l {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// IndexSections returns the template sections keyed by id.
func IndexSections(sections []SectionInfo) map[string]SectionInfo {
	idx := make(map[string]SectionInfo, len(sections))
	for _, s := range sections {
		idx[s.ID] = s
	}
	return idx
}
