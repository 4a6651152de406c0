package aging

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
)

// section is a run of carrier rows sharing one responsible party. In carrier
// mode there is a single section with an empty party.
type section struct {
	party   string
	members []*accumulator
}

func foldCarrier(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (e *Engine) carrierRank(carrier string) int {
	if r, ok := e.rank[foldCarrier(carrier)]; ok {
		return r
	}
	return len(e.rank)
}

// arrange orders groups by the preferred carrier list, then alphabetically,
// and clusters them by party when grouping by carrier+responsible. Party
// clusters follow their best-ranked carrier; the unassigned cluster goes last.
func (e *Engine) arrange(groups map[groupKey]*accumulator, by GroupBy) []section {
	if len(groups) == 0 {
		return nil
	}
	// collate.Collator keeps internal buffers, so each call builds its own.
	coll := collate.New(e.locale, collate.IgnoreCase, collate.IgnoreDiacritics)
	sorted := make([]*accumulator, 0, len(groups))
	for _, acc := range groups {
		sorted = append(sorted, acc)
	}
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].key, sorted[j].key
		ra, rb := e.carrierRank(a.carrier), e.carrierRank(b.carrier)
		if ra != rb {
			return ra < rb
		}
		if c := coll.CompareString(sorted[i].label, sorted[j].label); c != 0 {
			return c < 0
		}
		if a.carrier != b.carrier {
			return a.carrier < b.carrier
		}
		return a.party < b.party
	})

	if by != GroupByCarrierParty {
		return []section{{members: sorted}}
	}

	var sections []section
	index := make(map[string]int)
	var unassigned *section
	for _, acc := range sorted {
		party := acc.key.party
		if party == e.unassigned {
			if unassigned == nil {
				unassigned = &section{party: party}
			}
			unassigned.members = append(unassigned.members, acc)
			continue
		}
		pos, ok := index[party]
		if !ok {
			pos = len(sections)
			index[party] = pos
			sections = append(sections, section{party: party})
		}
		sections[pos].members = append(sections[pos].members, acc)
	}
	if unassigned != nil {
		sections = append(sections, *unassigned)
	}
	return sections
}
