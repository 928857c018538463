package audit

import "sort"

// eligibleAttributes applies the policy's only/except rules to the candidate
// attribute names. Deterministic and pure: the result is sorted so the same
// inputs always produce the same slice.
func eligibleAttributes(p Policy, candidates map[string]any) []string {
	out := make([]string, 0, len(candidates))
	for name := range candidates {
		if len(p.Only) > 0 {
			if p.Only[name] {
				out = append(out, name)
			}
			continue
		}
		if !p.Except[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// diff computes the before/after changes over the eligible attributes.
// An attribute is included iff its values differ by equality. Absent (nil)
// on both sides never differs, so create records skip unset attributes and
// destroy records skip attributes that were already unset.
func diff(before, after map[string]any, eligible []string) Changes {
	changes := make(Changes)
	for _, name := range eligible {
		b := ValueOf(before[name])
		a := ValueOf(after[name])
		if !b.Equal(a) {
			changes[name] = Change{Before: b, After: a}
		}
	}
	return changes
}
