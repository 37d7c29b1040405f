// Package grouping matches complementary outcome tokens of the same market
// into unified groups and derives the net directional action of each fill.
package grouping

import (
	"sort"
	"strings"

	"github.com/alanyoungcy/fillscope/internal/domain"
)

// labelSeparator divides the market question from the outcome name in a label
// like "Lakers vs Celtics: total points - Over". The split happens at the
// last occurrence so questions containing the separator keep their full text.
const labelSeparator = " - "

// splitLabel splits an outcome label into (baseName, suffix) at the last
// separator. A label without a separator has an empty base and can never pair.
func splitLabel(label string) (base, suffix string) {
	idx := strings.LastIndex(label, labelSeparator)
	if idx < 0 {
		return "", label
	}
	return label[:idx], label[idx+len(labelSeparator):]
}

// labelBucket is one distinct outcome label with its fills, in first-appearance
// order over the input.
type labelBucket struct {
	label  string
	base   string
	suffix string
	fills  []domain.ProcessedFill
}

// Group buckets fills by outcome label, pairs complementary labels of the
// same market into binary groups, and emits every unpaired label as its own
// standalone group. Any two labels qualify as a pair when they share a
// non-empty base and carry differing non-empty suffixes; Over/Under and
// Yes/No are just the common cases.
//
// Pairing is an explicit first-match policy over labels in first-appearance
// order. A base with three or more outcomes pairs its first two and leaves
// the rest standalone.
//
// Every returned fill carries a NetAction (see deriveNetActions); fills are
// sorted by timestamp descending within each group.
func Group(fills []domain.ProcessedFill) []domain.MarketGroup {
	buckets := bucketByLabel(fills)

	// Index label positions by base name so the pair scan is an explicit
	// lookup rather than a quadratic sweep.
	byBase := make(map[string][]int, len(buckets))
	for i, b := range buckets {
		if b.base == "" {
			continue
		}
		byBase[b.base] = append(byBase[b.base], i)
	}

	paired := make([]bool, len(buckets))
	var groups []domain.MarketGroup

	for i, b := range buckets {
		if paired[i] || b.base == "" || b.suffix == "" {
			continue
		}
		for _, j := range byBase[b.base] {
			if j <= i || paired[j] {
				continue
			}
			other := buckets[j]
			if other.suffix == "" || other.suffix == b.suffix {
				continue
			}
			paired[i], paired[j] = true, true
			groups = append(groups, mergeBinary(b, other))
			break
		}
	}

	for i, b := range buckets {
		if paired[i] {
			continue
		}
		single := domain.MarketGroup{
			BaseName: b.label,
			IsBinary: false,
			Fills:    sortFillsDesc(b.fills),
		}
		deriveNetActions(&single)
		groups = append(groups, single)
	}

	return groups
}

// bucketByLabel collects fills per distinct outcome label, preserving the
// order in which labels first appear.
func bucketByLabel(fills []domain.ProcessedFill) []labelBucket {
	index := make(map[string]int)
	var buckets []labelBucket

	for _, fill := range fills {
		i, ok := index[fill.Outcome]
		if !ok {
			base, suffix := splitLabel(fill.Outcome)
			i = len(buckets)
			index[fill.Outcome] = i
			buckets = append(buckets, labelBucket{
				label:  fill.Outcome,
				base:   base,
				suffix: suffix,
			})
		}
		buckets[i].fills = append(buckets[i].fills, fill)
	}

	return buckets
}

// mergeBinary merges two complementary labels into one binary group with the
// combined fill list re-sorted by timestamp descending.
func mergeBinary(a, b labelBucket) domain.MarketGroup {
	merged := make([]domain.ProcessedFill, 0, len(a.fills)+len(b.fills))
	merged = append(merged, a.fills...)
	merged = append(merged, b.fills...)

	group := domain.MarketGroup{
		BaseName: a.base,
		IsBinary: true,
		Fills:    sortFillsDesc(merged),
	}
	deriveNetActions(&group)
	return group
}

// deriveNetActions sets the NetAction of every fill in the group: the true
// directional bet implied by (side, outcome). Buying an outcome is a position
// in that outcome; selling it is economically a position in the complement.
//
// The opposite mapping requires exactly two distinct suffixes in the group.
// With any other suffix count, or an UNKNOWN side, the fill keeps its own
// suffix, which degrades net action to a relabeling rather than guessing.
func deriveNetActions(group *domain.MarketGroup) {
	suffixes := make([]string, 0, 2)
	seen := make(map[string]bool)
	for _, fill := range group.Fills {
		_, suffix := splitLabel(fill.Outcome)
		if !seen[suffix] {
			seen[suffix] = true
			suffixes = append(suffixes, suffix)
		}
	}

	opposite := make(map[string]string)
	if len(suffixes) == 2 {
		opposite[suffixes[0]] = suffixes[1]
		opposite[suffixes[1]] = suffixes[0]
	}

	for i := range group.Fills {
		_, own := splitLabel(group.Fills[i].Outcome)
		action := own
		if group.Fills[i].Side == domain.SideSell {
			if opp, ok := opposite[own]; ok {
				action = opp
			}
		}
		group.Fills[i].NetAction = action
	}
}

// sortFillsDesc returns fills stably sorted by timestamp descending.
func sortFillsDesc(fills []domain.ProcessedFill) []domain.ProcessedFill {
	sort.SliceStable(fills, func(i, j int) bool {
		return fills[i].TimestampUnix > fills[j].TimestampUnix
	})
	return fills
}
