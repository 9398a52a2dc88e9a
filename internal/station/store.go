package station

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

// ChannelValue is the raw text assigned to one channel of a leaf.
type ChannelValue struct {
	Channel int    `json:"channel"`
	Raw     string `json:"raw"`
}

// Store holds one cycle's raw values, shaped exactly like its schema.
// It is built fresh by BuildStore and never mutated afterwards.
type Store struct {
	values map[LeafKey][]ChannelValue
}

// Values returns the channel values of a leaf in declared channel order.
func (s *Store) Values(key LeafKey) ([]ChannelValue, bool) {
	v, ok := s.values[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

// Len returns the number of leaves in the store.
func (s *Store) Len() int { return len(s.values) }

// Keys returns the leaf keys, sorted.
func (s *Store) Keys() []LeafKey {
	keys := make([]LeafKey, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b LeafKey) int {
		return cmp.Or(
			cmp.Compare(a.Category, b.Category),
			cmp.Compare(a.Statistic, b.Statistic),
			cmp.Compare(a.Period, b.Period),
		)
	})
	return keys
}

// CardinalityWarning records a leaf that matched more records than it has
// channels. The surplus records are ignored.
type CardinalityWarning struct {
	Leaf     LeafKey
	Matched  int
	Expected int
}

func (w CardinalityWarning) String() string {
	return fmt.Sprintf("%s matched %d records, expected %d", w.Leaf, w.Matched, w.Expected)
}

// BuildStore fills a store from records following schema.
//
// For each leaf the matching records are assigned positionally: the i-th
// match, in frame order, becomes the value of the i-th declared channel.
// Channel numbers in the records are not consulted. Single-level leaves
// match records of any period; period leaves match their period only.
//
// Too few matches fail the build with a *CardinalityError. Too many produce
// a CardinalityWarning and the surplus is dropped. ctx is checked before
// every leaf so a cancelled cycle stops promptly.
//
// Returns:
//   - *Store: Raw values per leaf, in channel order
//   - []CardinalityWarning: One per leaf with surplus records
//   - error: *CardinalityError or the context error
func BuildStore(ctx context.Context, schema *Schema, records *RecordSet) (*Store, []CardinalityWarning, error) {
	store := &Store{values: make(map[LeafKey][]ChannelValue, schema.Len())}
	var warnings []CardinalityWarning

	for _, leaf := range schema.leaves {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("building store: %w", err)
		}

		matched := records.Select(leaf.Category, leaf.Statistic, leaf.Period, leaf.Period != "")
		switch {
		case len(matched) < len(leaf.Channels):
			return nil, nil, &CardinalityError{Leaf: leaf.Key(), Matched: len(matched), Expected: len(leaf.Channels)}
		case len(matched) > len(leaf.Channels):
			warnings = append(warnings, CardinalityWarning{Leaf: leaf.Key(), Matched: len(matched), Expected: len(leaf.Channels)})
		}

		values := make([]ChannelValue, len(leaf.Channels))
		for i, ch := range leaf.Channels {
			values[i] = ChannelValue{Channel: ch, Raw: matched[i].Value}
		}
		store.values[leaf.Key()] = values
	}

	return store, warnings, nil
}
