package station

import (
	"fmt"
	"slices"
)

// LeafKey identifies one group of channel values: a category and statistic,
// optionally narrowed by an averaging period.
type LeafKey struct {
	Category  string `json:"category"`
	Statistic string `json:"statistic"`
	Period    string `json:"period,omitempty"`
}

// IsZero reports whether k is the empty path used by display-only topic fields.
func (k LeafKey) IsZero() bool { return k == LeafKey{} }

func (k LeafKey) String() string {
	if k.Period == "" {
		return k.Category + "/" + k.Statistic
	}
	return k.Category + "/" + k.Statistic + "/" + k.Period
}

// Leaf is one row of the measurement schema.
type Leaf struct {
	Category  string `json:"category"`
	Statistic string `json:"statistic"`
	// Period is empty for single-level leaves, which match records of any period.
	Period string `json:"period,omitempty"`
	// Channels lists the expected channel indices in assignment order.
	Channels []int `json:"channels"`
}

// Key returns the leaf's store key.
func (l Leaf) Key() LeafKey {
	return LeafKey{Category: l.Category, Statistic: l.Statistic, Period: l.Period}
}

// Schema is an immutable table of leaves.
type Schema struct {
	leaves []Leaf
	index  map[LeafKey]int
}

// NewSchema validates leaves and builds a schema from them.
//
// A category/statistic pair may not appear both with and without a period:
// the single-level leaf would also match the period records.
func NewSchema(leaves []Leaf) (*Schema, error) {
	s := &Schema{
		leaves: make([]Leaf, 0, len(leaves)),
		index:  make(map[LeafKey]int, len(leaves)),
	}
	levels := make(map[[2]string]bool) // category/statistic -> single-level

	for _, l := range leaves {
		if l.Category == "" || l.Statistic == "" {
			return nil, fmt.Errorf("%w: leaf %s has empty category or statistic", ErrInvalidSettings, l.Key())
		}
		if len(l.Channels) == 0 {
			return nil, fmt.Errorf("%w: leaf %s declares no channels", ErrInvalidSettings, l.Key())
		}
		sorted := slices.Clone(l.Channels)
		slices.Sort(sorted)
		if len(slices.Compact(sorted)) != len(l.Channels) {
			return nil, fmt.Errorf("%w: leaf %s repeats a channel", ErrInvalidSettings, l.Key())
		}
		if _, dup := s.index[l.Key()]; dup {
			return nil, fmt.Errorf("%w: leaf %s declared twice", ErrInvalidSettings, l.Key())
		}
		pair := [2]string{l.Category, l.Statistic}
		if single, seen := levels[pair]; seen && single != (l.Period == "") {
			return nil, fmt.Errorf("%w: %s/%s mixes period and single-level leaves", ErrInvalidSettings, l.Category, l.Statistic)
		}
		levels[pair] = l.Period == ""

		l.Channels = slices.Clone(l.Channels)
		s.index[l.Key()] = len(s.leaves)
		s.leaves = append(s.leaves, l)
	}
	return s, nil
}

// Len returns the number of leaves.
func (s *Schema) Len() int { return len(s.leaves) }

// Leaves returns a copy of the leaf table in declaration order.
func (s *Schema) Leaves() []Leaf {
	out := make([]Leaf, len(s.leaves))
	for i, l := range s.leaves {
		l.Channels = slices.Clone(l.Channels)
		out[i] = l
	}
	return out
}

// Leaf looks up a leaf by key.
func (s *Schema) Leaf(key LeafKey) (Leaf, bool) {
	i, ok := s.index[key]
	if !ok {
		return Leaf{}, false
	}
	l := s.leaves[i]
	l.Channels = slices.Clone(l.Channels)
	return l, true
}

// lsstLeaves is the AWS310 message layout used at the LSST site.
var lsstLeaves = []Leaf{
	{"PA", "AVG", "PT1M", []int{1, 2}},
	{"PATE", "VALUE", "", []int{1, 2}},
	{"PATR", "VALUE", "", []int{1, 2}},
	{"PR", "SUM", "PT1H", []int{1}},
	{"PR", "SUM", "PT1M", []int{1}},
	{"PRF", "SUM", "PT1M", []int{1}},
	{"QFE", "AVG", "PT1M", []int{1, 2}},
	{"QFF", "AVG", "PT1M", []int{1, 2}},
	{"QNH", "AVG", "PT1M", []int{1, 2}},
	{"RH", "AVG", "PT1M", []int{1, 2}},
	{"RH", "AVG", "PT24H", []int{1, 2}},
	{"RH", "MAX", "PT24H", []int{1, 2}},
	{"RH", "MIN", "PT24H", []int{1, 2}},
	{"SNH", "AVG", "PT1M", []int{1}},
	{"SNH", "AVG", "PT24H", []int{1}},
	{"SNH", "MAX", "PT24H", []int{1}},
	{"SNH", "MIN", "PT24H", []int{1}},
	{"SRN", "AVG", "PT1M", []int{1}},
	{"SRN", "AVG", "PT24H", []int{1}},
	{"SRN", "MAX", "PT24H", []int{1}},
	{"SRN", "MIN", "PT24H", []int{1}},
	{"TA", "AVG", "PT1M", []int{1, 2}},
	{"TA", "AVG", "PT24H", []int{1, 2}},
	{"TA", "MAX", "PT24H", []int{1, 2}},
	{"TA", "MIN", "PT24H", []int{1, 2}},
	{"TD", "AVG", "PT1M", []int{1, 2}},
	{"TS", "AVG", "PT1M", []int{1}},
	{"TS", "AVG", "PT24H", []int{1}},
	{"TS", "MAX", "PT24H", []int{1}},
	{"TS", "MIN", "PT24H", []int{1}},
	{"WD", "AVG", "PT10M", []int{1, 2}},
	{"WD", "AVG", "PT2M", []int{1, 2}},
	{"WD", "MAX", "PT10M", []int{1, 2, 3}},
	{"WD", "MAX", "PT2M", []int{1, 2}},
	{"WD", "MIN", "PT2M", []int{1, 2}},
	{"WD", "VALUE", "", []int{1, 2}},
	{"WGD", "VALUE", "", []int{1, 2}},
	{"WS", "AVG", "PT10M", []int{1, 2}},
	{"WS", "AVG", "PT2M", []int{1, 2}},
	{"WS", "MAX", "PT10M", []int{1, 2}},
	{"WS", "MAX", "PT2M", []int{1, 2}},
	{"WS", "MIN", "PT10M", []int{1}},
	{"WS", "MIN", "PT2M", []int{1, 2}},
	{"WS", "VALUE", "", []int{1, 2}},
}

var defaultSchema = mustSchema(lsstLeaves)

// DefaultSchema returns the LSST AWS310 measurement schema.
func DefaultSchema() *Schema { return defaultSchema }

func mustSchema(leaves []Leaf) *Schema {
	s, err := NewSchema(leaves)
	if err != nil {
		panic(err)
	}
	return s
}
