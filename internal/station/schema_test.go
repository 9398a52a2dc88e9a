package station

import (
	"errors"
	"testing"
)

func TestNewSchema_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		leaves []Leaf
	}{
		{"empty category", []Leaf{{"", "AVG", "PT1M", []int{1}}}},
		{"empty statistic", []Leaf{{"TA", "", "PT1M", []int{1}}}},
		{"no channels", []Leaf{{"TA", "AVG", "PT1M", nil}}},
		{"repeated channel", []Leaf{{"TA", "AVG", "PT1M", []int{1, 1}}}},
		{"duplicate leaf", []Leaf{{"TA", "AVG", "PT1M", []int{1}}, {"TA", "AVG", "PT1M", []int{2}}}},
		{"mixed levels", []Leaf{{"WD", "VALUE", "", []int{1}}, {"WD", "VALUE", "PT2M", []int{1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSchema(tt.leaves); !errors.Is(err, ErrInvalidSettings) {
				t.Errorf("NewSchema() error = %v, want ErrInvalidSettings", err)
			}
		})
	}
}

func TestSchema_IsImmutable(t *testing.T) {
	leaves := []Leaf{{"TA", "AVG", "PT1M", []int{1, 2}}}
	s, err := NewSchema(leaves)
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}

	leaves[0].Channels[0] = 9
	got := s.Leaves()
	got[0].Channels[1] = 9

	leaf, ok := s.Leaf(LeafKey{"TA", "AVG", "PT1M"})
	if !ok {
		t.Fatal("Leaf() not found")
	}
	if leaf.Channels[0] != 1 || leaf.Channels[1] != 2 {
		t.Errorf("Channels = %v, want [1 2]", leaf.Channels)
	}
}

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema()
	if s.Len() != 44 {
		t.Errorf("Len() = %d, want 44", s.Len())
	}

	leaf, ok := s.Leaf(LeafKey{Category: "WD", Statistic: "MAX", Period: "PT10M"})
	if !ok {
		t.Fatal("WD/MAX/PT10M missing")
	}
	if len(leaf.Channels) != 3 {
		t.Errorf("WD/MAX/PT10M channels = %v, want 3", leaf.Channels)
	}
	if _, ok := s.Leaf(LeafKey{Category: "WGD", Statistic: "VALUE"}); !ok {
		t.Error("WGD/VALUE single-level leaf missing")
	}
}

func TestLeafKey_String(t *testing.T) {
	if got := (LeafKey{"TA", "AVG", "PT1M"}).String(); got != "TA/AVG/PT1M" {
		t.Errorf("String() = %q", got)
	}
	if got := (LeafKey{Category: "WD", Statistic: "VALUE"}).String(); got != "WD/VALUE" {
		t.Errorf("String() = %q", got)
	}
	if !(LeafKey{}).IsZero() {
		t.Error("IsZero() = false for empty key")
	}
}
