package pagelabel

import (
	"reflect"
	"testing"
)

func TestDecode_RomanFrontMatterThenDecimal(t *testing.T) {
	descs := []Descriptor{
		{StartIndex: 0, Style: StyleLowerRoman},
		{StartIndex: 3, Style: StyleDecimal, Start: 1},
	}
	labels, ok := Decode(descs, 5)
	if !ok {
		t.Fatal("expected labels to be decoded")
	}
	want := []string{"i", "ii", "iii", "1", "2"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("expected %v, got %v", want, labels)
	}
}

func TestDecode_Ranges(t *testing.T) {
	tests := []struct {
		name  string
		descs []Descriptor
		pages int
		want  []string
	}{
		{
			name:  "style change without start restarts counter",
			descs: []Descriptor{{StartIndex: 0, Style: StyleDecimal}, {StartIndex: 2, Style: StyleUpperRoman}},
			pages: 4,
			want:  []string{"1", "2", "I", "II"},
		},
		{
			name:  "omitted style renders prefix only",
			descs: []Descriptor{{StartIndex: 0, Prefix: "Cover"}},
			pages: 2,
			want:  []string{"Cover", "Cover"},
		},
		{
			name:  "prefix is not inherited",
			descs: []Descriptor{{StartIndex: 0, Style: StyleDecimal, Prefix: "G"}, {StartIndex: 2, Style: StyleDecimal}},
			pages: 4,
			want:  []string{"G1", "G2", "1", "2"},
		},
		{
			name:  "pages before first descriptor use decimal from one",
			descs: []Descriptor{{StartIndex: 2, Style: StyleLowerAlpha}},
			pages: 4,
			want:  []string{"1", "2", "a", "b"},
		},
		{
			name:  "explicit start value",
			descs: []Descriptor{{StartIndex: 0, Style: StyleDecimal, Start: 10}},
			pages: 3,
			want:  []string{"10", "11", "12"},
		},
		{
			name:  "non-positive start treated as one",
			descs: []Descriptor{{StartIndex: 0, Style: StyleUpperAlpha, Start: -4}},
			pages: 2,
			want:  []string{"A", "B"},
		},
		{
			name:  "unsorted input",
			descs: []Descriptor{{StartIndex: 1, Style: StyleDecimal, Prefix: "G"}, {StartIndex: 0, Style: StyleLowerRoman}},
			pages: 3,
			want:  []string{"i", "G1", "G2"},
		},
		{
			name:  "descriptor past the last page is ignored",
			descs: []Descriptor{{StartIndex: 0, Style: StyleDecimal}, {StartIndex: 10, Style: StyleUpperRoman}},
			pages: 2,
			want:  []string{"1", "2"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			labels, ok := Decode(tc.descs, tc.pages)
			if !ok {
				t.Fatal("expected ok=true")
			}
			if !reflect.DeepEqual(labels, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, labels)
			}
		})
	}
}

func TestDecode_AbsentTable(t *testing.T) {
	if labels, ok := Decode(nil, 3); ok || labels != nil {
		t.Errorf("expected no labels, got %v (ok=%v)", labels, ok)
	}
	if _, ok := Decode([]Descriptor{}, 3); ok {
		t.Error("expected empty table to report no labels")
	}
}

func TestDecode_Idempotent(t *testing.T) {
	descs := []Descriptor{
		{StartIndex: 0, Style: StyleUpperRoman},
		{StartIndex: 4, Style: StyleDecimal, Prefix: "G", Start: 7},
		{StartIndex: 9, Style: StyleLowerAlpha},
	}
	a, _ := Decode(descs, 40)
	b, _ := Decode(descs, 40)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected identical label arrays, got %v and %v", a, b)
	}
}

func TestRawLabels(t *testing.T) {
	want := []string{"1", "2", "3"}
	if got := RawLabels(3); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestToRoman(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "I"}, {4, "IV"}, {9, "IX"}, {14, "XIV"}, {40, "XL"}, {90, "XC"},
		{400, "CD"}, {1994, "MCMXCIV"}, {3999, "MMMCMXCIX"}, {4000, "MMMM"}, {0, "0"},
	}
	for _, tc := range tests {
		if got := ToRoman(tc.n, true); got != tc.want {
			t.Errorf("ToRoman(%d): expected %q, got %q", tc.n, tc.want, got)
		}
	}
	if got := ToRoman(14, false); got != "xiv" {
		t.Errorf("expected lower-case %q, got %q", "xiv", got)
	}
}

func TestToAlpha(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "a"}, {26, "z"}, {27, "aa"}, {52, "az"}, {53, "ba"}, {702, "zz"}, {703, "aaa"},
	}
	for _, tc := range tests {
		if got := ToAlpha(tc.n, false); got != tc.want {
			t.Errorf("ToAlpha(%d): expected %q, got %q", tc.n, tc.want, got)
		}
	}
	if got := ToAlpha(28, true); got != "AB" {
		t.Errorf("expected upper-case %q, got %q", "AB", got)
	}
}

func TestNumeralRoundTrip(t *testing.T) {
	for n := 1; n <= 100; n++ {
		for _, upper := range []bool{true, false} {
			r, err := ParseRoman(ToRoman(n, upper))
			if err != nil || r != n {
				t.Errorf("roman round trip for %d: got %d, err %v", n, r, err)
			}
			a, err := ParseAlpha(ToAlpha(n, upper))
			if err != nil || a != n {
				t.Errorf("alpha round trip for %d: got %d, err %v", n, a, err)
			}
		}
	}
}

func TestParseRoman_Invalid(t *testing.T) {
	for _, s := range []string{"", "IIII", "ABC", "VX", "IC"} {
		if _, err := ParseRoman(s); err == nil {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}

func TestParseAlpha_Invalid(t *testing.T) {
	for _, s := range []string{"", "a1", "é"} {
		if _, err := ParseAlpha(s); err == nil {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}

func TestStyleFromName(t *testing.T) {
	tests := map[string]Style{
		"D": StyleDecimal, "R": StyleUpperRoman, "r": StyleLowerRoman,
		"A": StyleUpperAlpha, "a": StyleLowerAlpha, "": StyleNone, "X": StyleNone,
	}
	for name, want := range tests {
		if got := StyleFromName(name); got != want {
			t.Errorf("StyleFromName(%q): expected %v, got %v", name, want, got)
		}
	}
}
