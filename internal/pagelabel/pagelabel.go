// Package pagelabel decodes a range-based page numbering table into one
// label string per page.
package pagelabel

import (
	"sort"
	"strconv"
)

// Style is the numbering scheme of a range. The zero value is StyleNone:
// a descriptor that omits its style renders the prefix alone.
type Style int

const (
	StyleNone Style = iota
	StyleDecimal
	StyleUpperRoman
	StyleLowerRoman
	StyleUpperAlpha
	StyleLowerAlpha
)

func (s Style) String() string {
	switch s {
	case StyleDecimal:
		return "decimal"
	case StyleUpperRoman:
		return "upper_roman"
	case StyleLowerRoman:
		return "lower_roman"
	case StyleUpperAlpha:
		return "upper_alpha"
	case StyleLowerAlpha:
		return "lower_alpha"
	}
	return "none"
}

// StyleFromName maps a PDF /S name (D, R, r, A, a) to a Style.
// Unknown or empty names map to StyleNone.
func StyleFromName(name string) Style {
	switch name {
	case "D":
		return StyleDecimal
	case "R":
		return StyleUpperRoman
	case "r":
		return StyleLowerRoman
	case "A":
		return StyleUpperAlpha
	case "a":
		return StyleLowerAlpha
	}
	return StyleNone
}

// Descriptor is one entry of the numbering table. Fields left at their zero
// value are treated as omitted: no number, empty prefix, counter restarting at 1.
type Descriptor struct {
	StartIndex int    // 0-based page index where this range begins
	Style      Style  // numbering scheme for the range
	Prefix     string // literal text before the number
	Start      int    // value of the counter on the first page of the range
}

// Decode renders a label for every page index in [0, pageCount).
// It returns ok=false when the table is absent; callers should fall back to
// raw page numbers.
func Decode(descriptors []Descriptor, pageCount int) (labels []string, ok bool) {
	if len(descriptors) == 0 || pageCount <= 0 {
		return nil, false
	}

	byIndex := make(map[int]Descriptor, len(descriptors))
	for _, d := range sortedCopy(descriptors) {
		byIndex[d.StartIndex] = d
	}

	labels = make([]string, pageCount)
	prefix := ""
	style := StyleDecimal
	counter := 1
	for i := 0; i < pageCount; i++ {
		if d, found := byIndex[i]; found {
			style = d.Style
			prefix = d.Prefix
			counter = d.Start
			if counter < 1 {
				counter = 1
			}
		}
		labels[i] = prefix + Format(style, counter)
		counter++
	}
	return labels, true
}

// RawLabels returns "1".."n", the labels used when a document has no table.
func RawLabels(pageCount int) []string {
	labels := make([]string, pageCount)
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	return labels
}

// Format renders n in the given style. StyleNone renders nothing.
func Format(style Style, n int) string {
	switch style {
	case StyleNone:
		return ""
	case StyleUpperRoman:
		return ToRoman(n, true)
	case StyleLowerRoman:
		return ToRoman(n, false)
	case StyleUpperAlpha:
		return ToAlpha(n, true)
	case StyleLowerAlpha:
		return ToAlpha(n, false)
	}
	return strconv.Itoa(n)
}

func sortedCopy(descriptors []Descriptor) []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartIndex < out[j].StartIndex })
	return out
}
