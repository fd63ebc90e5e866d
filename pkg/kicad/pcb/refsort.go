package pcb

import (
	"cmp"
	"slices"
	"strings"
)

// splitReference splits a designator into its letter prefix, numeric
// suffix and whatever follows the number ("U12A" -> "U", "12", "A").
// The digits are returned without leading zeros.
func splitReference(ref string) (prefix, digits, rest string) {
	i := 0
	for i < len(ref) && (ref[i] < '0' || ref[i] > '9') {
		i++
	}
	j := i
	for j < len(ref) && ref[j] >= '0' && ref[j] <= '9' {
		j++
	}
	digits = strings.TrimLeft(ref[i:j], "0")
	if digits == "" && j > i {
		digits = "0"
	}
	return ref[:i], digits, ref[j:]
}

// ReferencePrefix returns the letter prefix of a designator ("R" for "R12")
func ReferencePrefix(ref string) string {
	prefix, _, _ := splitReference(ref)
	return prefix
}

// CompareReferences orders designators naturally: by letter prefix, then
// numerically by the number that follows (R1 < R2 < R10), then by any
// trailing text. Designators without a number sort before numbered ones
// of the same prefix. The order is total; exact ties fall back to byte order.
func CompareReferences(a, b string) int {
	ap, ad, ar := splitReference(a)
	bp, bd, br := splitReference(b)

	if c := strings.Compare(ap, bp); c != 0 {
		return c
	}
	// Numbers of arbitrary length compare by digit count, then digit by digit
	if c := cmp.Compare(len(ad), len(bd)); c != 0 {
		return c
	}
	if c := strings.Compare(ad, bd); c != 0 {
		return c
	}
	if c := strings.Compare(ar, br); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// SortReferences sorts designators in place in natural order
func SortReferences(refs []string) {
	slices.SortStableFunc(refs, CompareReferences)
}

// SortFootprints sorts footprints in place by reference designator
func SortFootprints(fps []Footprint) {
	slices.SortStableFunc(fps, func(a, b Footprint) int {
		return CompareReferences(a.Reference, b.Reference)
	})
}
