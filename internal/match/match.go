// Package match implements the pairwise same-entity decision used to fold raw
// source records into match groups. All inputs are expected to be normalized
// already; an absent field is the empty string and never counts as a signal.
package match

import "strings"

// Identity is the projection of a normalized record that identity resolution
// looks at. Entity types expose their own conversion to it.
type Identity struct {
	FamilyName   string
	GivenName    string
	BirthDate    string
	Phone        string
	Email        string
	RecordNumber string
}

// nameThreshold is the minimum positional similarity for both name fields in
// the name+birth-date rule.
const nameThreshold = 0.85

// Similarity scores two strings as the fraction of identical characters at
// identical positions over the longer string's length. Equal strings score
// 1.0, an empty side scores 0.0. This is deliberately positional, not an edit
// distance: insertions shift everything after them and tank the score.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1.0
	}

	ra, rb := []rune(a), []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	same := 0
	for i := 0; i < len(ra) && i < len(rb); i++ {
		if ra[i] == rb[i] {
			same++
		}
	}
	return float64(same) / float64(longer)
}

// SameEntity reports whether two normalized records denote the same
// real-world entity. The rules form a disjunction evaluated in order:
//
//  1. both names similar above the threshold and an equal, present birth date
//  2. equal present phones
//  3. equal present emails, case-insensitive
//  4. equal present record numbers
//
// The relation is not transitive; grouping policy lives in package golden.
func SameEntity(a, b Identity) bool {
	if Similarity(a.FamilyName, b.FamilyName) > nameThreshold &&
		Similarity(a.GivenName, b.GivenName) > nameThreshold &&
		a.BirthDate != "" && a.BirthDate == b.BirthDate {
		return true
	}
	if a.Phone != "" && b.Phone != "" && a.Phone == b.Phone {
		return true
	}
	if a.Email != "" && b.Email != "" && strings.EqualFold(a.Email, b.Email) {
		return true
	}
	if a.RecordNumber != "" && b.RecordNumber != "" && a.RecordNumber == b.RecordNumber {
		return true
	}
	return false
}
