package core

import "sort"

// KeySet is a set of card keys.
type KeySet map[CardKey]struct{}

// NewKeySet builds a KeySet from keys.
func NewKeySet(keys ...CardKey) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Contains reports whether k is in the set.
func (s KeySet) Contains(k CardKey) bool {
	_, ok := s[k]
	return ok
}

// Sorted returns the keys in ascending order.
func (s KeySet) Sorted() []CardKey {
	keys := make([]CardKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Equal reports whether two sets hold the same keys.
func (s KeySet) Equal(other KeySet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// SortKeys sorts keys in place and returns them.
func SortKeys(keys []CardKey) []CardKey {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ContainsTag reports whether the sorted TagID slice tags contains id.
// Card tag slices are kept sorted so membership is a binary search.
func ContainsTag(tags []TagID, id TagID) bool {
	lo, hi := 0, len(tags)
	for lo < hi {
		mid := (lo + hi) / 2
		if tags[mid] < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo < len(tags) && tags[lo] == id
}
