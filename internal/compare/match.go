// Package compare implements the catalog-matching and differencing engine:
// given two discovered catalogs it decides which objects correspond to one
// another and emits a core.Difference for every disagreement it finds.
package compare

import "schemasync/internal/introspect"

// Fingerprintable is satisfied by any catalog object whose structural
// signature can be used for rename/duplicate detection once exact-name
// matching has been exhausted.
type Fingerprintable interface {
	Fingerprint() string
}

// Pair is two matched objects, one per side.
type Pair[T any] struct {
	Source T
	Target T
}

// RenamePair is a Pair matched by structural fingerprint rather than name.
type RenamePair[T any] struct {
	Source     T
	Target     T
	SourceName string
	TargetName string
}

// Duplicate is one non-canonical member of a same-side fingerprint group:
// Item is the duplicate object, CanonicalName the name of the first object
// discovered with that fingerprint (which is itself never reported).
type Duplicate[T any] struct {
	Item          T
	CanonicalName string
}

// MatchResult is the outcome of running Match over one object kind within
// one table.
type MatchResult[T any] struct {
	Exact           []Pair[T]
	Renamed         []RenamePair[T]
	DuplicateSource []Duplicate[T]
	DuplicateTarget []Duplicate[T]
	MissingInTarget []T // present in source only
	MissingInSource []T // present in target only
}

// Match runs the four-pass matching algorithm over two sides of the same
// object kind:
//
//  1. Exact name match — same key present on both sides.
//  2. Duplicate-within-side — among what's left, objects on ONE side that
//     share a fingerprint with each other are flagged as duplicates and
//     removed from rename consideration; a duplicate can never be a rename
//     candidate because its fingerprint does not uniquely identify one
//     object on its own side.
//  3. Fingerprint rename — among what's left (now fingerprint-unique per
//     side), a source object and a target object sharing a fingerprint are
//     paired as a rename, walked in discovery order so the result is
//     deterministic regardless of map iteration order.
//  4. Sweep — anything still unmatched is reported missing on the other
//     side.
//
// source.Order/target.Order give the discovery order of the corresponding
// ByKey maps' keys; Go map iteration order is randomized, so determinism
// depends on the caller filling Order through Keyed.Add.
func Match[T Fingerprintable](
	source introspect.Keyed[T],
	target introspect.Keyed[T],
	nameOf func(T) string,
) MatchResult[T] {
	var result MatchResult[T]
	sourceOrder, targetOrder := source.Order, target.Order

	sourceLeft := make(map[string]T, len(source.ByKey))
	targetLeft := make(map[string]T, len(target.ByKey))
	for _, k := range sourceOrder {
		sourceLeft[k] = source.ByKey[k]
	}
	for _, k := range targetOrder {
		targetLeft[k] = target.ByKey[k]
	}

	// Pass 1: exact name match.
	for _, k := range sourceOrder {
		sv, ok := sourceLeft[k]
		if !ok {
			continue
		}
		if tv, ok := targetLeft[k]; ok {
			result.Exact = append(result.Exact, Pair[T]{Source: sv, Target: tv})
			delete(sourceLeft, k)
			delete(targetLeft, k)
		}
	}

	// Pass 2: duplicate-within-side by fingerprint. The first object
	// discovered for a given fingerprint is canonical and stays in play for
	// Pass 3; every later object sharing that fingerprint is reported as a
	// duplicate of the canonical and removed.
	sourceFPCount := fingerprintCounts(sourceLeft)
	targetFPCount := fingerprintCounts(targetLeft)

	sourceCanonical := map[string]T{}
	sourceDupKeys := map[string]bool{}
	for _, k := range sourceOrder {
		v, ok := sourceLeft[k]
		if !ok {
			continue
		}
		fp := v.Fingerprint()
		if sourceFPCount[fp] <= 1 {
			continue
		}
		if canon, seen := sourceCanonical[fp]; seen {
			result.DuplicateSource = append(result.DuplicateSource, Duplicate[T]{Item: v, CanonicalName: nameOf(canon)})
			sourceDupKeys[k] = true
		} else {
			sourceCanonical[fp] = v
		}
	}
	for k := range sourceDupKeys {
		delete(sourceLeft, k)
	}

	targetCanonical := map[string]T{}
	targetDupKeys := map[string]bool{}
	for _, k := range targetOrder {
		v, ok := targetLeft[k]
		if !ok {
			continue
		}
		fp := v.Fingerprint()
		if targetFPCount[fp] <= 1 {
			continue
		}
		if canon, seen := targetCanonical[fp]; seen {
			result.DuplicateTarget = append(result.DuplicateTarget, Duplicate[T]{Item: v, CanonicalName: nameOf(canon)})
			targetDupKeys[k] = true
		} else {
			targetCanonical[fp] = v
		}
	}
	for k := range targetDupKeys {
		delete(targetLeft, k)
	}

	// Pass 3: fingerprint-based rename pairing, source discovery order.
	targetByFP := make(map[string]string, len(targetLeft)) // fingerprint -> target key
	for _, k := range targetOrder {
		v, ok := targetLeft[k]
		if !ok {
			continue
		}
		targetByFP[v.Fingerprint()] = k
	}

	for _, k := range sourceOrder {
		sv, ok := sourceLeft[k]
		if !ok {
			continue
		}
		tk, ok := targetByFP[sv.Fingerprint()]
		if !ok {
			continue
		}
		tv, ok := targetLeft[tk]
		if !ok {
			continue
		}
		result.Renamed = append(result.Renamed, RenamePair[T]{
			Source: sv, Target: tv,
			SourceName: nameOf(sv), TargetName: nameOf(tv),
		})
		delete(sourceLeft, k)
		delete(targetLeft, tk)
	}

	// Pass 4: sweep.
	for _, k := range sourceOrder {
		if v, ok := sourceLeft[k]; ok {
			result.MissingInTarget = append(result.MissingInTarget, v)
		}
	}
	for _, k := range targetOrder {
		if v, ok := targetLeft[k]; ok {
			result.MissingInSource = append(result.MissingInSource, v)
		}
	}

	return result
}

func fingerprintCounts[T Fingerprintable](m map[string]T) map[string]int {
	counts := make(map[string]int, len(m))
	for _, v := range m {
		counts[v.Fingerprint()]++
	}
	return counts
}
