// Package polyline implements PolylineJoiner: merging polylines that meet
// at a shared degree-2 endpoint into a single longer polyline, and
// removing exact-duplicate polylines along the way.
//
// Only degree-2 vertices are joined — a vertex where three or more
// polylines meet must keep each polyline separately labeled. A single
// self-closing polyline passes through unchanged; polylines that together
// form a closed cycle are joined into a single ring only if every vertex
// along it is itself degree 2.
//
// Grounded on
// earth_enterprise/src/fusion/gst/vectorprep/PolylineJoiner.h.
package polyline

import (
	"github.com/paulmach/orb"
)

const coordEpsilon = 0.0 // exact-match join, matching the original's exact-vertex test

type endpointKey orb.Point

func keyOf(p orb.Point) endpointKey { return endpointKey(p) }

// Result reports what RemoveDuplicatesAndJoin did, for caller diagnostics.
type Result struct {
	Lines          []orb.LineString
	NumDuplicates  uint64
	NumJoined      uint64
}

// RemoveDuplicatesAndJoin removes exact-duplicate polylines and merges
// chains of polylines connected end-to-end at degree-2 vertices.
func RemoveDuplicatesAndJoin(lines []orb.LineString) Result {
	active := make([]orb.LineString, 0, len(lines))
	seen := map[string]bool{}
	var numDuplicates uint64
	for _, l := range lines {
		if len(l) < 2 {
			continue
		}
		key := canonicalKey(l)
		if seen[key] {
			numDuplicates++
			continue
		}
		seen[key] = true
		active = append(active, l)
	}

	degree := map[endpointKey]int{}
	for _, l := range active {
		degree[keyOf(l[0])]++
		degree[keyOf(l[len(l)-1])]++
	}

	// index of polylines incident to each endpoint; every non-self-closing
	// polyline is listed under both of its endpoints (a self-loop bumps
	// degree by 2 and never qualifies for joining).
	atEndpoint := map[endpointKey][]int{}
	for i, l := range active {
		if keyOf(l[0]) == keyOf(l[len(l)-1]) {
			continue // self-closing loop: never a join candidate, excluded from degree-2 sets
		}
		atEndpoint[keyOf(l[0])] = append(atEndpoint[keyOf(l[0])], i)
		atEndpoint[keyOf(l[len(l)-1])] = append(atEndpoint[keyOf(l[len(l)-1])], i)
	}

	used := make([]bool, len(active))
	var numJoined uint64
	var out []orb.LineString

	// non-cyclic chains: start from an endpoint with a degree != 2 (a true
	// chain terminus), walk forward through degree-2 joins.
	for i, l := range active {
		if used[i] {
			continue
		}
		if degree[keyOf(l[0])] == 2 && keyOf(l[0]) != keyOf(l[len(l)-1]) {
			if degree[keyOf(l[len(l)-1])] == 2 {
				continue // not a terminus; will be reached by its chain's other end
			}
			active[i] = reversed(l) // terminus is at the far end: walk from it
		}
		chain := walkChain(active, used, degree, atEndpoint, i, false)
		used[i] = true
		if len(chain) > 1 {
			numJoined += uint64(len(chain) - 1)
		}
		out = append(out, mergeChain(active, chain))
	}

	// remaining unused, non-self-closing polylines form pure cycles: every
	// vertex along them is degree 2, so there is no terminus to start from.
	for i, l := range active {
		if used[i] || keyOf(l[0]) == keyOf(l[len(l)-1]) {
			continue
		}
		chain := walkChain(active, used, degree, atEndpoint, i, true)
		used[i] = true
		if len(chain) > 1 {
			numJoined += uint64(len(chain) - 1)
		}
		out = append(out, mergeChain(active, chain))
	}

	// self-closing loops pass through untouched.
	for i, l := range active {
		if used[i] {
			continue
		}
		used[i] = true
		out = append(out, l)
	}

	return Result{Lines: out, NumDuplicates: numDuplicates, NumJoined: numJoined}
}

// chainStep names a polyline index and whether it must be reversed before
// appending to the chain being built.
type chainStep struct {
	idx     int
	reverse bool
}

// walkChain follows degree-2 links starting at lines[start], in one
// direction, until it reaches a non-degree-2 vertex (for a true chain) or
// loops back to its own start (for a cycle).
func walkChain(lines []orb.LineString, used []bool, degree map[endpointKey]int, atEndpoint map[endpointKey][]int, start int, isCycle bool) []chainStep {
	chain := []chainStep{{idx: start, reverse: false}}
	used[start] = true
	cur := lines[start]
	frontier := keyOf(cur[len(cur)-1])
	originStart := keyOf(cur[0])

	for {
		if isCycle && frontier == originStart && len(chain) > 1 {
			break
		}
		if degree[frontier] != 2 {
			break
		}
		next, nextReverse, ok := findPartner(lines, used, atEndpoint, frontier, chain[len(chain)-1].idx)
		if !ok {
			break
		}
		used[next] = true
		chain = append(chain, chainStep{idx: next, reverse: nextReverse})
		nl := lines[next]
		if nextReverse {
			frontier = keyOf(nl[0])
		} else {
			frontier = keyOf(nl[len(nl)-1])
		}
	}
	return chain
}

// findPartner finds the other not-yet-used polyline sharing endpoint
// vertex, oriented so its first point touches vertex.
func findPartner(lines []orb.LineString, used []bool, atEndpoint map[endpointKey][]int, vertex endpointKey, exclude int) (idx int, reverse bool, ok bool) {
	for _, cand := range atEndpoint[vertex] {
		if cand == exclude || used[cand] {
			continue
		}
		l := lines[cand]
		if keyOf(l[0]) == vertex {
			return cand, false, true
		}
		if keyOf(l[len(l)-1]) == vertex {
			return cand, true, true
		}
	}
	return 0, false, false
}

// mergeChain concatenates the polylines in chain order, reversing any step
// marked reverse, and de-duplicating the shared vertex between consecutive
// pieces.
func mergeChain(lines []orb.LineString, chain []chainStep) orb.LineString {
	var out orb.LineString
	for _, step := range chain {
		l := lines[step.idx]
		if step.reverse {
			l = reversed(l)
		}
		if len(out) > 0 {
			l = l[1:]
		}
		out = append(out, l...)
	}
	return out
}

func reversed(l orb.LineString) orb.LineString {
	out := make(orb.LineString, len(l))
	for i, p := range l {
		out[len(l)-1-i] = p
	}
	return out
}

// canonicalKey produces a duplicate-detection key that treats a polyline
// and its exact reverse as the same segment.
func canonicalKey(l orb.LineString) string {
	fwd := pointsKey(l)
	rev := pointsKey(reversed(l))
	if fwd < rev {
		return fwd
	}
	return rev
}

func pointsKey(l orb.LineString) string {
	b := make([]byte, 0, len(l)*24)
	for _, p := range l {
		b = appendFloat(b, p.X())
		b = appendFloat(b, p.Y())
	}
	return string(b)
}

func appendFloat(b []byte, f float64) []byte {
	bits := int64(f * 1e12)
	for i := 0; i < 8; i++ {
		b = append(b, byte(bits>>(8*i)))
	}
	return b
}
