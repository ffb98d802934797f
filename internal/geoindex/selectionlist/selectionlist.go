// Package selectionlist reads and writes the query-result selection file: a
// text file naming the bounding box and feature ids produced by a saved
// selection, one feature id per line.
//
// Grounded on gstGeoIndexImpl::ThrowingReadFile/WriteFile in
// earth_enterprise/src/fusion/gst/gstGeoIndex.cpp.
package selectionlist

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/earthenterprise-sub002/internal/coreerr"
	"github.com/google/earthenterprise-sub002/internal/geoindex"
)

// List is a saved selection: the oversized bounding box that produced it,
// plus the ordered list of feature ids that matched.
type List struct {
	Bounds     geoindex.BBox
	FeatureIDs []int
}

// Read parses a selection file. Files written without an EXTENTS header
// (pre-upgrade) are accepted with a zero-value Bounds, matching the
// original's "read old style file and upgrade it if necessary" behavior.
func Read(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "selectionlist.Read", err).WithPath(path)
	}
	defer f.Close()

	list := &List{}
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if first {
			first = false
			if strings.HasPrefix(line, "EXTENTS:") {
				b, err := parseExtents(line)
				if err != nil {
					return nil, coreerr.Wrap(coreerr.InvalidFormat, "selectionlist.Read", err).WithPath(path)
				}
				list.Bounds = b
				continue
			}
			// old-style file: this line is already a feature id, fall through
		}
		id, err := strconv.Atoi(line)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.InvalidFormat, "selectionlist.Read", err).WithPath(path)
		}
		list.FeatureIDs = append(list.FeatureIDs, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "selectionlist.Read", err).WithPath(path)
	}
	return list, nil
}

func parseExtents(line string) (geoindex.BBox, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "EXTENTS:"))
	parts := strings.Split(rest, ",")
	if len(parts) != 4 {
		return geoindex.BBox{}, fmt.Errorf("malformed EXTENTS line: %q", line)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geoindex.BBox{}, fmt.Errorf("malformed EXTENTS value %q: %w", p, err)
		}
		vals[i] = v
	}
	// order is w, e, s, n, matching WriteFile's fprintf argument order.
	return geoindex.BBox{West: vals[0], East: vals[1], South: vals[2], North: vals[3]}, nil
}

// Write serializes a selection in the same textual format Read accepts,
// overwriting path if it already exists.
func Write(path string, list *List) error {
	f, err := os.Create(path)
	if err != nil {
		return coreerr.Wrap(coreerr.IoFailure, "selectionlist.Write", err).WithPath(path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "EXTENTS: %.20f, %.20f, %.20f, %.20f\n",
		list.Bounds.West, list.Bounds.East, list.Bounds.South, list.Bounds.North)
	for _, id := range list.FeatureIDs {
		fmt.Fprintf(w, "%d\n", id)
	}
	if err := w.Flush(); err != nil {
		return coreerr.Wrap(coreerr.IoFailure, "selectionlist.Write", err).WithPath(path)
	}
	return nil
}
