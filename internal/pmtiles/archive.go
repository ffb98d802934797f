// Archive writing on top of the vendored PMTiles v3 primitives above: a
// single-root-directory writer good for the tile counts this pipeline's
// quad-coverage passes produce (no leaf-directory spill).
//
// Adapted from the teacher's vendored encode/decode helpers (header,
// entries, metadata) for this pipeline's own tile payloads: a length-
// prefixed concatenation of each active filter's raw geometry records for
// that quad, not an MVT-encoded tile. PMTiles only constrains addressing
// and directory layout, not tile content, so this stays a legitimate use
// of the format for a non-rendering pipeline.
package pmtiles

import (
	"encoding/binary"
	"os"
	"sort"
)

// Writer incrementally builds a PMTiles v3 archive: call AddTile once per
// (z,x,y), then Close to sort the directory by TileID and flush the
// directory, metadata, and header.
type Writer struct {
	f       *os.File
	entries []EntryV3
	offset  uint64
	minZoom uint8
	maxZoom uint8
	count   uint64
}

// Create opens path for writing and reserves space for the fixed header.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(HeaderV3LenBytes, 0); err != nil {
		f.Close()
		return nil, err
	}
	return &Writer{f: f, offset: uint64(HeaderV3LenBytes), minZoom: 255}, nil
}

// AddTile appends one tile's raw payload, keyed by its Hilbert TileID.
// Tiles may be added in any order; the header is marked clustered only if
// they arrived in non-decreasing TileID order.
func (w *Writer) AddTile(z uint8, x, y uint32, data []byte) error {
	id := uint64(0)
	if z > 0 {
		id = ZxyToID(z, x, y)
	}
	if _, err := w.f.Write(data); err != nil {
		return err
	}
	w.entries = append(w.entries, EntryV3{TileID: id, Offset: w.offset, Length: uint32(len(data)), RunLength: 1})
	w.offset += uint64(len(data))
	w.count++
	if z < w.minZoom {
		w.minZoom = z
	}
	if z > w.maxZoom {
		w.maxZoom = z
	}
	return nil
}

// Close writes the root directory, metadata, and header, in that order, so
// the header (written last) carries accurate offsets and counts.
func (w *Writer) Close() error {
	tileDataLen := w.offset - uint64(HeaderV3LenBytes)
	byID := func(i, j int) bool { return w.entries[i].TileID < w.entries[j].TileID }
	clustered := sort.SliceIsSorted(w.entries, byID)
	sort.SliceStable(w.entries, byID)

	dirBytes := SerializeEntries(w.entries, NoCompression)
	dirOffset := w.offset
	if _, err := w.f.Write(dirBytes); err != nil {
		w.f.Close()
		return err
	}

	metaBytes, err := SerializeMetadata(map[string]any{"generator": "gevectorquery"}, NoCompression)
	if err != nil {
		w.f.Close()
		return err
	}
	metaOffset := dirOffset + uint64(len(dirBytes))
	if _, err := w.f.Write(metaBytes); err != nil {
		w.f.Close()
		return err
	}

	if w.minZoom == 255 {
		w.minZoom = 0
	}
	header := HeaderV3{
		SpecVersion:         3,
		RootOffset:          dirOffset,
		RootLength:          uint64(len(dirBytes)),
		MetadataOffset:      metaOffset,
		MetadataLength:      uint64(len(metaBytes)),
		TileDataOffset:      HeaderV3LenBytes,
		TileDataLength:      tileDataLen,
		AddressedTilesCount: w.count,
		TileEntriesCount:    uint64(len(w.entries)),
		TileContentsCount:   uint64(len(w.entries)),
		Clustered:           clustered,
		InternalCompression: NoCompression,
		TileCompression:     NoCompression,
		TileType:            UnknownTileType,
		MinZoom:             w.minZoom,
		MaxZoom:             w.maxZoom,
	}
	if _, err := w.f.Seek(0, 0); err != nil {
		w.f.Close()
		return err
	}
	if _, err := w.f.Write(SerializeHeader(header)); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// LengthPrefixed concatenates byte blobs as a sequence of (uint32 length,
// bytes) pairs, the tile payload format a caller packing several filters'
// records into one AddTile call should use.
func LengthPrefixed(blobs [][]byte) []byte {
	var out []byte
	var lenBuf [4]byte
	for _, b := range blobs {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
		out = append(out, lenBuf[:]...)
		out = append(out, b...)
	}
	return out
}
