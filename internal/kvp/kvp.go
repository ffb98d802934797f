// Package kvp reads and writes the KVP vector file format: a binary store
// of geometry records (V1/V2) and, in a parallel file, the KVP attribute
// table. Both formats write their index at the file tail so records can be
// appended without rewriting a header.
//
// Grounded on earth_enterprise/src/fusion/gst/gstKVPFile.h and
// gstKVPTable.h (shape only; this port is a fresh binary encoder/decoder,
// not a byte-for-byte port of the C++ I/O helpers) and spec.md §6.
package kvp

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/google/earthenterprise-sub002/internal/coreerr"
)

const (
	magic    uint32 = 0xab0120cd
	VersionV1 uint32 = 1
	VersionV2 uint32 = 2
)

// PrimType mirrors the geometry-type code shared across a V2 file's
// records.
type PrimType uint32

const (
	PrimPoint PrimType = iota
	PrimPolyline
	PrimPolygon
)

// IndexEntry is one geometry record's tail-index entry.
type IndexEntry struct {
	Offset uint64
	Size   uint32
	Pad    uint32
	BBox   [4]float64 // xmin, ymin, xmax, ymax
}

// File is a decoded KVP vector file: header fields plus the raw record
// bytes addressable by index. Geometry decoding is left to the caller
// (the byte layout per record is shared with the rest of the pipeline's
// WKB-style geode encoding, not redefined here).
type File struct {
	Version  uint32
	PrimType PrimType
	BBox     [4]float64
	records  [][]byte
	index    []IndexEntry
}

// NumRecords returns the record count.
func (f *File) NumRecords() int { return len(f.records) }

// Record returns the raw bytes of record i.
func (f *File) Record(i int) []byte { return f.records[i] }

// IndexEntry returns the tail-index entry for record i.
func (f *File) IndexEntry(i int) IndexEntry { return f.index[i] }

// Read decodes a KVP vector file. It accepts both V1 (no prim_type field)
// and V2; both layouts carry a tail index, which Read decodes and returns
// alongside the records.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "kvp.Read", err).WithPath(path)
	}
	if len(data) < 16 {
		return nil, coreerr.New(coreerr.InvalidFormat, "kvp.Read", "file too short for header").WithPath(path)
	}
	r := &cursor{data: data}
	gotMagic := r.u32()
	if gotMagic != magic {
		return nil, coreerr.New(coreerr.InvalidFormat, "kvp.Read", "bad magic").WithPath(path)
	}
	version := r.u32()
	if version != VersionV1 && version != VersionV2 {
		return nil, coreerr.New(coreerr.InvalidFormat, "kvp.Read", "unsupported version").WithPath(path)
	}
	numRecs := r.u32()
	var prim PrimType
	if version == VersionV2 {
		prim = PrimType(r.u32())
	}
	var bbox [4]float64
	for i := range bbox {
		bbox[i] = r.f64()
	}
	if r.err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidFormat, "kvp.Read", r.err).WithPath(path)
	}

	// Tail index: numRecs entries of {offset u64, size u32, pad u32, bbox 4xf64} = 48 bytes each.
	const entrySize = 8 + 4 + 4 + 4*8
	indexStart := len(data) - int(numRecs)*entrySize
	if indexStart < 0 || indexStart < r.pos {
		return nil, coreerr.New(coreerr.InvalidFormat, "kvp.Read", "truncated index").WithPath(path)
	}

	idx := make([]IndexEntry, numRecs)
	ir := &cursor{data: data[indexStart:]}
	for i := range idx {
		idx[i].Offset = ir.u64()
		idx[i].Size = ir.u32()
		idx[i].Pad = ir.u32()
		for j := range idx[i].BBox {
			idx[i].BBox[j] = ir.f64()
		}
	}
	if ir.err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidFormat, "kvp.Read", ir.err).WithPath(path)
	}

	records := make([][]byte, numRecs)
	for i, e := range idx {
		if e.Offset+uint64(e.Size) > uint64(indexStart) {
			return nil, coreerr.New(coreerr.InvalidFormat, "kvp.Read", "record extends past index").WithPath(path)
		}
		records[i] = data[e.Offset : e.Offset+uint64(e.Size)]
	}

	return &File{Version: version, PrimType: prim, BBox: bbox, records: records, index: idx}, nil
}

// Writer incrementally builds a V2 KVP vector file: call AddRecord per
// geometry, then Close to flush the header, records, and tail index.
type Writer struct {
	f        *os.File
	prim     PrimType
	bbox     [4]float64
	index    []IndexEntry
	offset   uint64
	headerAt int64
}

// Create opens path for writing and reserves space for the header, which
// is patched in by Close once the record count and bbox are known --
// matching the presence-mask file's "write header last" discipline so a
// reader never sees a file claiming more records than were flushed.
func Create(path string, prim PrimType) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "kvp.Create", err).WithPath(path)
	}
	headerSize := int64(4 + 4 + 4 + 4 + 4*8) // magic, version, num_recs, prim_type, bbox
	if _, err := f.Seek(headerSize, io.SeekStart); err != nil {
		f.Close()
		return nil, coreerr.Wrap(coreerr.IoFailure, "kvp.Create", err).WithPath(path)
	}
	return &Writer{f: f, prim: prim, offset: uint64(headerSize)}, nil
}

// AddRecord appends a raw geometry record with its bounding box.
func (w *Writer) AddRecord(data []byte, bbox [4]float64) error {
	if _, err := w.f.Write(data); err != nil {
		return coreerr.Wrap(coreerr.IoFailure, "kvp.AddRecord", err)
	}
	w.index = append(w.index, IndexEntry{Offset: w.offset, Size: uint32(len(data)), BBox: bbox})
	w.offset += uint64(len(data))
	growBBox(&w.bbox, bbox)
	return nil
}

func growBBox(total *[4]float64, b [4]float64) {
	if *total == ([4]float64{}) {
		*total = b
		return
	}
	total[0] = min(total[0], b[0])
	total[1] = min(total[1], b[1])
	total[2] = max(total[2], b[2])
	total[3] = max(total[3], b[3])
}

// Close writes the tail index, then seeks back and writes the header,
// which is why the header carries accurate num_recs/bbox values derived
// purely from what was actually flushed.
func (w *Writer) Close() error {
	for _, e := range w.index {
		buf := make([]byte, 8+4+4+4*8)
		binary.LittleEndian.PutUint64(buf[0:], e.Offset)
		binary.LittleEndian.PutUint32(buf[8:], e.Size)
		binary.LittleEndian.PutUint32(buf[12:], e.Pad)
		for j, v := range e.BBox {
			binary.LittleEndian.PutUint64(buf[16+j*8:], math.Float64bits(v))
		}
		if _, err := w.f.Write(buf); err != nil {
			w.f.Close()
			return coreerr.Wrap(coreerr.IoFailure, "kvp.Close", err)
		}
	}

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		w.f.Close()
		return coreerr.Wrap(coreerr.IoFailure, "kvp.Close", err)
	}
	header := make([]byte, 4+4+4+4+4*8)
	binary.LittleEndian.PutUint32(header[0:], magic)
	binary.LittleEndian.PutUint32(header[4:], VersionV2)
	binary.LittleEndian.PutUint32(header[8:], uint32(len(w.index)))
	binary.LittleEndian.PutUint32(header[12:], uint32(w.prim))
	for j, v := range w.bbox {
		binary.LittleEndian.PutUint64(header[16+j*8:], math.Float64bits(v))
	}
	if _, err := w.f.Write(header); err != nil {
		w.f.Close()
		return coreerr.Wrap(coreerr.IoFailure, "kvp.Close", err)
	}
	return w.f.Close()
}

// cursor is a small little-endian byte reader tracking position and the
// first error encountered, so callers can chain reads and check err once.
type cursor struct {
	data []byte
	pos  int
	err  error
}

func (c *cursor) need(n int) bool {
	if c.err != nil || c.pos+n > len(c.data) {
		if c.err == nil {
			c.err = io.ErrUnexpectedEOF
		}
		return false
	}
	return true
}

func (c *cursor) u32() uint32 {
	if !c.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v
}

func (c *cursor) u64() uint64 {
	if !c.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(c.data[c.pos:])
	c.pos += 8
	return v
}

func (c *cursor) f64() float64 {
	bits := c.u64()
	return math.Float64frombits(bits)
}
