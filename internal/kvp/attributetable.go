package kvp

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/google/earthenterprise-sub002/internal/coreerr"
	"github.com/google/earthenterprise-sub002/internal/record"
)

// AttributeTable is a KVP attribute table file: a FieldSpec header plus
// row-packed records, with a tail index of {offset, size, pad} triples
// parallel to the geometry file's record index.
type AttributeTable struct {
	Header  *record.Header
	records [][]byte
}

func (t *AttributeTable) NumRecords() int   { return len(t.records) }
func (t *AttributeTable) RawRecord(i int) []byte { return t.records[i] }

// ReadAttributeTable decodes an attribute table file written by
// WriteAttributeTable.
func ReadAttributeTable(path string) (*AttributeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "kvp.ReadAttributeTable", err).WithPath(path)
	}
	c := &cursor{data: data}
	numCols := c.u32()
	specs := make([]record.FieldSpec, numCols)
	for i := range specs {
		nameLen := c.u32()
		if !c.need(int(nameLen)) {
			return nil, coreerr.New(coreerr.InvalidFormat, "kvp.ReadAttributeTable", "truncated column name").WithPath(path)
		}
		name := string(data[c.pos : c.pos+int(nameLen)])
		c.pos += int(nameLen)
		specs[i] = record.FieldSpec{
			Name:       name,
			Type:       record.FieldType(c.u32()),
			Length:     int(c.u32()),
			Multiplier: c.f64(),
		}
	}
	numRecs := c.u32()
	if c.err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidFormat, "kvp.ReadAttributeTable", c.err).WithPath(path)
	}

	const entrySize = 8 + 4 + 4
	indexStart := len(data) - int(numRecs)*entrySize
	if indexStart < c.pos {
		return nil, coreerr.New(coreerr.InvalidFormat, "kvp.ReadAttributeTable", "truncated index").WithPath(path)
	}

	type tailEntry struct {
		offset uint64
		size   uint32
	}
	entries := make([]tailEntry, numRecs)
	ic := &cursor{data: data[indexStart:]}
	for i := range entries {
		entries[i].offset = ic.u64()
		entries[i].size = ic.u32()
		ic.u32() // pad
	}
	if ic.err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidFormat, "kvp.ReadAttributeTable", ic.err).WithPath(path)
	}

	records := make([][]byte, numRecs)
	for i, e := range entries {
		if e.offset+uint64(e.size) > uint64(indexStart) {
			return nil, coreerr.New(coreerr.InvalidFormat, "kvp.ReadAttributeTable", "record extends past index").WithPath(path)
		}
		records[i] = data[e.offset : e.offset+uint64(e.size)]
	}

	return &AttributeTable{Header: record.NewHeader(specs), records: records}, nil
}

// AttributeTableWriter incrementally builds a KVP attribute table file.
type AttributeTableWriter struct {
	f      *os.File
	header *record.Header
	index  []struct {
		offset uint64
		size   uint32
	}
	offset uint64
}

// CreateAttributeTable opens path for writing, with its header (column
// schema) written immediately since, unlike the geometry file, the schema
// is fixed before any record is appended.
func CreateAttributeTable(path string, header *record.Header) (*AttributeTableWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "kvp.CreateAttributeTable", err).WithPath(path)
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(header.NumColumns()))
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return nil, coreerr.Wrap(coreerr.IoFailure, "kvp.CreateAttributeTable", err).WithPath(path)
	}
	offset := uint64(4)
	for i := 0; i < header.NumColumns(); i++ {
		spec := header.Spec(i)
		entry := encodeFieldSpec(spec)
		if _, err := f.Write(entry); err != nil {
			f.Close()
			return nil, coreerr.Wrap(coreerr.IoFailure, "kvp.CreateAttributeTable", err).WithPath(path)
		}
		offset += uint64(len(entry))
	}
	// num_recs placeholder, patched by Close.
	if _, err := f.Write(make([]byte, 4)); err != nil {
		f.Close()
		return nil, coreerr.Wrap(coreerr.IoFailure, "kvp.CreateAttributeTable", err).WithPath(path)
	}
	offset += 4
	return &AttributeTableWriter{f: f, header: header, offset: offset}, nil
}

func encodeFieldSpec(spec record.FieldSpec) []byte {
	nameBytes := []byte(spec.Name)
	buf := make([]byte, 4+len(nameBytes)+4+4+8)
	binary.LittleEndian.PutUint32(buf[0:], uint32(len(nameBytes)))
	copy(buf[4:], nameBytes)
	off := 4 + len(nameBytes)
	binary.LittleEndian.PutUint32(buf[off:], uint32(spec.Type))
	binary.LittleEndian.PutUint32(buf[off+4:], uint32(spec.Length))
	putFloat64(buf[off+8:], spec.Multiplier)
	return buf
}

func putFloat64(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

// AddRecord appends one row's raw encoded bytes (caller-encoded per
// header's FieldSpec list).
func (w *AttributeTableWriter) AddRecord(data []byte) error {
	if _, err := w.f.Write(data); err != nil {
		return coreerr.Wrap(coreerr.IoFailure, "kvp.AddRecord", err)
	}
	w.index = append(w.index, struct {
		offset uint64
		size   uint32
	}{offset: w.offset, size: uint32(len(data))})
	w.offset += uint64(len(data))
	return nil
}

// Close writes the tail index and patches the num_recs field.
func (w *AttributeTableWriter) Close() error {
	for _, e := range w.index {
		buf := make([]byte, 16)
		binary.LittleEndian.PutUint64(buf[0:], e.offset)
		binary.LittleEndian.PutUint32(buf[8:], e.size)
		if _, err := w.f.Write(buf); err != nil {
			w.f.Close()
			return coreerr.Wrap(coreerr.IoFailure, "kvp.Close", err)
		}
	}

	numColsField := int64(4)
	var schemaSize int64
	for i := 0; i < w.header.NumColumns(); i++ {
		schemaSize += int64(len(encodeFieldSpec(w.header.Spec(i))))
	}
	numRecsOffset := numColsField + schemaSize
	if _, err := w.f.Seek(numRecsOffset, io.SeekStart); err != nil {
		w.f.Close()
		return coreerr.Wrap(coreerr.IoFailure, "kvp.Close", err)
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(w.index)))
	if _, err := w.f.Write(buf); err != nil {
		w.f.Close()
		return coreerr.Wrap(coreerr.IoFailure, "kvp.Close", err)
	}
	return w.f.Close()
}
