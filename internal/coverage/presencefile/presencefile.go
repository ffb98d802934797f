// Package presencefile implements the on-disk binary encoding of a
// coverage.PresenceMask: a fixed 32-byte header, one 32-byte record per
// level, and the level bitmaps themselves, all written with a single
// mmap-style pass so a corrupted or truncated file is detected on load
// rather than mid-query.
//
// Grounded on earth_enterprise/src/common/khPresenceMask.cpp.
package presencefile

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/google/earthenterprise-sub002/internal/coreerr"
	"github.com/google/earthenterprise-sub002/internal/coverage"
	"github.com/google/earthenterprise-sub002/internal/tilespace"
)

// PathFor returns the on-disk path for a source's presence-mask file under
// dir, the one naming convention both the build CLI and the debug server
// use to find a given source's file.
func PathFor(dir, sourceName string) string {
	return filepath.Join(dir, sourceName+".presence")
}

// magic identifies a presence-mask file. It is exactly 24 bytes including
// the trailing NUL padding, matching the original's fixed char buffer.
var magic = [24]byte{}

func init() {
	copy(magic[:], "Keyhole Presence Mask")
}

// header is the file's 32-byte preamble.
type header struct {
	Magic      [24]byte
	BeginLevel uint32
	NumLevels  uint32
}

// levelRecord is one 32-byte per-level directory entry.
type levelRecord struct {
	DataOffset uint64
	DataSize   uint64
	BeginRow   uint32
	BeginCol   uint32
	NumRows    uint32
	NumCols    uint32
}

const headerSize = 32
const levelRecordSize = 32

// Write serializes mask to path: header, then one levelRecord per level,
// then each level's packed bitmap in order. The header is written last
// (after the body is flushed) so a reader can detect a crash mid-write by
// the magic bytes being zero/garbage.
func Write(path string, mask *coverage.PresenceMask, extentsByLevel map[uint]tilespace.Extents[uint32]) error {
	f, err := os.Create(path)
	if err != nil {
		return coreerr.Wrap(coreerr.IoFailure, "presencefile.Write", err).WithPath(path)
	}
	defer f.Close()

	begin := mask.BeginLevel()
	end := mask.EndLevel()
	numLevels := uint32(0)
	if end > begin {
		numLevels = uint32(end - begin)
	}

	if _, err := f.Seek(headerSize+int64(numLevels)*levelRecordSize, io.SeekStart); err != nil {
		return coreerr.Wrap(coreerr.IoFailure, "presencefile.Write", err).WithPath(path)
	}

	records := make([]levelRecord, numLevels)
	offset := uint64(headerSize) + uint64(numLevels)*levelRecordSize
	for level := begin; level < end; level++ {
		ext := extentsByLevel[level]
		rows := uint32(ext.EndY() - ext.BeginY())
		cols := uint32(ext.EndX() - ext.BeginX())
		nbits := int(rows) * int(cols)
		nwords := bitsWords(nbits)
		buf := make([]byte, nwords*8)
		for r := ext.BeginY(); r < ext.EndY(); r++ {
			for c := ext.BeginX(); c < ext.EndX(); c++ {
				if mask.EstimatedPresence(uint32(level), r, c) {
					bitIdx := int(r-ext.BeginY())*int(cols) + int(c-ext.BeginX())
					buf[bitIdx/8] |= 1 << uint(bitIdx%8)
				}
			}
		}
		if _, err := f.Write(buf); err != nil {
			return coreerr.Wrap(coreerr.IoFailure, "presencefile.Write", err).WithPath(path)
		}
		records[level-begin] = levelRecord{
			DataOffset: offset,
			DataSize:   uint64(len(buf)),
			BeginRow:   uint32(ext.BeginY()),
			BeginCol:   uint32(ext.BeginX()),
			NumRows:    rows,
			NumCols:    cols,
		}
		offset += uint64(len(buf))
	}

	if err := f.Sync(); err != nil {
		return coreerr.Wrap(coreerr.IoFailure, "presencefile.Write", err).WithPath(path)
	}

	if _, err := f.Seek(headerSize, io.SeekStart); err != nil {
		return coreerr.Wrap(coreerr.IoFailure, "presencefile.Write", err).WithPath(path)
	}
	for _, rec := range records {
		if err := binary.Write(f, binary.LittleEndian, rec); err != nil {
			return coreerr.Wrap(coreerr.IoFailure, "presencefile.Write", err).WithPath(path)
		}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return coreerr.Wrap(coreerr.IoFailure, "presencefile.Write", err).WithPath(path)
	}
	hdr := header{Magic: magic, BeginLevel: uint32(begin), NumLevels: numLevels}
	if err := binary.Write(f, binary.LittleEndian, hdr); err != nil {
		return coreerr.Wrap(coreerr.IoFailure, "presencefile.Write", err).WithPath(path)
	}
	return nil
}

// Read loads a presence-mask file, validating the magic and every level
// record's bounds before trusting any of it.
func Read(path string) (*coverage.PresenceMask, map[uint]tilespace.Extents[uint32], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, coreerr.Wrap(coreerr.IoFailure, "presencefile.Read", err).WithPath(path)
	}
	if len(data) < headerSize {
		return nil, nil, coreerr.New(coreerr.InvalidFormat, "presencefile.Read", "file shorter than header").WithPath(path)
	}
	var hdr header
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, nil, coreerr.Wrap(coreerr.InvalidFormat, "presencefile.Read", err).WithPath(path)
	}
	if !bytes.Equal(hdr.Magic[:], magic[:]) {
		return nil, nil, coreerr.New(coreerr.InvalidFormat, "presencefile.Read", "bad magic").WithPath(path)
	}
	recordsEnd := headerSize + int(hdr.NumLevels)*levelRecordSize
	if recordsEnd > len(data) {
		return nil, nil, coreerr.New(coreerr.InvalidFormat, "presencefile.Read", "truncated level record table").WithPath(path)
	}

	mask := coverage.NewPresenceMask(uint(hdr.BeginLevel), uint(hdr.BeginLevel)+uint(hdr.NumLevels))
	extentsByLevel := make(map[uint]tilespace.Extents[uint32], hdr.NumLevels)

	r := bytes.NewReader(data[headerSize:recordsEnd])
	for i := uint32(0); i < hdr.NumLevels; i++ {
		var rec levelRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, nil, coreerr.Wrap(coreerr.InvalidFormat, "presencefile.Read", err).WithPath(path)
		}
		level := uint(hdr.BeginLevel + i)
		end := rec.DataOffset + rec.DataSize
		if end > uint64(len(data)) || rec.DataOffset < uint64(recordsEnd) {
			return nil, nil, coreerr.New(coreerr.InvalidFormat, "presencefile.Read", "level data out of range").WithPath(path)
		}
		ext := tilespace.NewExtents(tilespace.RowColOrder,
			rec.BeginRow, rec.BeginRow+rec.NumRows,
			rec.BeginCol, rec.BeginCol+rec.NumCols)
		extentsByLevel[level] = ext

		expectedWords := bitsWords(int(rec.NumRows) * int(rec.NumCols))
		if rec.DataSize != uint64(expectedWords*8) {
			return nil, nil, coreerr.New(coreerr.InvalidFormat, "presencefile.Read", "level data size mismatch").WithPath(path)
		}
		levelData := data[rec.DataOffset:end]
		lm := coverage.NewLevelPresenceMask(level, ext)
		for row := ext.BeginY(); row < ext.EndY(); row++ {
			for col := ext.BeginX(); col < ext.EndX(); col++ {
				bitIdx := int(row-ext.BeginY())*int(rec.NumCols) + int(col-ext.BeginX())
				if levelData[bitIdx/8]&(1<<uint(bitIdx%8)) != 0 {
					lm.Set(row, col, true)
				}
			}
		}
		mask.SetLevelMask(level, lm)
	}
	return mask, extentsByLevel, nil
}

func bitsWords(nbits int) int { return (nbits + 63) / 64 }
