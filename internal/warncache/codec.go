package warncache

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

// On-disk layout, little endian:
//
//	tag         u16 length + bytes ("MODCHECK-WARN")
//	version     u16
//	fingerprint u16 length + bytes
//	count       u32
//	count x entry:
//	  key           u16 length + bytes
//	  shown count   u32
//	  last shown    i64 unix seconds, 0 = never
//	  initial done  u8
//	checksum    20 bytes, SHA-1 of everything above
//
// Tag and version are checked before anything else is trusted.
const (
	SchemaTag     = "MODCHECK-WARN"
	SchemaVersion = uint16(1)

	// maxFileSize bounds what Decode is willing to read.
	maxFileSize = 4 << 20
)

var (
	ErrBadSchema    = errors.New("warncache: not a warning cache file")
	ErrBadVersion   = errors.New("warncache: unsupported schema version")
	ErrTruncated    = errors.New("warncache: truncated data")
	ErrChecksum     = errors.New("warncache: checksum mismatch")
	ErrTrailingData = errors.New("warncache: trailing data after entries")
	ErrFieldTooLong = errors.New("warncache: field too long")
)

// Snapshot is the decoded content of a cache file.
type Snapshot struct {
	Fingerprint string
	Entries     map[string]Entry
}

// Encode writes the snapshot to w in the on-disk layout. Entries are written
// in key order so identical caches produce identical files.
func Encode(w io.Writer, s Snapshot) error {
	var buf []byte
	var err error

	if buf, err = appendString(buf, SchemaTag); err != nil {
		return err
	}
	buf = binary.LittleEndian.AppendUint16(buf, SchemaVersion)
	if buf, err = appendString(buf, s.Fingerprint); err != nil {
		return fmt.Errorf("fingerprint: %w", err)
	}
	if uint64(len(s.Entries)) > math.MaxUint32 {
		return fmt.Errorf("entries: %w", ErrFieldTooLong)
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Entries)))

	keys := make([]string, 0, len(s.Entries))
	for k := range s.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		e := s.Entries[k]
		if buf, err = appendString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf = binary.LittleEndian.AppendUint32(buf, e.ShownCount)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(unixSeconds(e.LastShownAt)))
		if e.InitialPhaseComplete {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	sum := sha1.Sum(buf)
	buf = append(buf, sum[:]...)

	_, err = w.Write(buf)
	return err
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (Snapshot, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFileSize+1))
	if err != nil {
		return Snapshot{}, err
	}
	if len(data) > maxFileSize {
		return Snapshot{}, fmt.Errorf("%w: file larger than %d bytes", ErrBadSchema, maxFileSize)
	}

	d := &decoder{buf: data}
	if tag := d.str(); d.err != nil || tag != SchemaTag {
		return Snapshot{}, ErrBadSchema
	}
	if v := d.u16(); d.err != nil {
		return Snapshot{}, ErrTruncated
	} else if v != SchemaVersion {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}

	if len(data) < d.off+sha1.Size {
		return Snapshot{}, ErrTruncated
	}
	body, trailer := data[:len(data)-sha1.Size], data[len(data)-sha1.Size:]
	if sum := sha1.Sum(body); !bytes.Equal(sum[:], trailer) {
		return Snapshot{}, ErrChecksum
	}
	d.buf = body

	snap := Snapshot{Fingerprint: d.str()}
	count := d.u32()
	if d.err != nil {
		return Snapshot{}, d.err
	}

	snap.Entries = make(map[string]Entry, min(int(count), 256))
	for i := uint32(0); i < count; i++ {
		key := d.str()
		e := Entry{
			ShownCount:  d.u32(),
			LastShownAt: fromUnixSeconds(int64(d.u64())),
		}
		switch flag := d.u8(); flag {
		case 0:
		case 1:
			e.InitialPhaseComplete = true
		default:
			if d.err == nil {
				d.err = fmt.Errorf("%w: entry %q has flag %d", ErrBadSchema, key, flag)
			}
		}
		if d.err != nil {
			return Snapshot{}, d.err
		}
		snap.Entries[key] = e
	}

	if d.off != len(d.buf) {
		return Snapshot{}, ErrTrailingData
	}
	return snap, nil
}

func appendString(buf []byte, s string) ([]byte, error) {
	if len(s) > math.MaxUint16 {
		return buf, ErrFieldTooLong
	}
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...), nil
}

func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnixSeconds(s int64) time.Time {
	if s == 0 {
		return time.Time{}
	}
	return time.Unix(s, 0).UTC()
}

// decoder reads fixed-width fields from buf. The first short read sets err
// and turns every later read into a no-op.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf)-d.off < n {
		d.err = ErrTruncated
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if b := d.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (d *decoder) str() string {
	n := int(d.u16())
	return string(d.take(n))
}
