package btree

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/corestore/reldb/internal/rowcodec"
)

// Save writes ix to path using the big-endian on-disk format from spec
// §4.5:
//
//	index_name   utf8 (u16 len prefix)
//	table_name   utf8 (u16 len prefix)
//	column_name  utf8 (u16 len prefix)
//	unique       u8
//	insert_count u64
//	lookup_count u64
//	range_count  u64
//	entry_count  u32  (distinct keys)
//	per entry:
//	  tagged_key      (tag:u8, then tag-specific payload)
//	  row_id_count    u32
//	  row_ids         u64 each
func (ix *Index) Save(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("btree: create %s: %w", tmp, err)
	}
	w := bufio.NewWriter(f)

	snap := ix.snapshot()
	ix.mu.RLock()
	insertCount, lookupCount, rangeCount := ix.insertCount, ix.lookupCount, ix.rangeCount
	unique := ix.Unique
	ix.mu.RUnlock()

	writeErr := func() error {
		if err := writeString(w, ix.IndexName); err != nil {
			return err
		}
		if err := writeString(w, ix.TableName); err != nil {
			return err
		}
		if err := writeString(w, ix.ColumnName); err != nil {
			return err
		}
		var uniqueByte byte
		if unique {
			uniqueByte = 1
		}
		if err := w.WriteByte(uniqueByte); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, insertCount); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, lookupCount); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, rangeCount); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(len(snap))); err != nil {
			return err
		}
		for k, set := range snap {
			if err := writeTaggedValue(w, k.V); err != nil {
				return err
			}
			if err := binary.Write(w, binary.BigEndian, uint32(len(set))); err != nil {
				return err
			}
			for id := range set {
				if err := binary.Write(w, binary.BigEndian, id); err != nil {
					return err
				}
			}
		}
		return w.Flush()
	}()

	closeErr := f.Close()
	if writeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("btree: write %s: %w", tmp, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("btree: close %s: %w", tmp, closeErr)
	}
	return os.Rename(tmp, path)
}

// Load reads an index previously written by Save. The IndexName/TableName/
// ColumnName/Unique fields and all counters are restored from the file;
// callers typically discard the returned Index's identity fields in favor
// of catalog metadata and keep only the bucket contents, but both are
// populated for the round-trip property spec §8 requires
// (load(save(idx)) == idx).
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("btree: open %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	indexName, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("btree: read index_name: %w", err)
	}
	tableName, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("btree: read table_name: %w", err)
	}
	columnName, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("btree: read column_name: %w", err)
	}
	uniqueByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("btree: read unique: %w", err)
	}

	var insertCount, lookupCount, rangeCount uint64
	if err := binary.Read(r, binary.BigEndian, &insertCount); err != nil {
		return nil, fmt.Errorf("btree: read insert_count: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &lookupCount); err != nil {
		return nil, fmt.Errorf("btree: read lookup_count: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &rangeCount); err != nil {
		return nil, fmt.Errorf("btree: read range_count: %w", err)
	}

	var entryCount uint32
	if err := binary.Read(r, binary.BigEndian, &entryCount); err != nil {
		return nil, fmt.Errorf("btree: read entry_count: %w", err)
	}

	ix := New(indexName, tableName, columnName, uniqueByte != 0)
	ix.insertCount = insertCount
	ix.lookupCount = lookupCount
	ix.rangeCount = rangeCount

	for i := uint32(0); i < entryCount; i++ {
		v, err := readTaggedValue(r)
		if err != nil {
			return nil, fmt.Errorf("btree: read entry %d key: %w", i, err)
		}
		var rowIDCount uint32
		if err := binary.Read(r, binary.BigEndian, &rowIDCount); err != nil {
			return nil, fmt.Errorf("btree: read entry %d row_id_count: %w", i, err)
		}
		set := make(map[uint64]struct{}, rowIDCount)
		for j := uint32(0); j < rowIDCount; j++ {
			var id uint64
			if err := binary.Read(r, binary.BigEndian, &id); err != nil {
				return nil, fmt.Errorf("btree: read entry %d row_id %d: %w", i, j, err)
			}
			set[id] = struct{}{}
		}
		ix.buckets[NewKey(v)] = set
	}

	return ix, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeTaggedValue(w io.Writer, v rowcodec.Value) error {
	if err := binary.Write(w, binary.BigEndian, byte(v.Tag)); err != nil {
		return err
	}
	switch v.Tag {
	case rowcodec.TagNull:
		return nil
	case rowcodec.TagInt32:
		return binary.Write(w, binary.BigEndian, v.I32)
	case rowcodec.TagInt64:
		return binary.Write(w, binary.BigEndian, v.I64)
	case rowcodec.TagFloat:
		return binary.Write(w, binary.BigEndian, v.F64)
	case rowcodec.TagBool:
		var b byte
		if v.B {
			b = 1
		}
		return binary.Write(w, binary.BigEndian, b)
	case rowcodec.TagString:
		return writeString(w, v.S)
	default:
		return fmt.Errorf("btree: unknown value tag %d", v.Tag)
	}
}

func readTaggedValue(r io.Reader) (rowcodec.Value, error) {
	var tag byte
	if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
		return rowcodec.Value{}, err
	}
	switch rowcodec.Tag(tag) {
	case rowcodec.TagNull:
		return rowcodec.Null, nil
	case rowcodec.TagInt32:
		var n int32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return rowcodec.Value{}, err
		}
		return rowcodec.Int32(n), nil
	case rowcodec.TagInt64:
		var n int64
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return rowcodec.Value{}, err
		}
		return rowcodec.Int64(n), nil
	case rowcodec.TagFloat:
		var f float64
		if err := binary.Read(r, binary.BigEndian, &f); err != nil {
			return rowcodec.Value{}, err
		}
		return rowcodec.Float64(f), nil
	case rowcodec.TagBool:
		var b byte
		if err := binary.Read(r, binary.BigEndian, &b); err != nil {
			return rowcodec.Value{}, err
		}
		return rowcodec.Bool(b != 0), nil
	case rowcodec.TagString:
		s, err := readString(r)
		if err != nil {
			return rowcodec.Value{}, err
		}
		return rowcodec.String(s), nil
	default:
		return rowcodec.Value{}, fmt.Errorf("btree: unknown value tag %d", tag)
	}
}
