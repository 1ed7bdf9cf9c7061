// Package page implements the fixed-size slotted page from spec §3 ("Page")
// and §4.1 (C1): a header, a slot directory growing up from low addresses,
// and row bytes growing down from the high end.
package page

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the on-disk page header size (spec §6 "page_header_size").
// header layout: page_id(4) row_count(4) free_space_start(4)
// free_space_end(4) flags(4) + 12 reserved = 32 bytes.
const HeaderSize = 32

// SlotSize is the size of one slot directory entry: offset:u32, length:u32.
const SlotSize = 8

// Slot is a directory entry. A zero-value Slot ({0,0}) is a tombstone.
type Slot struct {
	Offset uint32
	Length uint32
}

func (s Slot) isTombstone() bool { return s.Offset == 0 && s.Length == 0 }

// Page is one fixed-size (PageSize-byte) slotted page belonging to exactly
// one table (spec §3 invariant).
type Page struct {
	PageSize uint32

	id             uint32
	rowCount       uint32 // total slots including tombstones, per spec §8
	freeSpaceStart uint32 // end of slot directory
	freeSpaceEnd   uint32 // start of row data region (moves down only)
	flags          uint32

	slots []Slot
	data  []byte // full PageSize-byte buffer, row bytes live in data[freeSpaceEnd:]
	dirty bool
}

// New creates an empty page of the given id and size, with the header
// occupying [0, HeaderSize) and the rest free.
func New(id uint32, pageSize uint32) *Page {
	p := &Page{
		PageSize:       pageSize,
		id:             id,
		freeSpaceStart: HeaderSize,
		freeSpaceEnd:   pageSize,
		data:           make([]byte, pageSize),
	}
	return p
}

// ID returns the page's identifier.
func (p *Page) ID() uint32 { return p.id }

// Dirty reports whether the page has unflushed changes.
func (p *Page) Dirty() bool { return p.dirty }

// MarkClean clears the dirty flag, called by the page cache after a
// successful flush.
func (p *Page) MarkClean() { p.dirty = false }

// FreeBytes returns the bytes currently available for a new slot+row.
func (p *Page) FreeBytes() uint32 {
	if p.freeSpaceEnd < p.freeSpaceStart {
		return 0
	}
	return p.freeSpaceEnd - p.freeSpaceStart
}

// Full reports whether the page has room for another slot directory entry,
// per spec §4.1: "a page is considered full once free_space_end -
// free_space_start < 8".
func (p *Page) Full() bool { return p.FreeBytes() < SlotSize }

// ErrFull signals a page cannot accommodate an insert; the page cache
// allocates a new page in response (spec §4.1).
var ErrFull = fmt.Errorf("page: full")

// ErrNoFit signals an in-place update does not fit within the existing
// slot and the page also lacks room to append a fresh slot (spec §4.1
// update_row "NO_FIT").
var ErrNoFit = fmt.Errorf("page: no fit for update")

// ErrTombstone is returned by ReadRow for a deleted slot.
var ErrTombstone = fmt.Errorf("page: tombstone slot")

// InsertRow appends bytes as a new row: a new slot at the bottom of the
// directory and the bytes at the top of the free region (spec §4.1).
// Returns the slot index.
func (p *Page) InsertRow(rowBytes []byte) (int, error) {
	need := uint32(len(rowBytes)) + SlotSize
	if need > p.FreeBytes() {
		return 0, ErrFull
	}

	newEnd := p.freeSpaceEnd - uint32(len(rowBytes))
	copy(p.data[newEnd:p.freeSpaceEnd], rowBytes)
	p.freeSpaceEnd = newEnd

	slot := Slot{Offset: newEnd, Length: uint32(len(rowBytes))}
	p.slots = append(p.slots, slot)
	p.freeSpaceStart += SlotSize
	p.rowCount = uint32(len(p.slots))
	p.dirty = true

	return len(p.slots) - 1, nil
}

// ReadRow returns the bytes stored at slot, or ErrTombstone if the slot has
// been deleted.
func (p *Page) ReadRow(slot int) ([]byte, error) {
	if slot < 0 || slot >= len(p.slots) {
		return nil, fmt.Errorf("page: slot %d out of range", slot)
	}
	s := p.slots[slot]
	if s.isTombstone() {
		return nil, ErrTombstone
	}
	out := make([]byte, s.Length)
	copy(out, p.data[s.Offset:s.Offset+s.Length])
	return out, nil
}

// UpdateRow writes newBytes into slot. If it fits in the existing slot
// length, the write happens in place and the slot length shrinks to the
// new size (bytes beyond it are simply unreachable, never reclaimed, per
// spec's "deleted-but-not-compacted space is NEVER reclaimed"). If it does
// not fit, the old slot is tombstoned and a fresh slot is appended within
// the same page; if there is no room for that either, ErrNoFit is returned
// and the caller (page cache) decides the next-page policy.
func (p *Page) UpdateRow(slot int, newBytes []byte) error {
	if slot < 0 || slot >= len(p.slots) {
		return fmt.Errorf("page: slot %d out of range", slot)
	}
	s := p.slots[slot]
	if s.isTombstone() {
		return fmt.Errorf("page: slot %d is a tombstone", slot)
	}

	if uint32(len(newBytes)) <= s.Length {
		copy(p.data[s.Offset:s.Offset+uint32(len(newBytes))], newBytes)
		p.slots[slot] = Slot{Offset: s.Offset, Length: uint32(len(newBytes))}
		p.dirty = true
		return nil
	}

	need := uint32(len(newBytes)) + SlotSize
	if need > p.FreeBytes() {
		return ErrNoFit
	}

	p.slots[slot] = Slot{} // tombstone the old slot
	newEnd := p.freeSpaceEnd - uint32(len(newBytes))
	copy(p.data[newEnd:p.freeSpaceEnd], newBytes)
	p.freeSpaceEnd = newEnd
	p.slots = append(p.slots, Slot{Offset: newEnd, Length: uint32(len(newBytes))})
	p.freeSpaceStart += SlotSize
	p.rowCount = uint32(len(p.slots))
	p.dirty = true
	return nil
}

// NewSlotIndex returns the slot index that would be assigned by the most
// recent append-driven UpdateRow/InsertRow call, i.e. len(slots)-1. Exposed
// so the page cache can track where an updated row landed when it moved.
func (p *Page) NewSlotIndex() int { return len(p.slots) - 1 }

// DeleteRow tombstones slot: sets it to (0,0), per spec §4.1.
func (p *Page) DeleteRow(slot int) error {
	if slot < 0 || slot >= len(p.slots) {
		return fmt.Errorf("page: slot %d out of range", slot)
	}
	p.slots[slot] = Slot{}
	p.dirty = true
	return nil
}

// AllRows iterates every non-tombstone slot in directory order, yielding
// (slotIndex, rowBytes) pairs via fn. Iteration stops early if fn returns
// false.
func (p *Page) AllRows(fn func(slot int, rowBytes []byte) bool) {
	for i, s := range p.slots {
		if s.isTombstone() {
			continue
		}
		rowBytes := make([]byte, s.Length)
		copy(rowBytes, p.data[s.Offset:s.Offset+s.Length])
		if !fn(i, rowBytes) {
			return
		}
	}
}

// SlotCount returns the number of slots, including tombstones (spec §8:
// "p.row_count equals the number of slots (including tombstones)").
func (p *Page) SlotCount() int { return len(p.slots) }

// FreeSpaceStart and FreeSpaceEnd expose the header fields for the §8
// invariant check (HeaderSize <= free_space_start <= free_space_end <=
// PageSize).
func (p *Page) FreeSpaceStart() uint32 { return p.freeSpaceStart }
func (p *Page) FreeSpaceEnd() uint32   { return p.freeSpaceEnd }

// Encode serializes the page's header, slot directory, and row bytes into
// a PageSize-byte buffer ready to be written at its page_id*PageSize file
// offset (spec §6: "little-endian for page header").
func (p *Page) Encode() []byte {
	out := make([]byte, p.PageSize)
	binary.LittleEndian.PutUint32(out[0:4], p.id)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(p.slots)))
	binary.LittleEndian.PutUint32(out[8:12], p.freeSpaceStart)
	binary.LittleEndian.PutUint32(out[12:16], p.freeSpaceEnd)
	binary.LittleEndian.PutUint32(out[16:20], p.flags)
	// bytes [20:32) are reserved, left zero.

	pos := HeaderSize
	for _, s := range p.slots {
		binary.LittleEndian.PutUint32(out[pos:pos+4], s.Offset)
		binary.LittleEndian.PutUint32(out[pos+4:pos+8], s.Length)
		pos += SlotSize
	}

	copy(out[p.freeSpaceEnd:], p.data[p.freeSpaceEnd:])
	return out
}

// Decode parses a PageSize-byte buffer produced by Encode back into a Page.
func Decode(buf []byte) (*Page, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("page: buffer too small (%d bytes)", len(buf))
	}
	pageSize := uint32(len(buf))
	id := binary.LittleEndian.Uint32(buf[0:4])
	rowCount := binary.LittleEndian.Uint32(buf[4:8])
	freeStart := binary.LittleEndian.Uint32(buf[8:12])
	freeEnd := binary.LittleEndian.Uint32(buf[12:16])
	flags := binary.LittleEndian.Uint32(buf[16:20])

	if freeStart < HeaderSize || freeStart > freeEnd || freeEnd > pageSize {
		return nil, fmt.Errorf("page: corrupt header (start=%d end=%d size=%d)", freeStart, freeEnd, pageSize)
	}

	p := &Page{
		PageSize:       pageSize,
		id:             id,
		rowCount:       rowCount,
		freeSpaceStart: freeStart,
		freeSpaceEnd:   freeEnd,
		flags:          flags,
		data:           make([]byte, pageSize),
	}
	copy(p.data, buf)

	nSlots := int(rowCount)
	pos := HeaderSize
	for i := 0; i < nSlots; i++ {
		if pos+SlotSize > int(freeStart) {
			return nil, fmt.Errorf("page: slot directory overruns free_space_start")
		}
		off := binary.LittleEndian.Uint32(buf[pos : pos+4])
		length := binary.LittleEndian.Uint32(buf[pos+4 : pos+8])
		p.slots = append(p.slots, Slot{Offset: off, Length: length})
		pos += SlotSize
	}
	return p, nil
}
