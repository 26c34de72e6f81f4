package xisf

import (
	"encoding/binary"

	"github.com/arlobase/astrofmt/errs"
)

// XISBEntry is one block descriptor within a distributed block-index
// node.
type XISBEntry struct {
	UniqueID                 uint64
	BlockPosition             int64
	BlockLength               int64
	UncompressedBlockLength   int64
	Free                      bool
}

// XISB is a parsed distributed block index: a singly-linked list of
// nodes, each holding a run of XISBEntry records. Cyclic node chains
// are rejected while parsing.
type XISB struct {
	Entries []XISBEntry
}

const xisbEntrySize = 5 * 8 // uniqueId, blockPosition, blockLength, uncompressedBlockLength, free — each u64

// ParseXISB parses a distributed XISB0100 index buffer: 8-byte
// signature, then a singly-linked list of nodes, each
// {length(u64), nextNode(u64), entries...}.
func ParseXISB(data []byte) (*XISB, error) {
	if len(data) < 8 || string(data[0:8]) != DistributedSignature {
		return nil, errs.NewFormatError("xisf", "missing XISB0100 signature")
	}

	idx := &XISB{}
	visited := map[uint64]bool{}
	pos := uint64(8)

	for pos != 0 {
		if visited[pos] {
			return nil, errs.NewValidationError("xisf", "XISB", "cyclic node list")
		}
		visited[pos] = true

		if pos+16 > uint64(len(data)) {
			return nil, errs.NewFormatError("xisf", "truncated XISB node header")
		}
		length := binary.LittleEndian.Uint64(data[pos : pos+8])
		next := binary.LittleEndian.Uint64(data[pos+8 : pos+16])

		entriesStart := pos + 16
		entriesEnd := entriesStart + length
		if entriesEnd > uint64(len(data)) {
			return nil, errs.NewFormatError("xisf", "XISB node extends past buffer")
		}

		for p := entriesStart; p+xisbEntrySize <= entriesEnd; p += xisbEntrySize {
			e := XISBEntry{
				UniqueID:                binary.LittleEndian.Uint64(data[p : p+8]),
				BlockPosition:           int64(binary.LittleEndian.Uint64(data[p+8 : p+16])),
				BlockLength:             int64(binary.LittleEndian.Uint64(data[p+16 : p+24])),
				UncompressedBlockLength: int64(binary.LittleEndian.Uint64(data[p+24 : p+32])),
				Free:                    binary.LittleEndian.Uint64(data[p+32:p+40]) != 0,
			}
			idx.Entries = append(idx.Entries, e)
		}

		pos = next
	}

	return idx, nil
}

// Lookup returns the entry whose UniqueID matches uid (parsed as a
// base-10 uint64 string, XISF's uniqueId attribute convention).
func (x *XISB) Lookup(uid string) (XISBEntry, bool) {
	n, err := parseUniqueID(uid)
	if err != nil {
		return XISBEntry{}, false
	}
	for _, e := range x.Entries {
		if e.UniqueID == n && !e.Free {
			return e, true
		}
	}

	return XISBEntry{}, false
}

func parseUniqueID(s string) (uint64, error) {
	var n uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errs.NewFormatError("xisf", "non-numeric uniqueId: "+s)
		}
		n = n*10 + uint64(c-'0')
	}

	return n, nil
}
