package rewrite

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sort"

	"pdfsan/ir/raw"
)

// streamHashPrefix bounds how much stream data feeds the structural hash.
const streamHashPrefix = 1024

// deduplicate groups objects by structural hash and collapses each group
// onto its lowest-numbered member, rewriting every reference in the whole
// object map. Bucket order is ascending ref so runs are reproducible.
func (rw *Rewriter) deduplicate(doc *raw.Document, stats *Stats) error {
	buckets := make(map[uint64][]raw.ObjectRef)
	for _, ref := range doc.SortedRefs() {
		h := hashObject(doc.Objects[ref])
		buckets[h] = append(buckets[h], ref)
	}

	mapping := make(map[raw.ObjectRef]raw.ObjectRef)
	for _, group := range buckets {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Less(group[j]) })
		canonical := group[0]
		for _, dup := range group[1:] {
			mapping[dup] = canonical
		}
	}
	if len(mapping) == 0 {
		return nil
	}

	replaceRefs(doc, mapping)
	if newRoot, ok := mapping[doc.Trailer.Root]; ok {
		doc.Trailer.Root = newRoot
	}
	if doc.Trailer.Info != nil {
		if newInfo, ok := mapping[*doc.Trailer.Info]; ok {
			doc.Trailer.Info = &newInfo
		}
	}
	if ref, ok := doc.EncryptRef(); ok {
		if newRef, hit := mapping[ref]; hit {
			doc.Trailer.Encrypt = raw.RefObj{R: newRef}
		}
	}
	for dup := range mapping {
		delete(doc.Objects, dup)
		stats.ObjectsMerged++
	}
	return nil
}

// hashObject computes a stable 64-bit structural hash: object type, the
// Filter value for streams, and either the first kilobyte of stream data or
// the full value tree.
func hashObject(obj raw.Object) uint64 {
	h := fnv.New64a()
	writeHash(h, obj)
	return h.Sum64()
}

func writeHash(h interface{ Write([]byte) (int, error) }, obj raw.Object) {
	if obj == nil {
		h.Write([]byte("nil"))
		return
	}
	h.Write([]byte(obj.Type()))
	h.Write([]byte{':'})
	switch t := obj.(type) {
	case raw.Name:
		h.Write([]byte(t.Value()))
	case raw.Number:
		var buf [8]byte
		if t.IsInteger() {
			binary.LittleEndian.PutUint64(buf[:], uint64(t.Int()))
		} else {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(t.Float()))
		}
		h.Write(buf[:])
	case raw.Boolean:
		if t.Value() {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case raw.String:
		h.Write(t.Value())
	case raw.Reference:
		var buf [8]byte
		binary.LittleEndian.PutUint32(buf[:4], uint32(t.Ref().Num))
		binary.LittleEndian.PutUint32(buf[4:], uint32(t.Ref().Gen))
		h.Write(buf[:])
	case raw.Array:
		h.Write([]byte{'['})
		for i := 0; i < t.Len(); i++ {
			v, _ := t.Get(i)
			writeHash(h, v)
			h.Write([]byte{','})
		}
		h.Write([]byte{']'})
	case raw.Stream:
		h.Write([]byte(raw.DictName(t.Dictionary(), "Filter")))
		h.Write([]byte{'|'})
		data := t.RawData()
		if len(data) > streamHashPrefix {
			data = data[:streamHashPrefix]
		}
		h.Write(data)
	case raw.Dictionary:
		h.Write([]byte("<<"))
		keys := t.Keys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].Value() < keys[j].Value() })
		for _, k := range keys {
			h.Write([]byte(k.Value()))
			v, _ := t.Get(k)
			writeHash(h, v)
		}
		h.Write([]byte(">>"))
	case raw.Null:
		h.Write([]byte("null"))
	}
}
