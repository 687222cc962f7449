package sequence

import (
	"github.com/biogo/hts/sam"
	"github.com/fragmentlab/readsim/variant"
	"github.com/grailbio/base/log"
)

// alignOp is one token of the reference<->haplotype alignment trace built
// while applying a ploid's variants to a reference window. M and I tokens
// each correspond to exactly one haplotype byte; D tokens correspond to a
// deleted reference position and consume no haplotype byte.
type alignOp struct {
	op     byte // 'M', 'I', or 'D'
	refPos int  // valid reference-window-relative position for M and D
	hapPos int  // valid haplotype-byte index for M and I
}

// cigarEntry is a precomputed, ready-to-emit alignment for a read starting
// at a given reference position.
type cigarEntry struct {
	cigar   sam.Cigar
	hapPos  int
	hapLen  int // number of haplotype bytes (M+I ops) the read consumes
	refSpan int // number of reference bases (M+D ops) the read consumes
}

// haplotype is the mutated sequence for one ploid copy of a window, with
// its CIGAR map: one entry per reference start position from which a
// read_len read can be sliced.
type haplotype struct {
	bases    []byte
	align    []alignOp
	byRefPos map[int]int // reference-window-relative position -> index into align
	cigarMap map[int]cigarEntry
}

// buildHaplotype applies vars (already filtered to this ploid and sorted
// by Pos) to ref, producing the mutated byte sequence and its alignment
// trace. ref is a window-relative slice; vars' Pos fields must also be
// window-relative.
func buildHaplotype(ref []byte, vars []variant.Variant) *haplotype {
	h := &haplotype{byRefPos: make(map[int]int, len(ref))}
	refPos := 0

	emitMatch := func(upto int) {
		for ; refPos < upto; refPos++ {
			h.align = append(h.align, alignOp{op: 'M', refPos: refPos, hapPos: len(h.bases)})
			h.byRefPos[refPos] = len(h.align) - 1
			h.bases = append(h.bases, ref[refPos])
		}
	}

	for _, v := range vars {
		if v.Pos < refPos || v.Pos >= len(ref) {
			// Out of window or already consumed by an earlier overlapping
			// variant; skip rather than corrupt the alignment trace.
			continue
		}
		switch v.Kind {
		case variant.Snp:
			emitMatch(v.Pos)
			h.align = append(h.align, alignOp{op: 'M', refPos: v.Pos, hapPos: len(h.bases)})
			h.byRefPos[v.Pos] = len(h.align) - 1
			h.bases = append(h.bases, v.Alt[0])
			refPos = v.Pos + 1
		case variant.Ins:
			emitMatch(v.Pos + 1) // copy the anchor base itself as M first
			for i := 0; i < len(v.Alt); i++ {
				h.align = append(h.align, alignOp{op: 'I', hapPos: len(h.bases)})
				h.bases = append(h.bases, v.Alt[i])
			}
		case variant.Del:
			emitMatch(v.Pos)
			end := v.Pos + len(v.Ref)
			if end > len(ref) {
				end = len(ref)
			}
			for p := v.Pos; p < end; p++ {
				h.align = append(h.align, alignOp{op: 'D', refPos: p})
				h.byRefPos[p] = len(h.align) - 1
			}
			refPos = end
		}
	}
	emitMatch(len(ref))

	return h
}

// buildCigarMap precomputes, for every reference-window-relative position
// r in [0, len(ref)-readLen], the CIGAR of a readLen read anchored at r,
// provided the haplotype has enough bases remaining. Positions that fall
// inside a deletion (no haplotype byte of their own) are skipped: no read
// can originate there.
func (h *haplotype) buildCigarMap(windowLen, readLen int) {
	h.cigarMap = make(map[int]cigarEntry)
	for r := 0; r <= windowLen-readLen; r++ {
		idx, ok := h.byRefPos[r]
		if !ok || h.align[idx].op != 'M' {
			continue
		}
		entry, ok := h.walkCigar(idx, readLen)
		if !ok {
			continue
		}
		h.cigarMap[r] = entry
	}
}

// walkCigar walks the alignment trace starting at align[startIdx] (which
// must be an M token), consuming exactly readLen read bases (M+I ops), and
// returns the collapsed CIGAR plus the haplotype byte range it spans.
func (h *haplotype) walkCigar(startIdx, readLen int) (cigarEntry, bool) {
	hapStart := h.align[startIdx].hapPos
	readBases := 0
	refBases := 0
	var ops []sam.CigarOp
	var curOp byte
	var curLen int

	flush := func() {
		if curLen == 0 {
			return
		}
		ops = append(ops, sam.NewCigarOp(cigarType(curOp), curLen))
	}

	idx := startIdx
	for readBases < readLen {
		if idx >= len(h.align) {
			return cigarEntry{}, false
		}
		tok := h.align[idx]
		if tok.op != curOp {
			flush()
			curOp = tok.op
			curLen = 0
		}
		curLen++
		switch tok.op {
		case 'M':
			readBases++
			refBases++
		case 'I':
			readBases++
		case 'D':
			refBases++
		}
		idx++
	}
	flush()

	hapEnd := hapStart
	for i := startIdx; i < idx; i++ {
		if h.align[i].op == 'M' || h.align[i].op == 'I' {
			hapEnd = h.align[i].hapPos + 1
		}
	}
	hapLen := hapEnd - hapStart

	if readBases != readLen {
		log.Panicf("sequence: cigar build produced %d read bases, want %d", readBases, readLen)
	}
	return cigarEntry{cigar: sam.Cigar(ops), hapPos: hapStart, hapLen: hapLen, refSpan: refBases}, true
}

func cigarType(op byte) sam.CigarOpType {
	switch op {
	case 'M':
		return sam.CigarMatch
	case 'I':
		return sam.CigarInsertion
	case 'D':
		return sam.CigarDeletion
	default:
		log.Panicf("sequence: unknown alignment op %q", op)
		return sam.CigarMatch
	}
}
