package refindex

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const fastaScanBufferInit = 1024 * 1024

// ParseFasta reads FASTA-formatted data from r into an InMemory reference,
// adapted from the teacher's eager, unindexed FASTA reader. Sequence names
// are the text immediately after '>' up to the first space, matching the
// teacher's convention. Bases are uppercased and any ambiguous IUPAC code
// other than the four canonical bases is folded to 'N', the reference-ingest
// normalization every downstream package (nregion in particular) assumes
// has already happened.
func ParseFasta(r io.Reader) (*InMemory, error) {
	ref := &InMemory{seqs: make(map[string][]byte)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), fastaScanBufferInit)

	var name string
	var seq []byte
	flush := func() {
		if name == "" {
			return
		}
		ref.seqs[name] = seq
		ref.order = append(ref.order, name)
	}

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			name = strings.Fields(line[1:])[0]
			seq = nil
			continue
		}
		if name == "" {
			return nil, errors.New("refindex: FASTA data before any '>' header")
		}
		seq = append(seq, normalizeBases(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "refindex: reading FASTA data")
	}
	flush()

	if len(ref.order) == 0 {
		return nil, errors.New("refindex: no sequences found in FASTA data")
	}
	return ref, nil
}

func normalizeBases(line string) []byte {
	out := make([]byte, len(line))
	for i := 0; i < len(line); i++ {
		switch b := upper(line[i]); b {
		case 'A', 'C', 'G', 'T':
			out[i] = b
		default:
			out[i] = 'N'
		}
	}
	return out
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
