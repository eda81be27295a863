package cpgindex

import (
	"bufio"
	"io"
	"path/filepath"
	"strings"
)

// Construct builds a CpG index from a multi-FASTA reference genome
// (spec.md §4.2 "Construction from FASTA"). assemblyTag is the canonical
// assembly name derived from the genome filename stem (e.g.
// "hg38.fa" → "hg38"); callers typically pass AssemblyFromFilename(path).
func Construct(r io.Reader, assemblyTag string) (*Index, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<24)

	var (
		chromOrder    []string
		chromSize     []uint32
		nCpGsPerChrom []uint32
		positions     [][]uint32

		curName string
		curLen  uint32
		curPos  []uint32
		// pendingC remembers whether the previous base was a C/c that
		// might pair with the next base to form a CpG; it is reset at
		// every chromosome boundary so a CpG can never span chromosomes.
		pendingC bool
	)

	flush := func() {
		if curName == "" {
			return
		}
		chromOrder = append(chromOrder, curName)
		chromSize = append(chromSize, curLen)
		nCpGsPerChrom = append(nCpGsPerChrom, uint32(len(curPos)))
		positions = append(positions, curPos)
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line[0] == '>' {
			flush()
			curName = strings.Fields(line[1:])[0]
			curLen = 0
			curPos = nil
			pendingC = false
			continue
		}

		for i := 0; i < len(line); i++ {
			b := line[i]
			isC := b == 'C' || b == 'c'
			isG := b == 'G' || b == 'g'

			if pendingC && isG {
				// The C recorded at position curLen-1 is followed by a
				// G at curLen: a CpG at the C's position.
				curPos = append(curPos, curLen-1)
			}
			pendingC = isC
			curLen++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	meta := Metadata{
		ChromOrder:    chromOrder,
		ChromSize:     chromSize,
		NCpGsPerChrom: nCpGsPerChrom,
		Assembly:      assemblyTag,
	}
	var total uint64
	for _, n := range nCpGsPerChrom {
		total += uint64(n)
	}
	meta.NCpGsTotal = total

	return newIndex(meta, positions), nil
}

// AssemblyFromFilename derives the canonical assembly tag from a genome
// FASTA path by stripping directory and extension, e.g.
// "/data/genomes/hg38.fa.gz" → "hg38" — matching the metadata field
// spec.md §4.2 calls "assembly (canonical assembly tag derived from the
// genome filename stem)".
func AssemblyFromFilename(path string) string {
	base := filepath.Base(path)
	for {
		ext := filepath.Ext(base)
		if ext == "" {
			return base
		}
		switch strings.ToLower(ext) {
		case ".fa", ".fasta", ".fna", ".gz":
			base = strings.TrimSuffix(base, ext)
		default:
			return base
		}
	}
}
