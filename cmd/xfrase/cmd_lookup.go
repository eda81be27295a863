package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/akamensky/argparse"

	"github.com/dreamware/xfrase/internal/client"
	"github.com/dreamware/xfrase/internal/cpgindex"
	"github.com/dreamware/xfrase/internal/wire"
	"github.com/dreamware/xfrase/internal/xerrors"
	"github.com/dreamware/xfrase/internal/xlog"
)

type lookupArgs struct {
	hostname  *string
	port      *int
	accession *string
	index     *string
	intervals *string
	output    *string
	verbose   *bool
}

func bindLookupArgs(cmd *argparse.Command) *lookupArgs {
	return &lookupArgs{
		hostname:  cmd.String("H", "hostname", &argparse.Options{Required: true, Help: "Server hostname"}),
		port:      cmd.Int("p", "port", &argparse.Options{Help: "Server port (default 5000)"}),
		accession: cmd.String("a", "accession", &argparse.Options{Required: true, Help: "Methylome accession"}),
		index:     cmd.String("x", "index", &argparse.Options{Required: true, Help: "Path to a .cpg_idx file for the accession's assembly"}),
		intervals: cmd.String("i", "intervals", &argparse.Options{Required: true, Help: "Comma-separated chrom:start-stop intervals"}),
		output:    cmd.String("o", "output", &argparse.Options{Required: true, Help: "Output path for tab-separated results"}),
		verbose:   cmd.Flag("v", "verbose", &argparse.Options{Help: "Enable debug logging"}),
	}
}

// parseIntervals parses a comma-separated "chrom:start-stop" list into
// genomic intervals, resolving each chromosome name against idx (spec.md
// §6 "CLI surface (client)" --intervals/-i, grounded on original_source's
// genomic_interval::load BED-line parser, adapted from a file to an
// inline list since CLI argument parsing itself is an external
// collaborator per spec.md §1 Non-goals).
func parseIntervals(s string, idx *cpgindex.Index) ([]cpgindex.GenomicInterval, error) {
	parts := strings.Split(s, ",")
	out := make([]cpgindex.GenomicInterval, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chromAndRange := strings.SplitN(p, ":", 2)
		if len(chromAndRange) != 2 {
			return nil, xerrors.New("parseIntervals", xerrors.BadRequest,
				fmt.Errorf("malformed interval %q, want chrom:start-stop", p))
		}
		chrom, rng := chromAndRange[0], chromAndRange[1]
		chID, ok := idx.ChromID(chrom)
		if !ok {
			return nil, xerrors.New("parseIntervals", xerrors.UnknownChromosome,
				fmt.Errorf("chromosome %q not in index", chrom))
		}
		startStop := strings.SplitN(rng, "-", 2)
		if len(startStop) != 2 {
			return nil, xerrors.New("parseIntervals", xerrors.BadRequest,
				fmt.Errorf("malformed range %q, want start-stop", rng))
		}
		start, err := strconv.ParseUint(startStop[0], 10, 32)
		if err != nil {
			return nil, xerrors.New("parseIntervals", xerrors.BadRequest,
				fmt.Errorf("malformed start in %q: %w", rng, err))
		}
		stop, err := strconv.ParseUint(startStop[1], 10, 32)
		if err != nil {
			return nil, xerrors.New("parseIntervals", xerrors.BadRequest,
				fmt.Errorf("malformed stop in %q: %w", rng, err))
		}
		out = append(out, cpgindex.GenomicInterval{
			ChromID: int32(chID),
			Start:   uint32(start),
			Stop:    uint32(stop),
		})
	}
	return out, nil
}

// writeIntervalResults writes one tab-separated "chrom\tstart\tstop\t
// n_meth\tn_unmeth" line per interval, grounded on original_source's
// utilities.hpp write_intervals (the weighted BEDGRAPH writer is out of
// scope per spec.md §1 Non-goals).
func writeIntervalResults(path string, idx *cpgindex.Index, gis []cpgindex.GenomicInterval, counts []wire.Count) error {
	f, err := os.Create(path)
	if err != nil {
		return xerrors.New("writeIntervalResults", xerrors.IOError, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	chromOrder := idx.Metadata().ChromOrder
	for i, gi := range gis {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			chromOrder[gi.ChromID], gi.Start, gi.Stop, counts[i].NMeth, counts[i].NUnmeth)
	}
	return w.Flush()
}

// runLookup resolves --intervals against --index into wire offsets,
// queries the server, and writes the per-interval counts to --output
// (spec.md §7 "User-visible" client behavior).
func runLookup(a *lookupArgs) error {
	level := xlog.LevelWarning
	if *a.verbose {
		level = xlog.LevelDebug
	}
	if err := xlog.Init(level, ""); err != nil {
		return err
	}
	defer xlog.Shutdown()

	idx, err := cpgindex.Read(*a.index)
	if err != nil {
		return err
	}

	gis, err := parseIntervals(*a.intervals, idx)
	if err != nil {
		return err
	}
	offsetPairs, err := idx.GetOffsets(gis)
	if err != nil {
		return err
	}
	offsets := make([]wire.Offset, len(offsetPairs))
	for i, op := range offsetPairs {
		offsets[i] = wire.Offset{Begin: op.Begin, End: op.End}
	}

	port := *a.port
	if port == 0 {
		port = 5000
	}
	addr := fmt.Sprintf("%s:%d", *a.hostname, port)

	start := time.Now()
	resp, counts, err := client.Lookup(addr, *a.accession, idx.NCpGsTotal(), offsets, client.DefaultTimeout)
	elapsed := time.Since(start)

	if err != nil {
		fmt.Printf("status=%s elapsed=%s\n", xerrors.CodeOf(err), elapsed)
		return err
	}
	fmt.Printf("status=%s elapsed=%s response_size=%d\n", resp.Status, elapsed, resp.ResponseSize)
	xlog.Debug("lookup complete", xlog.Fields{"accession": *a.accession, "elapsed": elapsed.String()})

	return writeIntervalResults(*a.output, idx, gis, counts)
}
