package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/akamensky/argparse"

	"github.com/dreamware/xfrase/internal/cpgindex"
	"github.com/dreamware/xfrase/internal/xerrors"
	"github.com/dreamware/xfrase/internal/xlog"
)

type indexArgs struct {
	genome   *string
	index    *string
	logLevel *string
}

func bindIndexArgs(cmd *argparse.Command) *indexArgs {
	return &indexArgs{
		genome:   cmd.String("g", "genome", &argparse.Options{Required: true, Help: "Reference genome FASTA path"}),
		index:    cmd.String("x", "index", &argparse.Options{Required: true, Help: "Output .cpg_idx path"}),
		logLevel: cmd.String("v", "log-level", &argparse.Options{Help: "debug|info|warning|error|critical (default info)"}),
	}
}

// runIndex builds a CpG index from a reference FASTA (spec.md §6 "CLI
// surface (index)"). The assembly tag is derived from the genome
// filename stem (spec.md §4.2 "Persistence").
func runIndex(a *indexArgs) error {
	level := xlog.LevelInfo
	if *a.logLevel != "" {
		level = xlog.Level(*a.logLevel)
	}
	if err := xlog.Init(level, ""); err != nil {
		return err
	}
	defer xlog.Shutdown()

	if !strings.HasSuffix(*a.index, cpgindex.FileExtension) {
		return xerrors.New("runIndex", xerrors.BadRequest,
			fmt.Errorf("--index %q must end in %s", *a.index, cpgindex.FileExtension))
	}

	f, err := os.Open(*a.genome)
	if err != nil {
		return err
	}
	defer f.Close()

	assembly := cpgindex.AssemblyFromFilename(*a.genome)
	idx, err := cpgindex.Construct(f, assembly)
	if err != nil {
		return err
	}
	if err := idx.Write(*a.index); err != nil {
		return err
	}

	xlog.Info("wrote index", xlog.Fields{"path": *a.index, "assembly": assembly, "n_cpgs_total": idx.NCpGsTotal()})
	fmt.Printf("wrote %s: assembly=%s n_cpgs_total=%d\n", *a.index, assembly, idx.NCpGsTotal())
	return nil
}
