package main

import (
	"fmt"
	"path/filepath"

	"github.com/akamensky/argparse"

	"github.com/dreamware/xfrase/internal/indexset"
	"github.com/dreamware/xfrase/internal/methylome"
)

type checkArgs struct {
	methylome *string
	indexDir  *string
}

func bindCheckArgs(cmd *argparse.Command) *checkArgs {
	return &checkArgs{
		methylome: cmd.String("m", "methylome", &argparse.Options{Required: true, Help: "Path to a .m16 methylome file"}),
		indexDir:  cmd.String("x", "index-dir", &argparse.Options{Required: true, Help: "Directory of .cpg_idx files"}),
	}
}

// runCheck verifies a methylome's integrity and its compatibility with
// the currently loaded indices (SPEC_FULL.md §4 supplemented feature,
// grounded on original_source's `check` subcommand).
func runCheck(a *checkArgs) error {
	dir := filepath.Dir(*a.methylome)
	accession := methylome.AccessionFromFilename(*a.methylome)

	meta, err := methylome.PeekMeta(dir, accession)
	if err != nil {
		return err
	}

	indices, err := indexset.Scan(*a.indexDir)
	if err != nil {
		return err
	}
	idx, _, err := indices.Get(meta.Assembly)
	if err != nil {
		return err
	}

	if err := methylome.Verify(*a.methylome, idx.Metadata().IndexHash); err != nil {
		return err
	}

	fmt.Printf("ok: %s (assembly=%s n_cpgs=%d)\n", accession, meta.Assembly, meta.NCpGs)
	return nil
}
