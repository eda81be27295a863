package main

import (
	"os"
	"testing"

	"github.com/dreamware/xfrase/internal/cpgindex"
	"github.com/dreamware/xfrase/internal/xerrors"
)

// TestRunIndexRejectsWrongSuffix covers spec.md §6 "CLI surface (index)":
// --index/-x must end in .cpg_idx.
func TestRunIndexRejectsWrongSuffix(t *testing.T) {
	dir := t.TempDir()
	genome := dir + "/toy.fa"
	if err := os.WriteFile(genome, []byte(toyFASTA), 0o644); err != nil {
		t.Fatalf("write genome fixture: %v", err)
	}

	out := dir + "/toy.idx"
	level := ""
	a := &indexArgs{genome: &genome, index: &out, logLevel: &level}

	err := runIndex(a)
	if xerrors.CodeOf(err) != xerrors.BadRequest {
		t.Fatalf("expected bad_request for missing %s suffix, got %v", cpgindex.FileExtension, err)
	}
}

func TestRunIndexAcceptsCorrectSuffix(t *testing.T) {
	dir := t.TempDir()
	genome := dir + "/toy.fa"
	if err := os.WriteFile(genome, []byte(toyFASTA), 0o644); err != nil {
		t.Fatalf("write genome fixture: %v", err)
	}

	out := dir + "/toy" + cpgindex.FileExtension
	level := ""
	a := &indexArgs{genome: &genome, index: &out, logLevel: &level}

	if err := runIndex(a); err != nil {
		t.Fatalf("runIndex: %v", err)
	}

	idx, err := cpgindex.Read(out)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if idx.Assembly() != "toy" {
		t.Fatalf("assembly = %q, want toy", idx.Assembly())
	}
}
