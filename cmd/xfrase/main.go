// Command xfrase serves and queries per-CpG methylation levels over
// genomic intervals.
//
// Subcommands:
//
//	server  run the query server
//	lookup  query a running server for counts over genomic intervals
//	index   build a .cpg_idx file from a reference FASTA
//	check   verify a methylome's integrity and index compatibility
//	config  write a default configuration file
//
// The server loads a config file only when --config-file is given; the
// XFRASE_CONFIG_DIR environment variable is not read.
package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
)

func main() {
	parser := argparse.NewParser("xfrase", "Query per-CpG methylation levels over genomic intervals")

	serverCmd := parser.NewCommand("server", "run the query server")
	lookupCmd := parser.NewCommand("lookup", "query a running server for counts over genomic intervals")
	indexCmd := parser.NewCommand("index", "build a .cpg_idx file from a reference FASTA")
	checkCmd := parser.NewCommand("check", "verify a methylome's integrity and index compatibility")
	configCmd := parser.NewCommand("config", "write a default configuration file")

	serverArgs := bindServerArgs(serverCmd)
	lookupArgs := bindLookupArgs(lookupCmd)
	indexArgs := bindIndexArgs(indexCmd)
	checkArgs := bindCheckArgs(checkCmd)
	configArgs := bindConfigArgs(configCmd)

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	var err error
	switch {
	case serverCmd.Happened():
		err = runServer(serverArgs)
	case lookupCmd.Happened():
		err = runLookup(lookupArgs)
	case indexCmd.Happened():
		err = runIndex(indexArgs)
	case checkCmd.Happened():
		err = runCheck(checkArgs)
	case configCmd.Happened():
		err = runConfig(configArgs)
	default:
		fmt.Print(parser.Usage("a subcommand is required"))
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "xfrase:", err)
		os.Exit(1)
	}
}
