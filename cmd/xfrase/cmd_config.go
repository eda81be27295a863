package main

import (
	"fmt"

	"github.com/akamensky/argparse"

	"github.com/dreamware/xfrase/internal/config"
)

type configArgs struct {
	out *string
}

func bindConfigArgs(cmd *argparse.Command) *configArgs {
	return &configArgs{
		out: cmd.String("o", "out", &argparse.Options{Required: true, Help: "Path to write the default config JSON"}),
	}
}

// runConfig writes the default Config to the --out path (SPEC_FULL.md
// §1.3). The server subcommand has no --make-config flag.
func runConfig(a *configArgs) error {
	if err := config.Write(*a.out, config.Default()); err != nil {
		return err
	}
	fmt.Printf("wrote default config to %s\n", *a.out)
	return nil
}
