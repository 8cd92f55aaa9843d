package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/arkcheck/arkcheck/cmd"
	_ "github.com/arkcheck/arkcheck/importer/ort"
	_ "github.com/arkcheck/arkcheck/importer/tfl"
)

func main() {
	cobra.CheckErr(cmd.NewCLI().ExecuteContext(context.Background()))
}
