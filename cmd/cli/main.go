// Package main is the entry point for the dataprism CLI binary.
package main

import (
	"os"

	cli "github.com/Imd11/DataPrism/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
