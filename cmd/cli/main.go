package main

import (
	"os"

	"github.com/aws/dcv-access-console-sub000/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
