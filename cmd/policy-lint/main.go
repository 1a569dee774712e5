// Command policy-lint checks a console policy file for parse errors.
//
// Usage:
//
//	go run ./cmd/policy-lint [flags] <console.policy>
//
// Flags:
//
//	-v  Print every parsed rule with its effect
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/aws/dcv-access-console-sub000/internal/policy"
)

func main() {
	verbose := flag.Bool("v", false, "print every parsed rule with its effect")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: policy-lint [flags] <console.policy>\n")
		os.Exit(2)
	}
	path := flag.Arg(0)

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	set, err := policy.Parse(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(1)
	}

	if *verbose {
		for _, st := range set.Statements {
			fmt.Printf("%s\t%s\n", st.ID, st.Effect)
		}
	}
	fmt.Printf("%s: ok (%d rules)\n", path, len(set.Statements))
}
