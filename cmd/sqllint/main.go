// Command sqllint checks that inline SQL constants carry a unique
// "--sql <uuid>" audit marker.
package main

import (
	"flag"
	"fmt"
	"os"

	"sqlexpansion/internal/sqlinline"
)

func main() {
	flag.Parse()

	violations, err := sqlinline.Lint(flag.Args()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
		os.Exit(1)
	}
	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "sqllint: SQL audit marker violations")
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", v)
		}
		os.Exit(1)
	}
}
