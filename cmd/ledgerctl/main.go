package main

import (
	"fmt"
	"os"
)

func main() {
	c := newCLI(nil)
	err := newRootCmd(c).Execute()
	c.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)
		os.Exit(1)
	}
}
