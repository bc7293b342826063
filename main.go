package main

import (
	"fmt"
	"os"

	"sfneuman.com/goril/benchmarks"
)

// main is the entry point to the benchmark experiments
func main() {
	rootCommand := benchmarks.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
