package main

import (
	"fmt"
	"os"

	"github.com/draftflow/draftflow/internal/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "draftflow:", err)
	}
	os.Exit(cmd.ExitCode(err))
}
