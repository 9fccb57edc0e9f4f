package main

import "github.com/bnema/touchicons/internal/cli/cmd"

// Build-time variables (set via ldflags).
var version = "dev"

func main() {
	cmd.Execute(version)
}
