package main

import (
	"github.com/Paintersrp/pman/internal/cli"
	"github.com/Paintersrp/pman/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
