package main

import (
	"github.com/robotalks/handlink/pkg/cli/sh"
	"github.com/robotalks/handlink/pkg/link"
)

func init() {
	link.SetupFlags()
}

func main() {
	sh.Main()
}
