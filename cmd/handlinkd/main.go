package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/robotalks/handlink/pkg/env"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()

	env.NewConfig().MustNewEnv().RunOrFail()
}
