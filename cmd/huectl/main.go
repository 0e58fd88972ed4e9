package main

import (
	"fmt"
	"os"

	_ "github.com/echocat/slf4g/native"

	"github.com/richardctrimble/ha-emulated-hue/internal/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
