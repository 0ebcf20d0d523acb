package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/graphkv/graphd/internal/cmd"
	"github.com/graphkv/graphd/internal/log"
)

func main() {
	if _, err := maxprocs.Set(maxprocs.Logger(log.Global().Infof)); err != nil {
		log.Global().Warnf("cmd: could not set GOMAXPROCS: %v", err)
	}

	if err := cmd.Command(nil).Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
