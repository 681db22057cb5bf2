package main

import (
	"os"

	"autoreply-project/cmd/wechat-sim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
