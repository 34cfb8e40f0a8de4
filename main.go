package main

import (
	"os"

	"github.com/selimozcann/mainurlhunter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
