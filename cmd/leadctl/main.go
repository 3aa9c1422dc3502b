package main

import (
	"os"

	"leadhub/internal/app/leadctl"
)

func main() {
	if err := leadctl.Execute(); err != nil {
		os.Exit(1)
	}
}
