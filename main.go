package main

import (
	"watchwire/cmd"
	"watchwire/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
