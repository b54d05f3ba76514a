package main

import (
	"ragsum/cmd/cmd"
	"ragsum/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	cmd.Execute()
}
