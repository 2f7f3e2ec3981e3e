package main

import (
	"refnet/cmd/refnet/commands"
	"refnet/internal/logger"
)

func main() {
	logger.Init()
	commands.Execute()
}
