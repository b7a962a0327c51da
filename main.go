package main

import (
	"github.com/octoprompt/octocoder/cmd"
	"github.com/octoprompt/octocoder/internal/logger"
)

func main() {
	defer logger.HandlePanic()
	cmd.Execute()
}
