package main

import (
	"github.com/dokzlo13/hueaction/internal/app"
	"github.com/dokzlo13/hueaction/internal/cli"
)

func main() {
	// Create context that cancels on shutdown signal
	cli.Execute(app.SignalContext())
}
