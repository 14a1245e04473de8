package main

import "MetalSentinel/internal/cli"

func main() {
	cli.Execute()
}
