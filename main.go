package main

import "trust-plane/internal/cli"

func main() {
	cli.Execute()
}
