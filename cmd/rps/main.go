package main

import "github.com/rps-arena/internal/cli"

func main() {
	cli.Execute()
}
