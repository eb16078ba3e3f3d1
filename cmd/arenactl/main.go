package main

import "github.com/mcoot/gridarena/internal/cli"

func main() {
	cli.Execute()
}
