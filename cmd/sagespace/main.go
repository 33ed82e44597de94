package main

import "github.com/mcoot/sagespace/internal/cli"

func main() {
	cli.Execute()
}
