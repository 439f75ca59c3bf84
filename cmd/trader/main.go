package main

import "github.com/rustyeddy/rulesim/internal/cli"

func main() {
	cli.Execute()
}
