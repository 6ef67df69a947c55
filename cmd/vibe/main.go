package main

import "github.com/tessro/vibe/internal/cli"

func main() {
	cli.Execute()
}
