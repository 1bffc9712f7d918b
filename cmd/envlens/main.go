package main

import (
	"envlens/internal/cli"
)

func main() {
	cli.Execute()
}
