package main

import "github.com/RMahshie/tunecheck/internal/cli"

func main() {
	cli.Execute()
}
