package main

import "github.com/planwave/planwave/cmd"

func main() {
	cmd.Execute()
}
