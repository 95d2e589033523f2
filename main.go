package main

import "github.com/sw33tLie/baseline-lite/cmd"

func main() {
	cmd.Execute()
}
