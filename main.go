package main

import "github.com/iksnae/sahayak/cmd"

func main() {
	cmd.Execute()
}
