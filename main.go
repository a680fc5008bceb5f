package main

import "github.com/Nova-Hunting/nova-tracer/cmd"

func main() {
	cmd.Execute()
}
