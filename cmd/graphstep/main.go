package main

import "github.com/DrSkyle/graphstep/cmd/graphstep/commands"

func main() {
	commands.Execute()
}
