package main

import "github.com/nextlevelbuilder/mcpgate/cmd"

func main() {
	cmd.Execute()
}
