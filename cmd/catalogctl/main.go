// Package main provides catalogctl, the command-line tool for inspecting
// and maintaining the category tree.
package main

import "github.com/tradepost/catalog-server/cmd/catalogctl/commands"

func main() {
	commands.Execute()
}
