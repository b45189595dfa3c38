package main

import (
	"github.com/vezor/vezor-go/cmd/vezor/commands"
)

func main() {
	commands.Execute(cliVersion())
}
