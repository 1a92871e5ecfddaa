package main

import (
	"github.com/moxforge/shellpack/cmd/shellpack/cmd"
)

func main() {
	cmd.Execute()
}
