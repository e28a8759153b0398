package main

import (
	"github.com/shelfwatch/shelfwatch/cmd"
)

func main() {
	cmd.Execute()
}
