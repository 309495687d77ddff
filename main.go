package main

import (
	"os"

	"github.com/user/kiji/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
