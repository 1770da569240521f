package main

import (
	cmd "github.com/mosaicnetworks/relay/src/cmd/relay/command"
)

func main() {
	cmd.Execute()
}
