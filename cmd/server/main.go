package main

import "github.com/jw6ventures/lifecard/cmd/server/cmd"

func main() {
	cmd.Execute()
}
