package main

import "github.com/ayusman/fitlock/cmd/fitlock/cmd"

func main() {
	cmd.Execute()
}
