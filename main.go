package main

import "github.com/kozaktomas/moodreel/cmd"

func main() {
	cmd.Execute()
}
