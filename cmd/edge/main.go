package main

import "github.com/vikramraju/attendedge/cmd/edge/cmd"

func main() {
	cmd.Execute()
}
