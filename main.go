package main

import "axon/cmd"

func main() {
	cmd.Execute()
}
