package main

import "mmw/cmd"

func main() {
	cmd.Execute()
}
