package main

import "protein-updater/cmd"

func main() {
	cmd.Execute()
}
