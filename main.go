package main

import "github.com/NadavTAshkenazi/smash/cmd"

func main() {
	cmd.Execute()
}
