package main

import "github.com/localdeck/localdeck/cmd"

func main() {
	cmd.Execute()
}
