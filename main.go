package main

import "github.com/openshelf/openshelf/cmd"

func main() {
	cmd.Execute()
}
