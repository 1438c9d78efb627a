package main

import "github.com/papapumpkin/cdd/cmd"

func main() {
	cmd.Execute()
}
