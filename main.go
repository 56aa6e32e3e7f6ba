package main

import "github.com/asklens/asklens/cmd"

func main() {
	cmd.Execute()
}
