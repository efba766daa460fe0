package main

import "github.com/picpress/picpress/cmd"

func main() {
	cmd.Execute()
}
