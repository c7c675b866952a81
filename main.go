package main

import "github.com/KaramelBytes/topicloom/cmd"

func main() {
	cmd.Execute()
}
