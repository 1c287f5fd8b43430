package main

import "github.com/KaramelBytes/insight-layer/cmd"

func main() {
	cmd.Execute()
}
