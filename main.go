package main

import "github.com/micrictor/flowbase/cmd"

func main() {
	cmd.Execute()
}
