package main

import "github.com/fakeyudi/retrace/cmd"

func main() {
	cmd.Execute()
}
