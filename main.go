package main

import "github.com/lumadocs/driveline/cmd"

func main() {
	cmd.Execute()
}
