package main

import "github.com/aymanh23/searchv2/cmd"

func main() {
	cmd.Execute()
}
