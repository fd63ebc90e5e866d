package main

import "github.com/OpenTraceLab/kiparse/cmd/kpx/cmd"

func main() {
	cmd.Execute()
}
