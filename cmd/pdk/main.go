package main

import "github.com/OpenTraceLab/OpenTracePDK/cmd/pdk/cmd"

func main() {
	cmd.Execute()
}
