package main

import "github.com/arlobrennan/chip8x/cmd/chip8"

func main() {
	cmd.Execute()
}
