package main

import system "os"

type exiter struct{}

func (exiter) Exit(int) {}

func main() {
	os := exiter{}
	os.Exit(3)

	system.Exit(4) // want "avoid using os.Exit in main.main"
}
