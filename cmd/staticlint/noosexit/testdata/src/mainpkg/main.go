package main

import "os"

func helper() {
	os.Exit(2)
}

func main() {
	defer func() {
		os.Exit(1) // want "avoid using os.Exit in main.main"
	}()

	helper()

	os.Exit(0) // want "avoid using os.Exit in main.main"
}
