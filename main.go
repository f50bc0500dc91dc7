package main

import (
	"log"

	"craft-platform/cmd"

	_ "craft-platform/migrations"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
