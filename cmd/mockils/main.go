package main

import (
	"log"

	"mockils/cmd/mockils/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		log.Fatal(err)
	}
}
