package main

import (
	"log"

	"shopauth/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
