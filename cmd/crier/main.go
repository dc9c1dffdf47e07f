package main

import (
	"os"

	"horse.fit/crier/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
