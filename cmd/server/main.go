package main

import (
	"colorgame_backend/internal/app"
	"log"
)

func main() {
	if err := app.NewApp().Run(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
