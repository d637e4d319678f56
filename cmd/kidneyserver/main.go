// Command kidneyserver runs the kidney health HTTP service.
package main

import (
	"log"

	"github.com/patric-chuzhbe/kidneyhealth/internal/app"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		log.Fatalf("failed to initialize app: %v", err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		theApp.Close()
		log.Fatalf("app run failed: %v", err)
	}
}
