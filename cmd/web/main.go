package main

import "flota_console/internal/app"

func main() {
	app.Run()
}
