package main

import (
	"stay/config"
	"stay/di"
	"stay/shared/logger"
)

// @title Stay Booking API
// @version 1.0
// @description REST API for hotel room bookings.
// @BasePath /
func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	http := di.InitializeService()
	http.Serve()
}
