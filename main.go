package main

import (
	"old_vibes/internal/chat/router"

	"github.com/gofiber/fiber/v2"
)

// 此程式只用於 swag init，實際服務在 cmd/chat_service
// swag init -g main.go --output ./docs
func main() {
	app := fiber.New()

	// handlers 為 nil 時只註冊路由，供 swag 掃描註解
	router.RegisterRoutes(app, nil, nil)
}
