package response

import (
	"time"

	errprocess "old_vibes/pkg/err"
	"old_vibes/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Response envelope of every REST reply
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// ErrorInfo stable code + message
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Success 200 with data
func Success(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

// Created 201 with data
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

// Error translate err to its status and stable code, internal failures are logged here
func Error(c *fiber.Ctx, err error) error {
	appErr := errprocess.As(errprocess.FromValidator(err))
	if appErr.Kind == errprocess.KindInternal {
		logger.Log.Error(appErr.Message,
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(appErr.Err),
		)
	}
	return c.Status(appErr.Status).JSON(Response{
		Success:   false,
		Timestamp: now(),
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
	})
}
