package handlers

import (
	"atlas-service/internal/apperror"
	"log"

	"github.com/gofiber/fiber/v3"
)

// respondError maps an error kind to the HTTP status class. No string
// matching on error text: the kind travels with the error.
func respondError(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		status = fiber.StatusBadRequest
		message = err.Error()
	case apperror.KindAuthorization:
		status = fiber.StatusForbidden
		message = err.Error()
	case apperror.KindNotFound:
		status = fiber.StatusNotFound
		message = err.Error()
	case apperror.KindBusinessRule:
		status = fiber.StatusBadRequest
		message = err.Error()
	case apperror.KindStorage:
		log.Printf("Storage failure: %v", err)
		status = fiber.StatusInternalServerError
		message = "Storage unavailable"
	default:
		log.Printf("Unexpected failure: %v", err)
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func respondOK(c fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}
