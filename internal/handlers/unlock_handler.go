package handlers

import (
	"atlas-service/internal/middleware"
	"atlas-service/internal/models"
	"atlas-service/internal/services"
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

type UnlockHandler struct {
	unlockService *services.UnlockService
}

func NewUnlockHandler(unlockService *services.UnlockService) *UnlockHandler {
	return &UnlockHandler{
		unlockService: unlockService,
	}
}

func (h *UnlockHandler) RegisterRoutes(app *fiber.App) {
	protectedGroup := app.Group("/protected/atlas/timeline")

	protectedGroup.Get("/unlocks", h.GetUnlockedChapters)
	protectedGroup.Get("/unlocks/:chapterKey", h.CheckChapterUnlocked)
	protectedGroup.Put("/exam-date", h.SetExamDate)

	// Per-user reads for support tooling; cross-user access needs elevated
	// permissions.
	protectedGroup.Get("/user/:userID/unlocks", h.GetUnlockedChaptersForUser)
}

func (h *UnlockHandler) GetUnlockedChapters(c fiber.Ctx) error {
	userID := middleware.CallerID(c)
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing user identity",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := h.unlockService.GetUnlockedChapters(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}

	return respondOK(c, fiber.StatusOK, status)
}

func (h *UnlockHandler) GetUnlockedChaptersForUser(c fiber.Ctx) error {
	targetUserID := c.Params("userID")
	if targetUserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "User ID is required",
		})
	}

	if !middleware.CanActFor(c, targetUserID, middleware.ReadTimelinePermission) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "You can only view your own unlock status",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := h.unlockService.GetUnlockedChapters(ctx, targetUserID)
	if err != nil {
		return respondError(c, err)
	}

	return respondOK(c, fiber.StatusOK, status)
}

func (h *UnlockHandler) CheckChapterUnlocked(c fiber.Ctx) error {
	userID := middleware.CallerID(c)
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing user identity",
		})
	}

	chapterKey := c.Params("chapterKey")
	if chapterKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Chapter key is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	unlocked, err := h.unlockService.IsChapterUnlocked(ctx, userID, chapterKey)
	if err != nil {
		return respondError(c, err)
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{
		"chapter_key": chapterKey,
		"unlocked":    unlocked,
	})
}

func (h *UnlockHandler) SetExamDate(c fiber.Ctx) error {
	userID := middleware.CallerID(c)
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing user identity",
		})
	}

	var req models.SetExamDateRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := h.unlockService.SetExamDate(ctx, userID, req.ExamDate, req.ExamSession)
	if err != nil {
		return respondError(c, err)
	}

	return respondOK(c, fiber.StatusOK, status)
}
