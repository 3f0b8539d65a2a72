package handlers

import (
	"atlas-service/internal/middleware"
	"atlas-service/internal/models"
	"atlas-service/internal/services"
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
)

type MasteryHandler struct {
	masteryService *services.MasteryService
	tierProvider   services.TierProvider
}

func NewMasteryHandler(masteryService *services.MasteryService, tierProvider services.TierProvider) *MasteryHandler {
	return &MasteryHandler{
		masteryService: masteryService,
		tierProvider:   tierProvider,
	}
}

func (h *MasteryHandler) RegisterRoutes(app *fiber.App) {
	protectedGroup := app.Group("/protected/atlas/mastery")

	protectedGroup.Post("/nodes/:nodeId/evaluate", h.EvaluateRetrieval)
	protectedGroup.Get("/weak-spots", h.GetWeakSpots)
	protectedGroup.Post("/engagement", h.LogEngagement)

	protectedGroup.Get("/user/:userID/weak-spots", h.GetWeakSpotsForUser)
}

func (h *MasteryHandler) EvaluateRetrieval(c fiber.Ctx) error {
	userID := middleware.CallerID(c)
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing user identity",
		})
	}

	nodeID := c.Params("nodeId")
	if nodeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Node ID is required",
		})
	}

	var req models.EvaluateRetrievalRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if len(req.Responses) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Responses must not be empty",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	verdict, err := h.masteryService.EvaluateRetrieval(ctx, userID, nodeID, req.Responses)
	if err != nil {
		return respondError(c, err)
	}

	return respondOK(c, fiber.StatusOK, verdict)
}

func (h *MasteryHandler) GetWeakSpots(c fiber.Ctx) error {
	userID := middleware.CallerID(c)
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing user identity",
		})
	}

	return h.listWeakSpots(c, userID)
}

func (h *MasteryHandler) GetWeakSpotsForUser(c fiber.Ctx) error {
	targetUserID := c.Params("userID")
	if targetUserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "User ID is required",
		})
	}

	if !middleware.CanActFor(c, targetUserID, middleware.ReadMasteryPermission) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "You can only view your own weak spots",
		})
	}

	return h.listWeakSpots(c, targetUserID)
}

func (h *MasteryHandler) listWeakSpots(c fiber.Ctx, userID string) error {
	stateFilter := c.Query("state")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 50 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Limit must be an integer between 1 and 50",
			})
		}
		limit = parsed
	} else {
		// No explicit limit: the subscription tier sizes the window.
		limit = services.HistoryWindow(h.tierProvider.GetTier(ctx, userID))
	}

	weakSpots, err := h.masteryService.GetUserWeakSpots(ctx, userID, stateFilter, limit)
	if err != nil {
		return respondError(c, err)
	}

	return respondOK(c, fiber.StatusOK, fiber.Map{
		"weak_spots": weakSpots,
		"count":      len(weakSpots),
	})
}

func (h *MasteryHandler) LogEngagement(c fiber.Ctx) error {
	userID := middleware.CallerID(c)
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing user identity",
		})
	}

	var req models.LogEngagementRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if req.NodeID == "" || req.EventType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Node ID and event type are required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.masteryService.LogEngagementEvent(ctx, userID, req.NodeID, req.EventType, req.CapsuleID); err != nil {
		return respondError(c, err)
	}

	return respondOK(c, fiber.StatusCreated, fiber.Map{
		"logged": true,
	})
}
