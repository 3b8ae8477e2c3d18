package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dtstore/storefront/internal/models"
)

type NewsletterHandler struct {
	DB *gorm.DB
}

func (h *NewsletterHandler) Subscribe(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email")
	}

	sub := models.NewsletterSubscription{Email: email}
	if err := h.DB.Create(&sub).Error; err != nil {
		// unique violation: already subscribed
		return c.JSON(http.StatusOK, echo.Map{"success": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
