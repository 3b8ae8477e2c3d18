package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dtstore/storefront/internal/models"
	"github.com/dtstore/storefront/internal/orders"
)

type OrderHandler struct {
	Orders *orders.Repo
}

func (h *OrderHandler) ListMyOrders(c echo.Context) error {
	userID, err := PrincipalID(c)
	if err != nil {
		return err
	}

	list, err := h.Orders.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, list)
}

type orderResponse struct {
	models.Order
	Items []models.OrderItem `json:"items"`
}

func (h *OrderHandler) GetByNumber(c echo.Context) error {
	userID, err := PrincipalID(c)
	if err != nil {
		return err
	}

	number := c.Param("number")
	order, items, err := h.Orders.GetByNumber(c.Request().Context(), number)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// a foreign order number must be indistinguishable from a missing one
	if order.UserID != userID {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}

	return c.JSON(http.StatusOK, orderResponse{Order: *order, Items: items})
}
