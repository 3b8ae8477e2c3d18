package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dtstore/storefront/internal/models"
	"github.com/dtstore/storefront/internal/money"
	"github.com/dtstore/storefront/internal/mykafka"
	"github.com/dtstore/storefront/internal/service/search"
	"github.com/dtstore/storefront/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	Index    string
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProductBySlug(c echo.Context) error {
	slug := c.Param("slug")

	var product models.Product
	if err := h.DB.Where("slug = ?", slug).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Product{}).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.Product
	if err := h.DB.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ProductHandler) GetFeatured(c echo.Context) error {
	var items []models.Product
	err := h.DB.
		Where("is_new = ? OR is_best_seller = ?", true, true).
		Order("created_at DESC").
		Limit(6).
		Find(&items).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

type productRequest struct {
	Slug          string          `json:"slug"`
	NameEn        string          `json:"name_en"`
	NamePt        string          `json:"name_pt"`
	DescriptionEn string          `json:"description_en"`
	DescriptionPt string          `json:"description_pt"`
	Brand         string          `json:"brand"`
	CategoryID    uint            `json:"category_id"`
	PriceExclVat  decimal.Decimal `json:"price_excl_vat"`
	ImageURL      string          `json:"image_url"`
	InStock       bool            `json:"in_stock"`
	StockQuantity uint            `json:"stock_quantity"`
	IsNew         bool            `json:"is_new"`
	IsBestSeller  bool            `json:"is_best_seller"`
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Slug == "" || req.NameEn == "" || req.NamePt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "slug and bilingual names required")
	}

	prod := models.Product{
		Slug:          req.Slug,
		NameEn:        req.NameEn,
		NamePt:        req.NamePt,
		DescriptionEn: req.DescriptionEn,
		DescriptionPt: req.DescriptionPt,
		Brand:         req.Brand,
		CategoryID:    req.CategoryID,
		PriceExclVat:  money.Round2(req.PriceExclVat),
		PriceInclVat:  money.Round2(req.PriceExclVat.Add(money.VAT(req.PriceExclVat))),
		ImageURL:      req.ImageURL,
		InStock:       req.InStock,
		StockQuantity: req.StockQuantity,
		IsNew:         req.IsNew,
		IsBestSeller:  req.IsBestSeller,
	}

	if err := h.DB.Create(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.indexProduct(c, &prod)
	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"slug":      prod.Slug,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	prod.Slug = req.Slug
	prod.NameEn = req.NameEn
	prod.NamePt = req.NamePt
	prod.DescriptionEn = req.DescriptionEn
	prod.DescriptionPt = req.DescriptionPt
	prod.Brand = req.Brand
	prod.CategoryID = req.CategoryID
	prod.PriceExclVat = money.Round2(req.PriceExclVat)
	prod.PriceInclVat = money.Round2(req.PriceExclVat.Add(money.VAT(req.PriceExclVat)))
	prod.ImageURL = req.ImageURL
	prod.InStock = req.InStock
	prod.StockQuantity = req.StockQuantity
	prod.IsNew = req.IsNew
	prod.IsBestSeller = req.IsBestSeller

	if err := h.DB.Save(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.indexProduct(c, &prod)
	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
		"slug":      prod.Slug,
	})

	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.DB.Delete(&models.Product{}, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if h.ES != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := search.DeleteProduct(ctx, h.ES, h.Index, uint(id)); err != nil {
			c.Logger().Errorf("ES delete error: %v", err)
		}
	}
	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})

	return c.NoContent(http.StatusNoContent)
}

func (h *ProductHandler) indexProduct(c echo.Context, prod *models.Product) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexProduct(ctx, h.ES, h.Index, prod); err != nil {
		c.Logger().Errorf("ES index error: %v", err)
	}
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
