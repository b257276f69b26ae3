package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	catalogdomain "github.com/emberhollow/storefront/internal/catalog/domain"
)

func (s *Server) ListProducts(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  int32  `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	products, err := s.catalogSvc.ListProducts(c.Request.Context(), catalogdomain.ListProductsRequest{
		ActiveOnly: true,
		PageToken:  strings.TrimSpace(query.PageToken),
		PageSize:   query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": products})
}

func (s *Server) GetProduct(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	product, variants, err := s.catalogSvc.GetProductBySlug(c.Request.Context(), slug)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !product.Active {
		AbortWithError(c, catalogdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"product":  product,
		"variants": variants,
	}})
}

func (s *Server) ListScents(c *gin.Context) {
	scents, err := s.catalogSvc.ListScents(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": scents})
}

func (s *Server) ListWickTypes(c *gin.Context) {
	wickTypes, err := s.catalogSvc.ListWickTypes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": wickTypes})
}

// ---- admin ----

func (s *Server) AdminListProducts(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  int32  `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	products, err := s.catalogSvc.ListProducts(c.Request.Context(), catalogdomain.ListProductsRequest{
		ActiveOnly: false,
		PageToken:  strings.TrimSpace(query.PageToken),
		PageSize:   query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": products})
}

type createProductRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	PriceCents      int64  `json:"price_cents"`
	Stock           int64  `json:"stock"`
	StripePriceID   string `json:"stripe_price_id"`
	SquareCatalogID string `json:"square_catalog_id"`
}

func (s *Server) AdminCreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	product, err := s.catalogSvc.CreateProduct(c.Request.Context(), catalogdomain.CreateProductRequest{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		Stock:           req.Stock,
		StripePriceID:   strings.TrimSpace(req.StripePriceID),
		SquareCatalogID: strings.TrimSpace(req.SquareCatalogID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

type updateProductRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	PriceCents      *int64  `json:"price_cents"`
	Stock           *int64  `json:"stock"`
	StripePriceID   *string `json:"stripe_price_id"`
	SquareCatalogID *string `json:"square_catalog_id"`
	Active          *bool   `json:"active"`
}

func (s *Server) AdminUpdateProduct(c *gin.Context) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	product, err := s.catalogSvc.UpdateProduct(c.Request.Context(), catalogdomain.UpdateProductRequest{
		ID:              strings.TrimSpace(c.Param("id")),
		Name:            req.Name,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		Stock:           req.Stock,
		StripePriceID:   req.StripePriceID,
		SquareCatalogID: req.SquareCatalogID,
		Active:          req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (s *Server) AdminArchiveProduct(c *gin.Context) {
	if err := s.catalogSvc.ArchiveProduct(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createVariantRequest struct {
	WickType   string `json:"wick_type"`
	Scent      string `json:"scent"`
	Stock      int64  `json:"stock"`
	PriceCents *int64 `json:"price_cents"`
}

func (s *Server) AdminCreateVariant(c *gin.Context) {
	var req createVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	variant, err := s.catalogSvc.CreateVariant(c.Request.Context(), catalogdomain.CreateVariantRequest{
		ProductID:  strings.TrimSpace(c.Param("id")),
		WickType:   strings.TrimSpace(req.WickType),
		Scent:      strings.TrimSpace(req.Scent),
		Stock:      req.Stock,
		PriceCents: req.PriceCents,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": variant})
}

func (s *Server) AdminDeleteVariant(c *gin.Context) {
	if err := s.catalogSvc.DeleteVariant(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createScentRequest struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

func (s *Server) AdminCreateScent(c *gin.Context) {
	var req createScentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	scent, err := s.catalogSvc.CreateScent(c.Request.Context(), strings.TrimSpace(req.Name), req.Notes)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": scent})
}

func (s *Server) AdminDeleteScent(c *gin.Context) {
	if err := s.catalogSvc.DeleteScent(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createWickTypeRequest struct {
	Name string `json:"name"`
}

func (s *Server) AdminCreateWickType(c *gin.Context) {
	var req createWickTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	wickType, err := s.catalogSvc.CreateWickType(c.Request.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": wickType})
}

func (s *Server) AdminDeleteWickType(c *gin.Context) {
	if err := s.catalogSvc.DeleteWickType(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) AdminListContainers(c *gin.Context) {
	containers, err := s.catalogSvc.ListContainers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": containers})
}

type createContainerRequest struct {
	Name       string  `json:"name"`
	CapacityOz float64 `json:"capacity_oz"`
}

func (s *Server) AdminCreateContainer(c *gin.Context) {
	var req createContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	container, err := s.catalogSvc.CreateContainer(c.Request.Context(), strings.TrimSpace(req.Name), req.CapacityOz)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": container})
}

func (s *Server) AdminDeleteContainer(c *gin.Context) {
	if err := s.catalogSvc.DeleteContainer(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseLimit(c *gin.Context, def int) int {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}
