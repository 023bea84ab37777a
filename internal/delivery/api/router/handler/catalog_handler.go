package handler

import (
	"net/http"
	"strings"

	"storefront/internal/delivery/api/response"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

// CatalogHandlerParams holds dependencies for CatalogHandler, injected by Fx.
type CatalogHandlerParams struct {
	fx.In

	CatalogUC usecase.CatalogUsecase
}

// CatalogHandler serves products, categories and reviews.
type CatalogHandler struct {
	catalogUC usecase.CatalogUsecase
}

// NewCatalogHandler is the constructor for CatalogHandler.
func NewCatalogHandler(params CatalogHandlerParams) *CatalogHandler {
	return &CatalogHandler{catalogUC: params.CatalogUC}
}

type ProductImageRequest struct {
	URL       string `json:"url" validate:"required,url"`
	AltText   string `json:"alt_text" validate:"max=200"`
	IsMain    bool   `json:"is_main"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
}

type ProductAttributeRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Value string `json:"value" validate:"required,max=255"`
}

// ProductRequest is the body of product create and update.
type ProductRequest struct {
	CategoryID    *uuid.UUID                `json:"category_id"`
	Name          string                    `json:"name" validate:"required,max=200"`
	Slug          string                    `json:"slug" validate:"omitempty,max=220"`
	SKU           string                    `json:"sku" validate:"omitempty,max=64"`
	Description   string                    `json:"description"`
	RegularPrice  decimal.Decimal           `json:"regular_price"`
	SalePrice     *decimal.Decimal          `json:"sale_price"`
	StockStatus   string                    `json:"stock_status" validate:"omitempty,oneof=IN_STOCK OUT_OF_STOCK ON_BACKORDER"`
	StockQuantity *int                      `json:"stock_quantity" validate:"omitempty,gte=0"`
	ManageStock   bool                      `json:"manage_stock"`
	Status        string                    `json:"status" validate:"omitempty,oneof=DRAFT ACTIVE ARCHIVED"`
	IsFeatured    bool                      `json:"is_featured"`
	Images        []ProductImageRequest     `json:"images" validate:"dive"`
	Attributes    []ProductAttributeRequest `json:"attributes" validate:"dive"`
}

func (r *ProductRequest) toInput() *usecase.ProductInput {
	input := &usecase.ProductInput{
		CategoryID:    r.CategoryID,
		Name:          r.Name,
		Slug:          r.Slug,
		SKU:           r.SKU,
		Description:   r.Description,
		RegularPrice:  r.RegularPrice,
		SalePrice:     r.SalePrice,
		StockStatus:   entity.StockStatus(r.StockStatus),
		StockQuantity: r.StockQuantity,
		ManageStock:   r.ManageStock,
		Status:        entity.ProductStatus(r.Status),
		IsFeatured:    r.IsFeatured,
	}

	for _, img := range r.Images {
		input.Images = append(input.Images, entity.ProductImage{
			URL:       img.URL,
			AltText:   img.AltText,
			IsMain:    img.IsMain,
			SortOrder: img.SortOrder,
		})
	}

	for _, attr := range r.Attributes {
		input.Attributes = append(input.Attributes, entity.ProductAttribute{Name: attr.Name, Value: attr.Value})
	}

	return input
}

type CategoryRequest struct {
	ParentID    *uuid.UUID `json:"parent_id"`
	Name        string     `json:"name" validate:"required,max=100"`
	Slug        string     `json:"slug" validate:"omitempty,max=120"`
	Description string     `json:"description"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// listInput reads the catalog query string. "q" and "search" are both accepted for the text term.
func listInput(c echo.Context) (*usecase.ListProductsInput, error) {
	page, err := pageRequest(c)
	if err != nil {
		return nil, err
	}

	categoryID, err := optionalUUIDQuery(c, "category")
	if err != nil {
		return nil, err
	}

	minPrice, err := decimalQuery(c, "min_price")
	if err != nil {
		return nil, err
	}

	maxPrice, err := decimalQuery(c, "max_price")
	if err != nil {
		return nil, err
	}

	search := c.QueryParam("q")
	if search == "" {
		search = c.QueryParam("search")
	}

	return &usecase.ListProductsInput{
		Search:      strings.TrimSpace(search),
		CategoryID:  categoryID,
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
		StockStatus: entity.StockStatus(strings.ToUpper(c.QueryParam("stock_status"))),
		Brand:       strings.TrimSpace(c.QueryParam("brand")),
		Status:      entity.ProductStatus(strings.ToUpper(c.QueryParam("status"))),
		Sort:        c.QueryParam("sort"),
		PageRequest: page,
	}, nil
}

// ListProducts serves GET /products and GET /search.
func (h *CatalogHandler) ListProducts(c echo.Context) error {
	input, err := listInput(c)
	if err != nil {
		return err
	}

	page, err := h.catalogUC.ListProducts(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, page)
}

// ListAllProducts is the back-office listing across every status.
func (h *CatalogHandler) ListAllProducts(c echo.Context) error {
	input, err := listInput(c)
	if err != nil {
		return err
	}

	page, err := h.catalogUC.ListAllProducts(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, page)
}

// GetProduct resolves :id as a UUID or a slug.
func (h *CatalogHandler) GetProduct(c echo.Context) error {
	product, err := h.catalogUC.GetProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, product)
}

func (h *CatalogHandler) CreateProduct(c echo.Context) error {
	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	product, err := h.catalogUC.CreateProduct(c.Request().Context(), req.toInput())
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, product)
}

func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
	productID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	product, err := h.catalogUC.UpdateProduct(c.Request().Context(), productID, req.toInput())
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, product)
}

// DeleteProduct archives the product.
func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
	productID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.catalogUC.ArchiveProduct(c.Request().Context(), productID); err != nil {
		return err
	}

	return response.NoContent(c)
}

func (h *CatalogHandler) ListCategories(c echo.Context) error {
	categories, err := h.catalogUC.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, categories)
}

func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	var req CategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	category, err := h.catalogUC.CreateCategory(c.Request().Context(), &usecase.CategoryInput{
		ParentID:    req.ParentID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, category)
}

func (h *CatalogHandler) AddReview(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	productID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req ReviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	review, err := h.catalogUC.AddReview(c.Request().Context(), userID, productID, &usecase.ReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, review)
}

var errEmptySearch = domainerrors.ErrValidationFailed.WithDetails("q is required")

// Search serves GET /search, which requires a text term.
func (h *CatalogHandler) Search(c echo.Context) error {
	if strings.TrimSpace(c.QueryParam("q")) == "" && strings.TrimSpace(c.QueryParam("search")) == "" {
		return errEmptySearch
	}

	return h.ListProducts(c)
}
