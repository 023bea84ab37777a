package impl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"storefront/config"
	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// catalogService implements the CatalogUsecase interface.
type catalogService struct {
	txManager     repository.TransactionManager
	productRepo   repository.ProductRepository
	categoryRepo  repository.CategoryRepository
	reviewRepo    repository.ReviewRepository
	catalogConfig *config.CatalogConfig
	logger        *slog.Logger
}

// CatalogServiceParams holds dependencies for CatalogService, injected by Fx.
type CatalogServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	ProductRepo  repository.ProductRepository
	CategoryRepo repository.CategoryRepository
	ReviewRepo   repository.ReviewRepository
	Config       *config.Config
	Logger       *slog.Logger
}

// NewCatalogService creates a new catalog service instance
func NewCatalogService(params CatalogServiceParams) usecase.CatalogUsecase {
	return &catalogService{
		txManager:     params.TxManager,
		productRepo:   params.ProductRepo,
		categoryRepo:  params.CategoryRepo,
		reviewRepo:    params.ReviewRepo,
		catalogConfig: params.Config.Catalog,
		logger:        params.Logger,
	}
}

func (srv *catalogService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ListProducts returns active products only.
func (srv *catalogService) ListProducts(ctx context.Context, input *usecase.ListProductsInput) (*usecase.Page[*entity.Product], error) {
	if input == nil {
		input = &usecase.ListProductsInput{}
	}

	query, err := srv.buildProductQuery(input)
	if err != nil {
		return nil, err
	}

	return srv.listProducts(ctx, query.Where(repository.StatusFilter{Status: entity.ProductStatusActive}))
}

// ListAllProducts lists products in any status unless input.Status narrows it.
func (srv *catalogService) ListAllProducts(ctx context.Context, input *usecase.ListProductsInput) (*usecase.Page[*entity.Product], error) {
	if input == nil {
		input = &usecase.ListProductsInput{}
	}

	query, err := srv.buildProductQuery(input)
	if err != nil {
		return nil, err
	}

	if input.Status != "" {
		if !input.Status.IsValid() {
			return nil, domainerrors.ErrValidationFailed.WithDetails(fmt.Sprintf("unknown product status %q", input.Status))
		}
		query = query.Where(repository.StatusFilter{Status: input.Status})
	}

	return srv.listProducts(ctx, query)
}

func (srv *catalogService) listProducts(ctx context.Context, query repository.ProductQuery) (*usecase.Page[*entity.Product], error) {
	products, total, err := srv.productRepo.List(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}

	return usecase.NewPage(products, query.Page, query.Limit, total), nil
}

// buildProductQuery turns request filters into typed repository filters.
func (srv *catalogService) buildProductQuery(input *usecase.ListProductsInput) (repository.ProductQuery, error) {
	page, limit := normalizePage(input.PageRequest, srv.catalogConfig)

	query := repository.ProductQuery{
		Sort:  repository.ParseProductSort(input.Sort),
		Page:  page,
		Limit: limit,
	}

	if term := strings.TrimSpace(input.Search); term != "" {
		query = query.Where(repository.TextFilter{Term: term})
	}

	if input.CategoryID != nil {
		query = query.Where(repository.CategoryFilter{CategoryID: *input.CategoryID})
	}

	if input.MinPrice != nil || input.MaxPrice != nil {
		if input.MinPrice != nil && input.MaxPrice != nil && input.MinPrice.GreaterThan(*input.MaxPrice) {
			return query, domainerrors.ErrValidationFailed.WithDetails("min_price must not exceed max_price")
		}
		query = query.Where(repository.PriceRangeFilter{Min: input.MinPrice, Max: input.MaxPrice})
	}

	if input.StockStatus != "" {
		if !input.StockStatus.IsValid() {
			return query, domainerrors.ErrValidationFailed.WithDetails(fmt.Sprintf("unknown stock status %q", input.StockStatus))
		}
		query = query.Where(repository.StockStatusFilter{Status: input.StockStatus})
	}

	if brand := strings.TrimSpace(input.Brand); brand != "" {
		query = query.Where(repository.BrandFilter{Brand: brand})
	}

	return query, nil
}

// GetProduct resolves idOrSlug as a UUID first and as a slug otherwise.
func (srv *catalogService) GetProduct(ctx context.Context, idOrSlug string) (*entity.Product, error) {
	var (
		product *entity.Product
		err     error
	)

	if id, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		product, err = srv.productRepo.FindByID(ctx, id)
	} else {
		product, err = srv.productRepo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(idOrSlug)))
	}

	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, domainerrors.ErrProductNotFound
		}

		return nil, errors.Wrap(err, "failed to get product")
	}

	if !product.IsAvailable() {
		return nil, domainerrors.ErrProductNotFound
	}

	return product, nil
}

func (srv *catalogService) ListCategories(ctx context.Context) ([]*entity.Category, error) {
	categories, err := srv.categoryRepo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list categories")
	}

	return categories, nil
}

func (srv *catalogService) CreateCategory(ctx context.Context, input *usecase.CategoryInput) (*entity.Category, error) {
	if input == nil || strings.TrimSpace(input.Name) == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("name is required")
	}

	category := &entity.Category{
		ID:          uuid.New(),
		ParentID:    input.ParentID,
		Name:        strings.TrimSpace(input.Name),
		Slug:        slugOrDefault(input.Slug, input.Name),
		Description: strings.TrimSpace(input.Description),
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		categoryRepo := repoFactory.NewCategoryRepository()

		if category.ParentID != nil {
			if err := ensureCategory(ctx, categoryRepo, *category.ParentID); err != nil {
				return err
			}
		}

		if err := categoryRepo.Create(ctx, category); err != nil {
			if errors.Is(err, repository.ErrDuplicateCategory) {
				return domainerrors.ErrCategoryAlreadyExists
			}

			return errors.Wrap(err, "failed to create category")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return category, nil
}

// CreateProduct validates and stores a new product.
func (srv *catalogService) CreateProduct(ctx context.Context, input *usecase.ProductInput) (*entity.Product, error) {
	product := &entity.Product{ID: uuid.New()}
	if err := applyProductInput(product, input); err != nil {
		return nil, err
	}

	var created *entity.Product
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if product.CategoryID != nil {
			if err := ensureCategory(ctx, repoFactory.NewCategoryRepository(), *product.CategoryID); err != nil {
				return err
			}
		}

		productRepo := repoFactory.NewProductRepository()
		if err := productRepo.Create(ctx, product); err != nil {
			return mapProductWriteError(err)
		}

		var err error
		created, err = productRepo.FindByID(ctx, product.ID)

		return errors.Wrap(err, "failed to reload product")
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Product created", slog.String("product_id", created.ID.String()), slog.String("slug", created.Slug))

	return created, nil
}

// UpdateProduct replaces every writable field of the product.
func (srv *catalogService) UpdateProduct(ctx context.Context, productID uuid.UUID, input *usecase.ProductInput) (*entity.Product, error) {
	var updated *entity.Product
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		productRepo := repoFactory.NewProductRepository()

		product, err := findProduct(ctx, productRepo, productID)
		if err != nil {
			return err
		}

		if err := applyProductInput(product, input); err != nil {
			return err
		}

		if product.CategoryID != nil {
			if err := ensureCategory(ctx, repoFactory.NewCategoryRepository(), *product.CategoryID); err != nil {
				return err
			}
		}

		if err := productRepo.Update(ctx, product); err != nil {
			return mapProductWriteError(err)
		}

		updated, err = productRepo.FindByID(ctx, productID)

		return errors.Wrap(err, "failed to reload product")
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// ArchiveProduct marks the product ARCHIVED. Order lines keep their reference and price snapshot.
func (srv *catalogService) ArchiveProduct(ctx context.Context, productID uuid.UUID) error {
	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		productRepo := repoFactory.NewProductRepository()

		product, err := findProduct(ctx, productRepo, productID)
		if err != nil {
			return err
		}

		if product.Status == entity.ProductStatusArchived {
			return nil
		}

		product.Status = entity.ProductStatusArchived
		if err := productRepo.Update(ctx, product); err != nil {
			return mapProductWriteError(err)
		}

		return nil
	})
}

// AddReview stores the caller's rating. Each user reviews a product once.
func (srv *catalogService) AddReview(ctx context.Context, userID, productID uuid.UUID, input *usecase.ReviewInput) (*entity.Review, error) {
	if input == nil || input.Rating < entity.MinReviewRating || input.Rating > entity.MaxReviewRating {
		return nil, domainerrors.ErrValidationFailed.WithDetails(
			fmt.Sprintf("rating must be between %d and %d", entity.MinReviewRating, entity.MaxReviewRating),
		)
	}

	review := &entity.Review{
		ID:        uuid.New(),
		ProductID: productID,
		UserID:    userID,
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		product, err := findProduct(ctx, repoFactory.NewProductRepository(), productID)
		if err != nil {
			return err
		}

		if !product.IsAvailable() {
			return domainerrors.ErrProductNotFound
		}

		if err := repoFactory.NewReviewRepository().Create(ctx, review); err != nil {
			if errors.Is(err, repository.ErrDuplicateReview) {
				return domainerrors.ErrReviewAlreadyExists
			}

			return errors.Wrap(err, "failed to create review")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

func ensureCategory(ctx context.Context, repo repository.CategoryRepository, id uuid.UUID) error {
	if _, err := repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return domainerrors.ErrCategoryNotFound
		}

		return errors.Wrap(err, "failed to find category")
	}

	return nil
}

func mapProductWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateProduct):
		return domainerrors.ErrProductAlreadyExists
	case errors.Is(err, repository.ErrProductNotFound):
		return domainerrors.ErrProductNotFound
	default:
		return errors.Wrap(err, "failed to save product")
	}
}

func slugOrDefault(slug, name string) string {
	if s := slugify(slug); s != "" {
		return s
	}

	return slugify(name)
}

// applyProductInput validates input and copies it onto product, keeping identity and timestamps.
func applyProductInput(product *entity.Product, input *usecase.ProductInput) error {
	if input == nil {
		return domainerrors.ErrValidationFailed.WithDetails("product body is required")
	}

	var problems []string

	name := strings.TrimSpace(input.Name)
	if name == "" {
		problems = append(problems, "name is required")
	}

	slug := slugOrDefault(input.Slug, input.Name)
	if slug == "" {
		problems = append(problems, "slug is required")
	}

	if input.RegularPrice.IsNegative() {
		problems = append(problems, "regular_price must not be negative")
	}

	if problem := moneyProblem("regular_price", input.RegularPrice); problem != "" {
		problems = append(problems, problem)
	}

	if input.SalePrice != nil && input.SalePrice.IsNegative() {
		problems = append(problems, "sale_price must not be negative")
	}

	if input.SalePrice != nil {
		if problem := moneyProblem("sale_price", *input.SalePrice); problem != "" {
			problems = append(problems, problem)
		}
	}

	stockStatus := input.StockStatus
	if stockStatus == "" {
		stockStatus = entity.StockStatusInStock
	}
	if !stockStatus.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown stock_status %q", stockStatus))
	}

	status := input.Status
	if status == "" {
		status = entity.ProductStatusDraft
	}
	if !status.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", status))
	}

	if input.ManageStock && input.StockQuantity == nil {
		problems = append(problems, "stock_quantity is required when manage_stock is true")
	}

	if input.StockQuantity != nil && *input.StockQuantity < 0 {
		problems = append(problems, "stock_quantity must not be negative")
	}

	if len(problems) > 0 {
		return domainerrors.ErrValidationFailed.WithDetails(strings.Join(problems, "; "))
	}

	product.CategoryID = input.CategoryID
	product.Name = name
	product.Slug = slug
	product.SKU = strings.TrimSpace(input.SKU)
	product.Description = input.Description
	product.RegularPrice = input.RegularPrice
	product.SalePrice = input.SalePrice
	product.StockStatus = stockStatus
	product.StockQuantity = input.StockQuantity
	product.ManageStock = input.ManageStock
	product.Status = status
	product.IsFeatured = input.IsFeatured
	product.Attributes = input.Attributes
	product.Images = normalizeImages(product.ID, input.Images)

	return nil
}

// normalizeImages assigns identities and makes sure exactly one image is main.
func normalizeImages(productID uuid.UUID, images []entity.ProductImage) []entity.ProductImage {
	out := make([]entity.ProductImage, 0, len(images))
	mainSeen := false

	for i, img := range images {
		img.ID = uuid.New()
		img.ProductID = productID
		if img.SortOrder == 0 {
			img.SortOrder = i
		}
		if img.IsMain {
			if mainSeen {
				img.IsMain = false
			}
			mainSeen = true
		}
		out = append(out, img)
	}

	if !mainSeen && len(out) > 0 {
		out[0].IsMain = true
	}

	return out
}
