package impl

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"storefront/config"
	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	return &config.Config{
		Auth:    &config.AuthConfig{BcryptCost: 4, AdminEmails: []string{"Admin@Example.com"}},
		Order:   &config.OrderConfig{ShippingAmount: "300", Currency: "TWD"},
		Catalog: &config.CatalogConfig{DefaultPageSize: 20, MaxPageSize: 100},
	}
}

func ptr[T any](v T) *T { return &v }

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// memStore is an in-memory stand-in for the relational store. It implements
// RepositoryFactory; memTxManager snapshots it so a failed transaction leaves no writes.
type memStore struct {
	products   map[uuid.UUID]entity.Product
	categories map[uuid.UUID]entity.Category
	reviews    map[uuid.UUID]entity.Review
	cart       map[uuid.UUID]entity.CartItem
	orders     map[uuid.UUID]entity.Order
	orderItems map[uuid.UUID]entity.OrderItem
	addresses  map[uuid.UUID]entity.ShippingAddress // keyed by order ID
	users      map[uuid.UUID]entity.User

	clock time.Time

	// duplicateOrderNumbers makes the next N order inserts fail as order number collisions.
	duplicateOrderNumbers int
}

func newMemStore() *memStore {
	return &memStore{
		products:   map[uuid.UUID]entity.Product{},
		categories: map[uuid.UUID]entity.Category{},
		reviews:    map[uuid.UUID]entity.Review{},
		cart:       map[uuid.UUID]entity.CartItem{},
		orders:     map[uuid.UUID]entity.Order{},
		orderItems: map[uuid.UUID]entity.OrderItem{},
		addresses:  map[uuid.UUID]entity.ShippingAddress{},
		users:      map[uuid.UUID]entity.User{},
		clock:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) now() time.Time {
	s.clock = s.clock.Add(time.Millisecond)

	return s.clock
}

func (s *memStore) snapshot() *memStore {
	return &memStore{
		products:              maps.Clone(s.products),
		categories:            maps.Clone(s.categories),
		reviews:               maps.Clone(s.reviews),
		cart:                  maps.Clone(s.cart),
		orders:                maps.Clone(s.orders),
		orderItems:            maps.Clone(s.orderItems),
		addresses:             maps.Clone(s.addresses),
		users:                 maps.Clone(s.users),
		clock:                 s.clock,
		duplicateOrderNumbers: s.duplicateOrderNumbers,
	}
}

func (s *memStore) restore(snap *memStore) {
	s.products, s.categories, s.reviews = snap.products, snap.categories, snap.reviews
	s.cart, s.orders, s.orderItems = snap.cart, snap.orders, snap.orderItems
	s.addresses, s.users = snap.addresses, snap.users
}

func (s *memStore) NewProductRepository() repository.ProductRepository   { return &memProductRepo{s} }
func (s *memStore) NewCategoryRepository() repository.CategoryRepository { return &memCategoryRepo{s} }
func (s *memStore) NewReviewRepository() repository.ReviewRepository     { return &memReviewRepo{s} }
func (s *memStore) NewCartRepository() repository.CartRepository         { return &memCartRepo{s} }
func (s *memStore) NewOrderRepository() repository.OrderRepository       { return &memOrderRepo{s} }
func (s *memStore) NewUserRepository() repository.UserRepository         { return &memUserRepo{s} }

// seedProduct stores an ACTIVE product with one main image.
func (s *memStore) seedProduct(name string, price string, mutate ...func(*entity.Product)) *entity.Product {
	id := uuid.New()
	p := entity.Product{
		ID:           id,
		Name:         name,
		Slug:         slugify(name),
		SKU:          strings.ToUpper(slugify(name)),
		RegularPrice: money(price),
		StockStatus:  entity.StockStatusInStock,
		Status:       entity.ProductStatusActive,
		Images: []entity.ProductImage{
			{ID: uuid.New(), ProductID: id, URL: name + "-1.jpg", SortOrder: 1},
			{ID: uuid.New(), ProductID: id, URL: name + "-main.jpg", IsMain: true, SortOrder: 2},
		},
		CreatedAt: s.now(),
	}
	for _, fn := range mutate {
		fn(&p)
	}
	s.products[id] = p

	return &p
}

func (s *memStore) seedUser(email string) *entity.User {
	u := entity.User{ID: uuid.New(), Email: email, Name: "Customer", Role: entity.RoleCustomer, CreatedAt: s.now()}
	s.users[u.ID] = u

	return &u
}

func (s *memStore) cartLines(userID uuid.UUID) []entity.CartItem {
	var lines []entity.CartItem
	for _, item := range s.cart {
		if item.UserID == userID {
			lines = append(lines, item)
		}
	}

	return lines
}

type memTxManager struct {
	mu    sync.Mutex
	store *memStore
}

func (tm *memTxManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snap := tm.store.snapshot()
	if err := fn(tm.store); err != nil {
		tm.store.restore(snap)

		return err
	}

	return nil
}

// --- products ---

type memProductRepo struct{ s *memStore }

func (r *memProductRepo) withRatings(p entity.Product) *entity.Product {
	sum, count := 0, 0
	for _, rv := range r.s.reviews {
		if rv.ProductID == p.ID {
			sum += rv.Rating
			count++
		}
	}
	p.ReviewCount = count
	if count > 0 {
		p.AverageRating = float64(sum) / float64(count)
	}

	return &p
}

func (r *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}

	return r.withRatings(p), nil
}

func (r *memProductRepo) FindBySlug(_ context.Context, slug string) (*entity.Product, error) {
	for _, p := range r.s.products {
		if p.Slug == slug {
			return r.withRatings(p), nil
		}
	}

	return nil, repository.ErrProductNotFound
}

func (r *memProductRepo) List(_ context.Context, q repository.ProductQuery) ([]*entity.Product, int64, error) {
	var matched []*entity.Product
	for _, p := range r.s.products {
		if matchesAll(&p, q.Filters) {
			matched = append(matched, r.withRatings(p))
		}
	}

	slices.SortFunc(matched, func(a, b *entity.Product) int {
		switch q.Sort {
		case repository.SortPriceAsc:
			return a.EffectivePrice().Cmp(b.EffectivePrice())
		case repository.SortPriceDesc:
			return b.EffectivePrice().Cmp(a.EffectivePrice())
		case repository.SortRating:
			if a.AverageRating != b.AverageRating {
				if a.AverageRating > b.AverageRating {
					return -1
				}

				return 1
			}
			if a.IsFeatured != b.IsFeatured {
				if a.IsFeatured {
					return -1
				}

				return 1
			}
		}

		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := int64(len(matched))
	start := min(q.Offset(), len(matched))
	end := min(start+q.Limit, len(matched))

	page := matched[start:end]
	for i, p := range page {
		page[i] = p.WithMainImageOnly()
	}

	return page, total, nil
}

func matchesAll(p *entity.Product, filters []repository.ProductFilter) bool {
	for _, f := range filters {
		switch f := f.(type) {
		case repository.TextFilter:
			term := strings.ToLower(f.Term)
			if !strings.Contains(strings.ToLower(p.Name), term) &&
				!strings.Contains(strings.ToLower(p.Description), term) &&
				!strings.Contains(strings.ToLower(p.SKU), term) {
				return false
			}
		case repository.CategoryFilter:
			if p.CategoryID == nil || *p.CategoryID != f.CategoryID {
				return false
			}
		case repository.PriceRangeFilter:
			price := p.EffectivePrice()
			if f.Min != nil && price.LessThan(*f.Min) {
				return false
			}
			if f.Max != nil && price.GreaterThan(*f.Max) {
				return false
			}
		case repository.StockStatusFilter:
			if p.StockStatus != f.Status {
				return false
			}
		case repository.BrandFilter:
			if !slices.ContainsFunc(p.Attributes, func(a entity.ProductAttribute) bool {
				return a.Name == entity.AttributeBrand && strings.EqualFold(a.Value, f.Brand)
			}) {
				return false
			}
		case repository.StatusFilter:
			if p.Status != f.Status {
				return false
			}
		}
	}

	return true
}

func (r *memProductRepo) Create(_ context.Context, product *entity.Product) error {
	for _, p := range r.s.products {
		if p.Slug == product.Slug || (product.SKU != "" && p.SKU == product.SKU) {
			return repository.ErrDuplicateProduct
		}
	}
	product.CreatedAt = r.s.now()
	product.UpdatedAt = product.CreatedAt
	r.s.products[product.ID] = *product

	return nil
}

func (r *memProductRepo) Update(_ context.Context, product *entity.Product) error {
	if _, ok := r.s.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	for id, p := range r.s.products {
		if id != product.ID && (p.Slug == product.Slug || (product.SKU != "" && p.SKU == product.SKU)) {
			return repository.ErrDuplicateProduct
		}
	}
	product.UpdatedAt = r.s.now()
	r.s.products[product.ID] = *product

	return nil
}

// --- categories and reviews ---

type memCategoryRepo struct{ s *memStore }

func (r *memCategoryRepo) List(context.Context) ([]*entity.Category, error) {
	out := make([]*entity.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *entity.Category) int { return strings.Compare(a.Name, b.Name) })

	return out, nil
}

func (r *memCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Category, error) {
	c, ok := r.s.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}

	return &c, nil
}

func (r *memCategoryRepo) Create(_ context.Context, category *entity.Category) error {
	for _, c := range r.s.categories {
		if c.Slug == category.Slug || c.Name == category.Name {
			return repository.ErrDuplicateCategory
		}
	}
	category.CreatedAt = r.s.now()
	r.s.categories[category.ID] = *category

	return nil
}

type memReviewRepo struct{ s *memStore }

func (r *memReviewRepo) Create(_ context.Context, review *entity.Review) error {
	for _, rv := range r.s.reviews {
		if rv.ProductID == review.ProductID && rv.UserID == review.UserID {
			return repository.ErrDuplicateReview
		}
	}
	review.CreatedAt = r.s.now()
	r.s.reviews[review.ID] = *review

	return nil
}

// --- cart ---

type memCartRepo struct{ s *memStore }

func (r *memCartRepo) withProduct(item entity.CartItem) *entity.CartItem {
	if p, ok := r.s.products[item.ProductID]; ok {
		item.Product = p.WithMainImageOnly()
	}

	return &item
}

func (r *memCartRepo) FindByUser(_ context.Context, userID uuid.UUID) ([]*entity.CartItem, error) {
	lines := r.s.cartLines(userID)
	slices.SortFunc(lines, func(a, b entity.CartItem) int { return b.CreatedAt.Compare(a.CreatedAt) })

	out := make([]*entity.CartItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, r.withProduct(l))
	}

	return out, nil
}

func (r *memCartRepo) FindByIDAndUserForUpdate(_ context.Context, id, userID uuid.UUID) (*entity.CartItem, error) {
	item, ok := r.s.cart[id]
	if !ok || item.UserID != userID {
		return nil, repository.ErrCartItemNotFound
	}

	return r.withProduct(item), nil
}

func (r *memCartRepo) FindByUserAndProductForUpdate(_ context.Context, userID, productID uuid.UUID) (*entity.CartItem, error) {
	for _, item := range r.s.cart {
		if item.UserID == userID && item.ProductID == productID {
			return &item, nil
		}
	}

	return nil, repository.ErrCartItemNotFound
}

func (r *memCartRepo) AddQuantity(_ context.Context, userID, productID uuid.UUID, quantity int) (*entity.CartItem, error) {
	for id, item := range r.s.cart {
		if item.UserID == userID && item.ProductID == productID {
			item.Quantity += quantity
			item.UpdatedAt = r.s.now()
			r.s.cart[id] = item

			return &item, nil
		}
	}

	now := r.s.now()
	item := entity.CartItem{ID: uuid.New(), UserID: userID, ProductID: productID, Quantity: quantity, CreatedAt: now, UpdatedAt: now}
	r.s.cart[item.ID] = item

	return &item, nil
}

func (r *memCartRepo) SetQuantity(_ context.Context, id, userID uuid.UUID, quantity int) error {
	item, ok := r.s.cart[id]
	if !ok || item.UserID != userID {
		return repository.ErrCartItemNotFound
	}
	item.Quantity = quantity
	r.s.cart[id] = item

	return nil
}

func (r *memCartRepo) Delete(_ context.Context, id, userID uuid.UUID) error {
	item, ok := r.s.cart[id]
	if !ok || item.UserID != userID {
		return repository.ErrCartItemNotFound
	}
	delete(r.s.cart, id)

	return nil
}

func (r *memCartRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	maps.DeleteFunc(r.s.cart, func(_ uuid.UUID, item entity.CartItem) bool { return item.UserID == userID })

	return nil
}

// --- orders ---

type memOrderRepo struct{ s *memStore }

func (r *memOrderRepo) Create(_ context.Context, order *entity.Order) error {
	if r.s.duplicateOrderNumbers > 0 {
		r.s.duplicateOrderNumbers--

		return repository.ErrDuplicateOrderNumber
	}
	for _, o := range r.s.orders {
		if o.OrderNumber == order.OrderNumber {
			return repository.ErrDuplicateOrderNumber
		}
	}

	now := r.s.now()
	order.CreatedAt, order.UpdatedAt = now, now

	stored := *order
	stored.Items, stored.ShippingAddress, stored.Customer = nil, nil, nil
	r.s.orders[order.ID] = stored

	for _, item := range order.Items {
		item.CreatedAt = r.s.now()
		r.s.orderItems[item.ID] = *item
	}
	if order.ShippingAddress != nil {
		r.s.addresses[order.ID] = *order.ShippingAddress
	}

	return nil
}

func (r *memOrderRepo) items(orderID uuid.UUID, withProducts bool) []*entity.OrderItem {
	var items []*entity.OrderItem
	for _, item := range r.s.orderItems {
		if item.OrderID != orderID {
			continue
		}
		if withProducts {
			if p, ok := r.s.products[item.ProductID]; ok {
				item.Product = p.WithMainImageOnly()
			}
		}
		items = append(items, &item)
	}
	slices.SortFunc(items, func(a, b *entity.OrderItem) int { return a.CreatedAt.Compare(b.CreatedAt) })

	return items
}

func (r *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}

	o.Items = r.items(id, true)
	if addr, ok := r.s.addresses[id]; ok {
		o.ShippingAddress = &addr
	}
	if u, ok := r.s.users[o.UserID]; ok {
		o.Customer = &u
	}

	return &o, nil
}

func (r *memOrderRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*entity.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o.Items = r.items(id, false)

	return &o, nil
}

func (r *memOrderRepo) List(ctx context.Context, q repository.OrderQuery) ([]*entity.Order, int64, error) {
	var matched []*entity.Order
	for id, o := range r.s.orders {
		if q.UserID != nil && o.UserID != *q.UserID {
			continue
		}
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(o.OrderNumber), strings.ToLower(q.Search)) {
			continue
		}
		full, _ := r.FindByID(ctx, id)
		matched = append(matched, full)
	}
	slices.SortFunc(matched, func(a, b *entity.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })

	start := min(q.Offset(), len(matched))
	end := min(start+q.Limit, len(matched))

	return matched[start:end], int64(len(matched)), nil
}

func (r *memOrderRepo) Update(_ context.Context, order *entity.Order) error {
	o, ok := r.s.orders[order.ID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.Status, o.TrackingNumber, o.Notes = order.Status, order.TrackingNumber, order.Notes
	o.UpdatedAt = r.s.now()
	r.s.orders[order.ID] = o

	return nil
}

func (r *memOrderRepo) UpdateTotals(_ context.Context, order *entity.Order) error {
	o, ok := r.s.orders[order.ID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.Subtotal, o.TotalAmount = order.Subtotal, order.TotalAmount
	r.s.orders[order.ID] = o

	return nil
}

func (r *memOrderRepo) SaveShippingAddress(_ context.Context, address *entity.ShippingAddress) error {
	if existing, ok := r.s.addresses[address.OrderID]; ok {
		address.ID = existing.ID
	} else if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}
	r.s.addresses[address.OrderID] = *address

	return nil
}

func (r *memOrderRepo) CreateItem(_ context.Context, item *entity.OrderItem) error {
	item.CreatedAt = r.s.now()
	r.s.orderItems[item.ID] = *item

	return nil
}

func (r *memOrderRepo) UpdateItem(_ context.Context, item *entity.OrderItem) error {
	stored, ok := r.s.orderItems[item.ID]
	if !ok {
		return repository.ErrOrderItemNotFound
	}
	stored.Quantity, stored.Price, stored.Total = item.Quantity, item.Price, item.Total
	r.s.orderItems[item.ID] = stored

	return nil
}

func (r *memOrderRepo) DeleteItem(_ context.Context, orderID, itemID uuid.UUID) error {
	item, ok := r.s.orderItems[itemID]
	if !ok || item.OrderID != orderID {
		return repository.ErrOrderItemNotFound
	}
	delete(r.s.orderItems, itemID)

	return nil
}

// --- users ---

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return &u, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) Create(_ context.Context, user *entity.User) error {
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	user.CreatedAt = r.s.now()
	r.s.users[user.ID] = *user

	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *entity.User) error {
	for id, u := range r.s.users {
		if id != user.ID && u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	r.s.users[user.ID] = *user

	return nil
}

// --- collaborators ---

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishOrderEvent(ctx context.Context, event *entity.OrderEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

func (m *mockEventPublisher) Close() error {
	return m.Called().Error(0)
}

type mockQRCodeService struct {
	mock.Mock
}

func (m *mockQRCodeService) GenerateOrderQR(orderNumber string) ([]byte, error) {
	args := m.Called(orderNumber)
	png, _ := args.Get(0).([]byte)

	return png, args.Error(1)
}

func (m *mockQRCodeService) ParseOrderQR(qrData string) (string, error) {
	args := m.Called(qrData)

	return args.String(0), args.Error(1)
}

// sequenceNumbers hands out fixed order numbers in order.
type sequenceNumbers struct {
	values []string
	next   int
}

func (g *sequenceNumbers) Next() string {
	v := g.values[g.next%len(g.values)]
	g.next++

	return v
}
