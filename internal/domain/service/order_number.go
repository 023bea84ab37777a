package service

// OrderNumberGenerator produces human-readable order numbers.
type OrderNumberGenerator interface {
	// Next returns an order number not previously returned by this generator.
	Next() string
}
