package service

// QRCodeService defines the interface for QR code generation and parsing services
type QRCodeService interface {
	// GenerateOrderQR encodes a lookup payload for the order number as a PNG image
	GenerateOrderQR(orderNumber string) ([]byte, error)

	// ParseOrderQR extracts the order number from a scanned payload
	ParseOrderQR(qrData string) (string, error)
}
