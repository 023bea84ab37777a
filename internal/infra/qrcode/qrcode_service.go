package qrcode

import (
	"encoding/json"
	"net/url"
	"strings"

	"storefront/config"
	"storefront/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

const (
	payloadTypeOrder = "order"
	defaultSize      = 256
)

type qrcodeService struct {
	size                 int
	errorCorrectionLevel qrcode.RecoveryLevel
	baseURL              string
}

// OrderQRData is the JSON payload encoded in an order QR code.
type OrderQRData struct {
	Type        string `json:"type"`
	OrderNumber string `json:"order_number"`
	URL         string `json:"url,omitempty"`
}

// NewQRCodeService creates a new QR code service instance from the qrcode config section.
func NewQRCodeService(cfg *config.Config) service.QRCodeService {
	size, level, baseURL := defaultSize, "M", ""
	if cfg != nil && cfg.QRCode != nil {
		if cfg.QRCode.Size > 0 {
			size = cfg.QRCode.Size
		}
		level = cfg.QRCode.ErrorCorrectionLevel
		baseURL = strings.TrimRight(cfg.QRCode.BaseURL, "/")
	}

	return &qrcodeService{
		size:                 size,
		errorCorrectionLevel: recoveryLevel(level),
		baseURL:              baseURL,
	}
}

func recoveryLevel(level string) qrcode.RecoveryLevel {
	switch strings.ToUpper(level) {
	case "L":
		return qrcode.Low
	case "Q":
		return qrcode.High
	case "H":
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// GenerateOrderQR renders the order payload as a PNG.
func (s *qrcodeService) GenerateOrderQR(orderNumber string) ([]byte, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, errors.New("order number is required")
	}

	data := OrderQRData{Type: payloadTypeOrder, OrderNumber: orderNumber}
	if s.baseURL != "" {
		data.URL = s.baseURL + "/orders/lookup?number=" + url.QueryEscape(orderNumber)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal QR code data")
	}

	qrCode, err := qrcode.New(string(jsonData), s.errorCorrectionLevel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create QR code")
	}

	pngBytes, err := qrCode.PNG(s.size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate PNG")
	}

	return pngBytes, nil
}

// ParseOrderQR returns the order number from a scanned payload.
func (s *qrcodeService) ParseOrderQR(qrData string) (string, error) {
	var data OrderQRData
	if err := json.Unmarshal([]byte(qrData), &data); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal QR code data")
	}

	if data.Type != payloadTypeOrder {
		return "", errors.Errorf("invalid QR code type: %s", data.Type)
	}

	if data.OrderNumber == "" {
		return "", errors.New("QR code carries no order number")
	}

	return data.OrderNumber, nil
}
