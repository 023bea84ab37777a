// Package handler contains the Pub/Sub push handlers of the notifier worker.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"storefront/config"
	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/constants"
	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
	"storefront/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// PubSubMessage represents the structure of a Pub/Sub push message
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
		OrderingKey string            `json:"orderingKey,omitempty"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// retryableError wraps an error to indicate it should trigger a Pub/Sub retry
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.err)
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func newRetryableError(err error) error {
	return &retryableError{err: err}
}

func isRetryableError(err error) bool {
	var re *retryableError

	return errors.As(err, &re)
}

// PushHandler turns order events into push notifications for the order owner's devices.
type PushHandler struct {
	verifyPushAuth  bool
	logger          *slog.Logger
	notificationSvc service.NotificationService
	deviceRepo      repository.DeviceRepository
}

// PushHandlerParams holds dependencies for the PushHandler
type PushHandlerParams struct {
	fx.In

	Config          *config.Config
	Logger          *slog.Logger
	NotificationSvc service.NotificationService
	DeviceRepo      repository.DeviceRepository
}

// NewPushHandler creates a new Pub/Sub push handler
func NewPushHandler(params PushHandlerParams) *PushHandler {
	// Google signs push requests; the local publisher does not.
	verifyPushAuth := params.Config.PubSub != nil &&
		params.Config.PubSub.Provider == constants.PubSubProviderGoogle &&
		params.Config.Env.Env != constants.EnvDevelop

	return &PushHandler{
		verifyPushAuth:  verifyPushAuth,
		logger:          params.Logger,
		notificationSvc: params.NotificationSvc,
		deviceRepo:      params.DeviceRepo,
	}
}

// HandlePush handles incoming Pub/Sub push messages.
// 503 asks Pub/Sub to redeliver; 200 acknowledges, including messages that can never succeed.
func (h *PushHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	if h.verifyPushAuth {
		if err := verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg PubSubMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode message data", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	var event entity.OrderEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Error("[Worker] Failed to parse order event", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	requestID := extractRequestID(ctx, &pushMsg)
	reqLogger := h.logger.With(slog.String("request_id", requestID))
	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, reqLogger)

	reqLogger.Info("[Worker] Processing order event",
		slog.String("event_type", string(event.Type)),
		slog.String("order_number", event.OrderNumber),
		slog.String("message_id", pushMsg.Message.MessageID),
	)

	if err := h.processEvent(ctx, reqLogger, &event); err != nil {
		reqLogger.Error("[Worker] Failed to process order event",
			slog.String("order_id", event.OrderID.String()),
			slog.Any("error", err),
			slog.Bool("retryable", isRetryableError(err)),
		)
		if isRetryableError(err) {
			return c.NoContent(http.StatusServiceUnavailable)
		}

		return c.NoContent(http.StatusOK)
	}

	return c.NoContent(http.StatusOK)
}

// extractRequestID prefers the message attribute, then the X-Request-Id of the push request.
func extractRequestID(ctx context.Context, pushMsg *PubSubMessage) string {
	if requestID := pushMsg.Message.Attributes[constants.AttributeRequestID]; requestID != "" {
		return requestID
	}

	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		return requestID
	}

	return uuid.New().String()
}

func (h *PushHandler) processEvent(ctx context.Context, logger *slog.Logger, event *entity.OrderEvent) error {
	if event.UserID == uuid.Nil {
		return errors.New("order event has no user")
	}

	title, body, ok := notificationContent(event)
	if !ok {
		logger.Info("[Worker] Ignoring order event", slog.String("event_type", string(event.Type)))

		return nil
	}

	devices, err := h.deviceRepo.FindActiveDevicesByUser(ctx, event.UserID)
	if err != nil {
		return newRetryableError(errors.WithStack(err))
	}

	if len(devices) == 0 {
		logger.Info("[Worker] No active devices for order owner", slog.String("user_id", event.UserID.String()))

		return nil
	}

	tokens := make([]string, 0, len(devices))
	for _, device := range devices {
		tokens = append(tokens, device.FCMToken)
	}

	result := h.sendBatched(ctx, logger, tokens, title, body, notificationData(event))

	if len(result.invalidTokens) > 0 {
		if err := h.deviceRepo.DeactivateByTokens(ctx, result.invalidTokens); err != nil {
			logger.Warn("[Worker] Failed to deactivate invalid tokens",
				slog.Int("count", len(result.invalidTokens)),
				slog.Any("error", err),
			)
		}
	}

	logger.Info("[Worker] Order notification sent",
		slog.String("order_number", event.OrderNumber),
		slog.Int("total_sent", result.sent),
		slog.Int("total_failed", result.failed),
		slog.Int("invalid_tokens", len(result.invalidTokens)),
	)

	// Nothing delivered and at least one batch failed outright: let Pub/Sub retry.
	if result.sent == 0 && result.batchErr != nil {
		return newRetryableError(result.batchErr)
	}

	return nil
}

type sendResult struct {
	sent          int
	failed        int
	invalidTokens []string
	batchErr      error
}

// sendBatched sends in chunks of service.MaxMulticastTokens and aggregates the outcome.
func (h *PushHandler) sendBatched(ctx context.Context, logger *slog.Logger, tokens []string, title, body string, data map[string]string) sendResult {
	var result sendResult

	for idx := 0; idx < len(tokens); idx += service.MaxMulticastTokens {
		end := min(idx+service.MaxMulticastTokens, len(tokens))
		batch := tokens[idx:end]

		successCount, failureCount, invalidTokens, err := h.notificationSvc.SendBatchNotification(ctx, batch, title, body, data)
		if err != nil {
			logger.Error("[Worker] Failed to send batch",
				slog.Int("batch_start", idx),
				slog.Int("batch_size", len(batch)),
				slog.Any("error", err),
			)
			result.failed += len(batch)
			result.batchErr = err

			continue
		}

		result.sent += successCount
		result.failed += failureCount
		result.invalidTokens = append(result.invalidTokens, invalidTokens...)
	}

	return result
}

// notificationContent returns the title and body for the event, or false when the event is not announced.
func notificationContent(event *entity.OrderEvent) (title, body string, ok bool) {
	switch event.Type {
	case entity.OrderEventCreated:
		return "Order received",
			fmt.Sprintf("Order %s has been placed. Total %s.", event.OrderNumber, event.TotalAmount.StringFixed(2)),
			true
	case entity.OrderEventStatusChanged:
		return "Order update", fmt.Sprintf("Order %s %s.", event.OrderNumber, statusPhrase(event.Status)), true
	default:
		return "", "", false
	}
}

func statusPhrase(status entity.OrderStatus) string {
	switch status {
	case entity.OrderStatusProcessing:
		return "is being prepared"
	case entity.OrderStatusShipped:
		return "has shipped"
	case entity.OrderStatusDelivered:
		return "has been delivered"
	case entity.OrderStatusCancelled:
		return "has been cancelled"
	default:
		return "is now " + strings.ToLower(string(status))
	}
}

func notificationData(event *entity.OrderEvent) map[string]string {
	data := map[string]string{
		"event_type":   string(event.Type),
		"order_id":     event.OrderID.String(),
		"order_number": event.OrderNumber,
		"status":       string(event.Status),
	}
	if event.PreviousStatus != "" {
		data["previous_status"] = string(event.PreviousStatus)
	}

	return data
}

// verifyPubSubToken verifies the JWT token from Google Pub/Sub push requests
// Reference: https://cloud.google.com/pubsub/docs/push#authenticating_standard_push_requests
func verifyPubSubToken(req *http.Request) error {
	authHeader := req.Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	token, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		return errors.New("invalid authorization header format")
	}

	// The audience is the push endpoint URL.
	scheme := "https"
	if req.TLS == nil {
		scheme = "http"
	}
	audience := fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)

	payload, err := idtoken.Validate(req.Context(), token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}
