package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/udithsc/storefront-api/internal/model"
	"github.com/udithsc/storefront-api/internal/worker"
)

type WebhookHandler struct {
	amqpCh        *amqp.Channel
	webhookSecret string
	log           *slog.Logger
}

func NewWebhookHandler(amqpCh *amqp.Channel, webhookSecret string, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{amqpCh: amqpCh, webhookSecret: webhookSecret, log: log}
}

// HandleStripe verifies the event signature and hands completed checkout
// sessions to the order worker via the queue. Order rows are never written
// on the request path.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read payload"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	if event.Type != "checkout.session.completed" {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	msg := model.CheckoutCompletedMessage{
		SessionID: sess.ID,
		UserID:    sess.Metadata["userId"],
		Total:     decimal.New(sess.AmountTotal, -2),
	}
	if sess.CustomerDetails != nil {
		msg.Email = sess.CustomerDetails.Email
		msg.Name = sess.CustomerDetails.Name
	}
	if items := sess.Metadata["items"]; items != "" {
		if err := json.Unmarshal([]byte(items), &msg.Items); err != nil {
			h.log.Error("unmarshal session items metadata", "session_id", sess.ID, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed session metadata"})
			return
		}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	err = h.amqpCh.PublishWithContext(c.Request.Context(), "", worker.OrderQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		h.log.Error("publish checkout completed", "session_id", sess.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
