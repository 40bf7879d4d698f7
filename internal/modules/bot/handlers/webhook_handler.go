package handlers

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/evopoliki/wabot/internal/modules/bot/services"
)

// greenAPIWebhook mirrors the GreenAPI notification payload. idInstance
// arrives as a number, everything downstream treats it as a string.
type greenAPIWebhook struct {
	TypeWebhook  string `json:"typeWebhook"`
	InstanceData struct {
		IDInstance json.Number `json:"idInstance"`
	} `json:"instanceData"`
	SenderData struct {
		ChatID     string `json:"chatId"`
		SenderName string `json:"senderName"`
	} `json:"senderData"`
	MessageData struct {
		TypeMessage     string `json:"typeMessage"`
		TextMessageData struct {
			TextMessage string `json:"textMessage"`
		} `json:"textMessageData"`
		ExtendedTextMessageData struct {
			Text string `json:"text"`
		} `json:"extendedTextMessageData"`
	} `json:"messageData"`
}

func (w *greenAPIWebhook) text() string {
	if w.MessageData.TextMessageData.TextMessage != "" {
		return w.MessageData.TextMessageData.TextMessage
	}
	return w.MessageData.ExtendedTextMessageData.Text
}

type WebhookHandler struct {
	service *services.WebhookService
}

func NewWebhookHandler(service *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// Handle acks every notification with 200 no matter what, otherwise GreenAPI
// retries and the user gets duplicate replies. Processing happens off the
// request goroutine because an AI turn can take up to a minute.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	var payload greenAPIWebhook
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("⚠️ [WEBHOOK] Unparseable payload: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	if payload.TypeWebhook != "incomingMessageReceived" {
		return c.SendStatus(fiber.StatusOK)
	}

	text := payload.text()
	if text == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	go h.service.HandleIncoming(
		context.Background(),
		payload.InstanceData.IDInstance.String(),
		payload.SenderData.ChatID,
		payload.SenderData.SenderName,
		text,
	)

	return c.SendStatus(fiber.StatusOK)
}
