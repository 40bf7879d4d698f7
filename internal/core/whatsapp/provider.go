package whatsapp

// Sender delivers outbound messages for one tenant's WhatsApp instance.
type Sender interface {
	// SendMessage sends a text message to the chat (format: 7900xxx@c.us)
	SendMessage(chatID, message string) error

	// CheckState verifies the instance is authorized
	CheckState() error

	// GetProviderName returns the provider name for logging
	GetProviderName() string
}
