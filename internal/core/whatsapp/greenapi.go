package whatsapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// GreenAPISender sends messages through one GreenAPI instance. Each tenant
// owns its own instance and therefore its own sender.
type GreenAPISender struct {
	instanceID string
	token      string
	baseURL    string
	client     *http.Client
}

func NewGreenAPISender(instanceID, token, baseURL string) *GreenAPISender {
	return &GreenAPISender{
		instanceID: instanceID,
		token:      token,
		baseURL:    baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (g *GreenAPISender) GetProviderName() string {
	return "GreenAPI"
}

// CheckState asks GreenAPI whether the instance is authorized. Used at
// startup for an early warning, not as a hard failure.
func (g *GreenAPISender) CheckState() error {
	endpoint := fmt.Sprintf("%s/waInstance%s/getStateInstance/%s", g.baseURL, g.instanceID, g.token)

	resp, err := g.client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("failed to reach Green API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Green API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		StateInstance string `json:"stateInstance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result.StateInstance != "authorized" {
		log.Printf("⚠️ Green API instance %s not authorized (state: %s)", g.instanceID, result.StateInstance)
		log.Println("💡 Please scan QR code via the Green API dashboard")
	} else {
		log.Printf("✅ Green API instance %s authorized", g.instanceID)
	}

	return nil
}

// SendMessage posts a text message. Every outbound text is run through the
// WhatsApp sanitizer first so HTML leaking out of the assistant never reaches
// the user raw.
func (g *GreenAPISender) SendMessage(chatID, message string) error {
	cleaned := SanitizeForWhatsApp(message)

	endpoint := fmt.Sprintf("%s/waInstance%s/sendMessage/%s", g.baseURL, g.instanceID, g.token)

	payload := map[string]interface{}{
		"chatId":  chatID,
		"message": cleaned,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := g.client.Post(endpoint, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Green API returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
