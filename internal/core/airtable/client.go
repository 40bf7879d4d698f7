package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// Lead is a completed order funnel ready for the managers' pipeline.
type Lead struct {
	Name     string
	Phone    string
	Username string
	Category string
	CarBrand string
	CarModel string
	Options  string
	Price    float64
}

// Client talks to one tenant's Airtable base.
type Client struct {
	token   string
	baseID  string
	tableID string

	// BaseURL is overridable for tests
	BaseURL string

	httpClient *http.Client
}

func NewClient(token, baseID, tableID string) *Client {
	return &Client{
		token:   token,
		baseID:  baseID,
		tableID: tableID,
		BaseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Configured reports whether all credentials are present.
func (c *Client) Configured() bool {
	return c.token != "" && c.baseID != "" && c.tableID != ""
}

// CreateLead creates a record and returns its Airtable ID. Field names match
// the managers' base layout.
func (c *Client) CreateLead(ctx context.Context, lead Lead) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("airtable credentials are not configured")
	}

	fields := map[string]interface{}{
		"Статус":     "Новая",
		"Источник":   "WhatsApp",
		"Тип заявки": "Заказ товара",
	}
	if lead.Name != "" {
		fields["Имя клиента"] = lead.Name
	}
	if lead.Phone != "" {
		fields["Телефон клиента"] = lead.Phone
	}
	if lead.Username != "" {
		fields["Username"] = lead.Username
	}
	if lead.Category != "" {
		fields["Товар"] = lead.Category
	}
	if car := strings.TrimSpace(lead.CarBrand + " " + lead.CarModel); car != "" {
		fields["Автомобиль"] = car
	}
	if lead.Options != "" {
		fields["Детали / Опции"] = lead.Options
	}
	if lead.Price > 0 {
		fields["Итоговая цена"] = lead.Price
	}

	payload, err := json.Marshal(map[string]interface{}{"fields": fields})
	if err != nil {
		return "", fmt.Errorf("failed to marshal lead: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.BaseURL, c.baseID, c.tableID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("airtable request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("airtable returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode airtable response: %w", err)
	}
	return result.ID, nil
}
