package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateLead(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"id": "recABC123"})
	}))
	defer server.Close()

	client := NewClient("tok_secret", "appBase1", "tblLeads")
	client.BaseURL = server.URL

	id, err := client.CreateLead(context.Background(), Lead{
		Name:     "Иван",
		Phone:    "+996555123456",
		Username: "996555123456@c.us",
		Category: "EVA-коврики",
		CarBrand: "Toyota",
		CarModel: "Camry (2020)",
		Options:  "С бортами 5 см",
		Price:    2800,
	})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if id != "recABC123" {
		t.Errorf("record ID = %q, want recABC123", id)
	}
	if gotPath != "/appBase1/tblLeads" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer tok_secret" {
		t.Errorf("auth header = %q", gotAuth)
	}

	fields, ok := gotBody["fields"].(map[string]interface{})
	if !ok {
		t.Fatalf("payload has no fields object: %v", gotBody)
	}
	checks := map[string]interface{}{
		"Статус":          "Новая",
		"Источник":        "WhatsApp",
		"Тип заявки":      "Заказ товара",
		"Имя клиента":     "Иван",
		"Телефон клиента": "+996555123456",
		"Автомобиль":      "Toyota Camry (2020)",
		"Детали / Опции":  "С бортами 5 см",
		"Итоговая цена":   2800.0,
	}
	for field, want := range checks {
		if fields[field] != want {
			t.Errorf("field %q = %v, want %v", field, fields[field], want)
		}
	}
}

func TestCreateLeadOmitsEmptyFields(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"id": "rec1"})
	}))
	defer server.Close()

	client := NewClient("tok", "app", "tbl")
	client.BaseURL = server.URL

	if _, err := client.CreateLead(context.Background(), Lead{Name: "Аноним"}); err != nil {
		t.Fatal(err)
	}

	fields := gotBody["fields"].(map[string]interface{})
	for _, absent := range []string{"Телефон клиента", "Автомобиль", "Итоговая цена"} {
		if _, ok := fields[absent]; ok {
			t.Errorf("empty field %q was sent anyway", absent)
		}
	}
}

func TestCreateLeadServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"INVALID_PERMISSIONS"}`, http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient("tok", "app", "tbl")
	client.BaseURL = server.URL

	if _, err := client.CreateLead(context.Background(), Lead{Name: "Иван"}); err == nil {
		t.Error("expected error on 403 response")
	}
}

func TestCreateLeadUnconfigured(t *testing.T) {
	client := NewClient("", "", "")
	if client.Configured() {
		t.Error("empty client reports configured")
	}
	if _, err := client.CreateLead(context.Background(), Lead{Name: "Иван"}); err == nil {
		t.Error("expected error when credentials are missing")
	}
}
