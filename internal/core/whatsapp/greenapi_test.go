package whatsapp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendMessageSanitizesAndPosts(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"idMessage":"msg1"}`))
	}))
	defer server.Close()

	sender := NewGreenAPISender("7107000001", "tok123", server.URL)
	if err := sender.SendMessage("996555000001@c.us", "<b>Итого</b>: 2800"); err != nil {
		t.Fatal(err)
	}

	if gotPath != "/waInstance7107000001/sendMessage/tok123" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["chatId"] != "996555000001@c.us" {
		t.Errorf("chatId = %q", gotBody["chatId"])
	}
	if gotBody["message"] != "*Итого*: 2800" {
		t.Errorf("message = %q, want sanitized text", gotBody["message"])
	}
}

func TestSendMessageNon200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "instance not authorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	sender := NewGreenAPISender("7107000001", "tok123", server.URL)
	if err := sender.SendMessage("996555000001@c.us", "привет"); err == nil {
		t.Error("expected error on 401")
	}
}

func TestCheckState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/waInstance7107000001/getStateInstance/tok123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"stateInstance": "authorized"})
	}))
	defer server.Close()

	sender := NewGreenAPISender("7107000001", "tok123", server.URL)
	if err := sender.CheckState(); err != nil {
		t.Errorf("CheckState: %v", err)
	}
}
