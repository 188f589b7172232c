package graph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Auth   string
	Body   map[string]interface{}
}

func fakeGraph(t *testing.T, status int, response string) (*Client, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.Method = r.Method
		rec.Path = r.URL.Path
		rec.Query = map[string]string{}
		for k := range r.URL.Query() {
			rec.Query[k] = r.URL.Query().Get(k)
		}
		rec.Auth = r.Header.Get("Authorization")
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			json.Unmarshal(data, &rec.Body)
		}
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL), rec
}

func TestGetInstagramAccounts(t *testing.T) {
	c, rec := fakeGraph(t, http.StatusOK, `{"data": []}`)

	out, err := c.GetInstagramAccounts(context.Background(), "tok-1", "page-1")
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if string(out) != `{"data": []}` {
		t.Errorf("body = %s", out)
	}
	if rec.Path != "/page-1/instagram_accounts" {
		t.Errorf("path = %q", rec.Path)
	}
	if rec.Query["access_token"] != "tok-1" {
		t.Errorf("access_token = %q", rec.Query["access_token"])
	}
}

func TestGetPages(t *testing.T) {
	c, rec := fakeGraph(t, http.StatusOK, `{}`)

	if _, err := c.GetPages(context.Background(), "tok-2"); err != nil {
		t.Fatalf("err = %v", err)
	}
	if rec.Path != "/me/accounts" {
		t.Errorf("path = %q", rec.Path)
	}
}

func TestGetWhatsAppBusinessProfileUsesBearer(t *testing.T) {
	c, rec := fakeGraph(t, http.StatusOK, `{}`)

	if _, err := c.GetWhatsAppBusinessProfile(context.Background(), "tok-3", "555"); err != nil {
		t.Fatalf("err = %v", err)
	}
	if rec.Path != "/555/whatsapp_business_profile" {
		t.Errorf("path = %q", rec.Path)
	}
	if rec.Auth != "Bearer tok-3" {
		t.Errorf("auth = %q", rec.Auth)
	}
	if _, ok := rec.Query["access_token"]; ok {
		t.Error("token must not leak into the query string")
	}
}

func TestSendMessengerMessage(t *testing.T) {
	c, rec := fakeGraph(t, http.StatusOK, `{"message_id": "m.1"}`)

	if _, err := c.SendMessengerMessage(context.Background(), "tok", "page-9", "user-7", "hello"); err != nil {
		t.Fatalf("err = %v", err)
	}
	if rec.Method != http.MethodPost || rec.Path != "/page-9/messages" {
		t.Errorf("request = %s %s", rec.Method, rec.Path)
	}
	recipient, _ := rec.Body["recipient"].(map[string]interface{})
	if recipient["id"] != "user-7" {
		t.Errorf("recipient = %v", rec.Body["recipient"])
	}
	message, _ := rec.Body["message"].(map[string]interface{})
	if message["text"] != "hello" {
		t.Errorf("message = %v", rec.Body["message"])
	}
}

func TestSendWhatsAppMessageStripsFormatting(t *testing.T) {
	c, rec := fakeGraph(t, http.StatusOK, `{}`)

	if _, err := c.SendWhatsAppMessage(context.Background(), "tok", "555", "+90 (555) 123-45-67", "selam"); err != nil {
		t.Fatalf("err = %v", err)
	}
	if rec.Body["to"] != "905551234567" {
		t.Errorf("to = %v, want digits only", rec.Body["to"])
	}
	if rec.Body["messaging_product"] != "whatsapp" {
		t.Errorf("messaging_product = %v", rec.Body["messaging_product"])
	}
	if rec.Auth != "Bearer tok" {
		t.Errorf("auth = %q", rec.Auth)
	}
}

func TestNon2xxIsUpstreamError(t *testing.T) {
	c, _ := fakeGraph(t, http.StatusBadRequest, `{"error": {"message": "bad token"}}`)

	_, err := c.GetPages(context.Background(), "tok")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if ue.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", ue.StatusCode)
	}
	if ue.Body == "" {
		t.Error("expected upstream body to be captured")
	}
}

func TestDefaultBaseURL(t *testing.T) {
	c := NewClient("")
	if c.BaseURL != "https://graph.facebook.com/v18.0" {
		t.Errorf("baseURL = %q", c.BaseURL)
	}
	if c = NewClient("http://localhost:9999/"); c.BaseURL != "http://localhost:9999" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", c.BaseURL)
	}
}
