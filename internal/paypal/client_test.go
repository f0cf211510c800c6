package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smysle/raffle-storefront-go/internal/config"
)

func newTestServer(t *testing.T, captureStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req CreateOrderRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Intent != "CAPTURE" || req.PurchaseUnits[0].Amount.Value != "209.98" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"name":"INVALID_REQUEST","message":"bad amount"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"PP-1","status":"CREATED","links":[{"href":"https://paypal.test/approve","rel":"approve","method":"GET"}]}`))
	})
	mux.HandleFunc("/v2/checkout/orders/PP-1/capture", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(captureStatus)
		if captureStatus >= 400 {
			_, _ = w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY","message":"instrument declined"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"PP-1","status":"COMPLETED","payer":{"payer_id":"PAYER9"},
			"purchase_units":[{"amount":{"currency_code":"USD","value":"209.98"},"payments":{"captures":[{"id":"CAP-1","status":"COMPLETED"}]}}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_CreateAndCapture(t *testing.T) {
	srv := newTestServer(t, http.StatusCreated)
	client := NewClient(config.PayPalConfig{BaseURL: srv.URL, ClientID: "cid", ClientSecret: "secret"})

	order, err := client.CreateOrder(context.Background(), &CreateOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []PurchaseUnit{{
			Amount: Amount{Money: Money{CurrencyCode: "USD", Value: "209.98"}},
		}},
	})
	if err != nil {
		t.Fatalf("CreateOrder() 出错: %v", err)
	}
	if order.ID != "PP-1" || order.ApproveURL() != "https://paypal.test/approve" {
		t.Errorf("订单解析不正确: %+v", order)
	}

	captured, err := client.CaptureOrder(context.Background(), "PP-1")
	if err != nil {
		t.Fatalf("CaptureOrder() 出错: %v", err)
	}
	capture := captured.FirstCapture()
	if capture == nil || capture.ID != "CAP-1" {
		t.Fatalf("扣款记录解析不正确: %+v", captured)
	}
	if captured.Payer == nil || captured.Payer.PayerID != "PAYER9" {
		t.Errorf("付款人解析不正确: %+v", captured.Payer)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := newTestServer(t, http.StatusUnprocessableEntity)
	client := NewClient(config.PayPalConfig{BaseURL: srv.URL, ClientID: "cid", ClientSecret: "secret"})

	_, err := client.CaptureOrder(context.Background(), "PP-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("应该返回 *APIError，实际是 %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || !strings.Contains(apiErr.Message, "declined") {
		t.Errorf("APIError 内容不正确: %+v", apiErr)
	}
}

func TestClient_VerifyWebhookSignature_NoWebhookID(t *testing.T) {
	client := NewClient(config.PayPalConfig{BaseURL: "http://127.0.0.1:0"})
	if _, err := client.VerifyWebhookSignature(context.Background(), WebhookHeaders{}, []byte(`{}`)); err == nil {
		t.Error("未配置 webhook id 时应该返回错误")
	}
}
