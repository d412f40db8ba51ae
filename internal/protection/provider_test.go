package protection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestProviderClientSendsActionAndBearer(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ProviderResponse{OK: true, TpOrderKey: "tp-1", SlOrderKey: "sl-1"})
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL, Path: "/spot-protection", Token: "secret", Timeout: time.Second}, zerolog.Nop())
	resp, err := client.Do(context.Background(), ActionActivate, map[string]string{"positionId": "p1"})
	if err != nil {
		t.Fatalf("Do 应成功: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Fatalf("缺少 Bearer 认证头: %q", gotAuth)
	}
	if gotBody["action"] != "activate" {
		t.Fatalf("action 字段不正确: %#v", gotBody)
	}
	if !resp.OK || resp.TpOrderKey != "tp-1" || resp.SlOrderKey != "sl-1" {
		t.Fatalf("响应解析不正确: %+v", resp)
	}
}

func TestProviderClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if _, err := client.Do(context.Background(), ActionPreflight, nil); err == nil {
		t.Fatal("HTTP 502 应返回错误")
	}
}

func TestProviderClientTimeoutClamp(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, 3000 * time.Millisecond},
		{10 * time.Millisecond, 250 * time.Millisecond},
		{time.Minute, 20 * time.Second},
		{5 * time.Second, 5 * time.Second},
	}
	for _, tc := range cases {
		client := NewClient(ClientOptions{BaseURL: "http://localhost:0", Timeout: tc.in}, zerolog.Nop())
		if client.client.Timeout != tc.want {
			t.Fatalf("timeout clamp: in=%s want=%s got=%s", tc.in, tc.want, client.client.Timeout)
		}
	}
}

func TestProviderClientReconcileRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ProviderResponse{OK: true, Records: []ProviderRecord{
			{PositionID: "p1", Status: StatusActive, TpOrderKey: "tp", SlOrderKey: "sl"},
			{PositionID: "p2", Status: StatusFailed, FailureReason: "insufficient balance"},
		}})
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	resp, err := client.Do(context.Background(), ActionReconcile, map[string][]string{"positionIds": {"p1", "p2"}})
	if err != nil {
		t.Fatalf("reconcile 应成功: %v", err)
	}
	if len(resp.Records) != 2 || resp.Records[1].FailureReason != "insufficient balance" {
		t.Fatalf("records 解析不正确: %+v", resp.Records)
	}
}
