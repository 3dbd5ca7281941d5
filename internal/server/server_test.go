package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/scmtools/textveil/internal/config"
	"github.com/scmtools/textveil/internal/logger"
)

func testServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()

	cfg := config.GetDefaults()
	cfg.Events.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	s, err := New(cfg, &logger.Logger{Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return s
}

func postAnonymize(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/anonymize", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandleInfo(t *testing.T) {
	s := testServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info["name"] != "textveil" {
		t.Errorf("name = %v", info["name"])
	}
	if info["case_insensitive"] != true {
		t.Errorf("case_insensitive = %v, want true", info["case_insensitive"])
	}
}

func TestHandleAnonymize(t *testing.T) {
	t.Run("FullRequest", func(t *testing.T) {
		s := testServer(t, nil)
		rec := postAnonymize(t, s, `{"text":"Kim met Lee at 9:30 and paid 500","targets":["Kim"]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var resp anonymizeResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(resp.Text, "9:30") {
			t.Errorf("time value lost: %q", resp.Text)
		}
		if strings.Contains(strings.ToLower(resp.Text), "kim") {
			t.Errorf("keyword survived: %q", resp.Text)
		}
		if !strings.Contains(resp.Text, "NUM_1") {
			t.Errorf("number not replaced: %q", resp.Text)
		}
		if resp.Keywords != 1 || resp.Numbers != 1 {
			t.Errorf("counts = %d keywords %d numbers, want 1 and 1", resp.Keywords, resp.Numbers)
		}
		if len(resp.Entries) != 2 {
			t.Errorf("entries = %d, want 2", len(resp.Entries))
		}
	})

	t.Run("NumbersCanBeDisabledPerRequest", func(t *testing.T) {
		s := testServer(t, nil)
		rec := postAnonymize(t, s, `{"text":"Kim paid 500","targets":["Kim"],"anonymize_numbers":false}`)

		var resp anonymizeResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(resp.Text, "500") {
			t.Errorf("number should be untouched: %q", resp.Text)
		}
		if resp.Numbers != 0 {
			t.Errorf("numbers = %d, want 0", resp.Numbers)
		}
	})

	t.Run("InvalidBody", func(t *testing.T) {
		s := testServer(t, nil)
		if rec := postAnonymize(t, s, `{not json`); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("NothingToAnonymize", func(t *testing.T) {
		s := testServer(t, nil)
		rec := postAnonymize(t, s, `{"text":"hello","anonymize_numbers":false}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("EmptyMappingStillSucceeds", func(t *testing.T) {
		s := testServer(t, nil)
		rec := postAnonymize(t, s, `{"text":"nothing sensitive here","targets":["absent"]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp anonymizeResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Text != "nothing sensitive here" {
			t.Errorf("text changed: %q", resp.Text)
		}
		if len(resp.Entries) != 0 {
			t.Errorf("entries = %v, want none", resp.Entries)
		}
	})
}

func TestRateLimit(t *testing.T) {
	s := testServer(t, func(cfg *config.Config) {
		cfg.Server.RateLimit.Enabled = true
		cfg.Server.RateLimit.RequestsPerSecond = 1
		cfg.Server.RateLimit.Burst = 1
	})

	body := `{"text":"Kim","targets":["Kim"]}`
	send := func(clientIP string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/anonymize", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", clientIP)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("SecondRequestRejected", func(t *testing.T) {
		if code := send("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("first request status = %d", code)
		}
		// The bucket must survive across requests for the burst to run out.
		if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
			t.Errorf("second request status = %d, want 429", code)
		}
	})

	t.Run("OtherClientsUnaffected", func(t *testing.T) {
		if code := send("10.0.0.2"); code != http.StatusOK {
			t.Errorf("fresh client status = %d, want 200", code)
		}
	})
}

func TestUpdateEngineDefaults(t *testing.T) {
	s := testServer(t, nil)

	s.UpdateEngineDefaults(config.EngineConfig{CaseInsensitive: false, AnonymizeNumbers: false})

	// With numbers now off by default and no override, bare numbers survive.
	rec := postAnonymize(t, s, `{"text":"Kim paid 500","targets":["Kim"]}`)
	var resp anonymizeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "500") {
		t.Errorf("number should be untouched after defaults update: %q", resp.Text)
	}
}
