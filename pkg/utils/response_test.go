package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusBadRequest, "Please upload at least one image")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Please upload at least one image"}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestRespondDetailAndFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondDetail(rec, http.StatusUnauthorized, "Not found.")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"detail":"Not found."}` {
		t.Fatalf("unexpected body %s", got)
	}

	rec = httptest.NewRecorder()
	RespondFieldErrors(rec, map[string][]string{"username": {"This field may not be blank."}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"username":["This field may not be blank."]}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestDecodeJSONLimit(t *testing.T) {
	var dst map[string]string

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"hi"}`))
	if err := DecodeJSON(httptest.NewRecorder(), req, 1024, &dst); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dst["text"] != "hi" {
		t.Fatalf("unexpected value %v", dst)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"`+strings.Repeat("x", 64)+`"}`))
	if err := DecodeJSON(httptest.NewRecorder(), req, 16, &dst); err == nil {
		t.Fatal("expected oversized body to fail")
	}
}
