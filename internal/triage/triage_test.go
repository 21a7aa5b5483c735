package triage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLocalAnalyzer(t *testing.T) {
	tests := []struct {
		name          string
		symptoms      string
		wantSpecialty string
	}{
		{name: "cardiac keywords", symptoms: "I have chest pain and high blood pressure", wantSpecialty: "Cardiologist"},
		{name: "skin keywords", symptoms: "itching skin with a rash", wantSpecialty: "Dermatologist"},
		{name: "neuro keywords", symptoms: "terrible migraine and headache", wantSpecialty: "Neurologist"},
		{name: "case insensitive", symptoms: "STOMACH hurts near my ABDOMEN", wantSpecialty: "Gastroenterologist"},
		{name: "no keywords falls back", symptoms: "i feel strange", wantSpecialty: "General Physician"},
		{name: "tie goes to earlier specialty", symptoms: "heart and skin", wantSpecialty: "Cardiologist"},
	}
	analyzer := NewLocalAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := analyzer.Analyze(context.Background(), tt.symptoms)
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			if result.Specialty != tt.wantSpecialty {
				t.Fatalf("specialty = %q, want %q", result.Specialty, tt.wantSpecialty)
			}
			if !strings.Contains(result.Recommendation, tt.wantSpecialty) {
				t.Fatalf("recommendation %q does not name the specialty", result.Recommendation)
			}
		})
	}
}

func TestClientAnalyze(t *testing.T) {
	var seenPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"recommendation":"See a Cardiologist.","specialty":"Cardiologist"}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("client init failed: %v", err)
	}

	result, err := client.Analyze(context.Background(), "chest pain")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if result.Specialty != "Cardiologist" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if seenPath != "/analyze_symptoms" {
		t.Fatalf("unexpected path %s", seenPath)
	}
}

func TestClientAnalyze_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("client init failed: %v", err)
	}
	if _, err := client.Analyze(context.Background(), "chest pain"); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestHandlerAnalyze(t *testing.T) {
	handler := NewHandler(NewLocalAnalyzer(), nil)

	req := httptest.NewRequest(http.MethodPost, "/analyze_symptoms", strings.NewReader(`{"symptoms":"chest pain"}`))
	rec := httptest.NewRecorder()
	handler.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"specialty":"Cardiologist"`) {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestHandlerAnalyze_BadRequest(t *testing.T) {
	handler := NewHandler(NewLocalAnalyzer(), nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{`},
		{name: "missing symptoms", body: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/analyze_symptoms", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.Analyze(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}
