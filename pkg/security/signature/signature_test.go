package signature

import (
	"net/http/httptest"
	"testing"
)

// ============================================================================
// Header extraction
// ============================================================================

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/completions", nil)
	req.Header.Set(HeaderSignature, "c2lnbmF0dXJl")
	req.Header.Set(HeaderCost, "128")
	req.Header.Set(HeaderEndpoint, "llama-70b-chat")
	req.Header.Set(HeaderReqnum, "7")
	req.Header.Set(HeaderURL, "https://worker-7.example.net:8443")

	sig := FromRequest(req)
	if sig.Signature != "c2lnbmF0dXJl" {
		t.Errorf("unexpected signature %q", sig.Signature)
	}
	if sig.Cost != "128" || sig.Endpoint != "llama-70b-chat" || sig.Reqnum != "7" {
		t.Errorf("unexpected auth fields: %+v", sig)
	}
	if sig.URL != "https://worker-7.example.net:8443" {
		t.Errorf("unexpected url %q", sig.URL)
	}
}

func TestStripHeaders(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/completions", nil)
	req.Header.Set(HeaderSignature, "sig")
	req.Header.Set(HeaderCost, "128")
	req.Header.Set(HeaderEndpoint, "ep")
	req.Header.Set(HeaderReqnum, "7")
	req.Header.Set(HeaderURL, "u")
	req.Header.Set("Authorization", "Bearer backend-token")
	req.Header.Set("Content-Type", "application/json")

	StripHeaders(req.Header)

	for _, name := range authHeaders {
		if got := req.Header.Get(name); got != "" {
			t.Errorf("expected %s stripped, got %q", name, got)
		}
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Error("non-auth headers must survive stripping")
	}
	if req.Header.Get("Authorization") != "Bearer backend-token" {
		t.Error("the client Authorization header is not ours to strip")
	}
}

// ============================================================================
// Signed message and cost
// ============================================================================

func TestMessage_JoinsReceivedValues(t *testing.T) {
	sig := Signature{
		Cost:     "100",
		Endpoint: "sdxl",
		Reqnum:   "42",
		URL:      "http://10.0.0.7:3000",
	}

	want := "100\nsdxl\n42\nhttp://10.0.0.7:3000"
	if got := string(sig.Message()); got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
}

func TestMessage_EmptyFieldsKeepTheirPosition(t *testing.T) {
	sig := Signature{Reqnum: "42"}
	if got := string(sig.Message()); got != "\n\n42\n" {
		t.Errorf("Message() = %q, want %q", got, "\n\n42\n")
	}
}

func TestDeclaredCost(t *testing.T) {
	tests := []struct {
		name string
		cost string
		want float64
	}{
		{"missing header", "", 0},
		{"unparseable", "lots", 0},
		{"integer", "100", 100},
		{"fractional", "2.5", 2.5},
		{"negative passes through", "-3", -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Signature{Cost: tt.cost}
			if got := sig.DeclaredCost(); got != tt.want {
				t.Errorf("DeclaredCost(%q) = %v, want %v", tt.cost, got, tt.want)
			}
		})
	}
}
