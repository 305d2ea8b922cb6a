package api

import "testing"

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  \n```json {\"a\":1}```  ", `{"a":1}`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanJSON(tt.in); got != tt.want {
			t.Errorf("CleanJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Title string `json:"title"`
	}
	if err := DecodeJSON("```json\n{\"title\":\"Uno\"}\n```", &v); err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if v.Title != "Uno" {
		t.Errorf("Title = %q, want Uno", v.Title)
	}
	if err := DecodeJSON("   ", &v); err == nil {
		t.Error("DecodeJSON(empty) should fail")
	}
	if err := DecodeJSON("not json", &v); err == nil {
		t.Error("DecodeJSON(garbage) should fail")
	}
}
