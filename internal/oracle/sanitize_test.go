package oracle

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json untouched", `{"a": 1}`, `{"a": 1}`},
		{"json fence stripped", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence stripped", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace trimmed", "  \n{\"a\": 1}\n  ", `{"a": 1}`},
		{"fence with whitespace", "  ```json\n  {\"a\": 1}\n```  ", `{"a": 1}`},
		{"empty input", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseObject(t *testing.T) {
	obj, err := ParseObject("```json\n{\"confidence_score\": 0.9}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj["confidence_score"] != 0.9 {
		t.Errorf("expected confidence_score 0.9, got %v", obj["confidence_score"])
	}
}

func TestParseObject_InvalidJSON(t *testing.T) {
	if _, err := ParseObject("not json at all"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseObject_NonObject(t *testing.T) {
	if _, err := ParseObject(`[1, 2, 3]`); err == nil {
		t.Fatal("expected error for a JSON array")
	}
	if _, err := ParseObject(`"just a string"`); err == nil {
		t.Fatal("expected error for a JSON string")
	}
}

func TestResponseContent(t *testing.T) {
	var resp ChatCompletionResponse
	if _, err := resp.Content(); err == nil {
		t.Fatal("expected error for response with no choices")
	}

	resp.Choices = append(resp.Choices, struct {
		Index   int         `json:"index"`
		Message ChatMessage `json:"message"`
		Finish  string      `json:"finish_reason"`
	}{Message: ChatMessage{Role: "assistant", Content: "   "}})
	if _, err := resp.Content(); err == nil {
		t.Fatal("expected error for blank content")
	}

	resp.Choices[0].Message.Content = `{"ok": true}`
	got, err := resp.Content()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"ok": true}` {
		t.Errorf("unexpected content %q", got)
	}
}
