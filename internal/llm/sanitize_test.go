package llm

import "testing"

func TestStripThinkingTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no_tags", "factual", "factual"},
		{"single_block", "<think>the user asks what KYC is</think>factual", "factual"},
		{"surrounding_text", "answer: <think>hmm</think> opinion", "answer:  opinion"},
		{"unclosed", "<think>never closed", ""},
		{"multiple", "<think>a</think>x<think>b</think>y", "xy"},
		{"whitespace", "  <think>a</think>  factual  ", "factual"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripThinkingTags(tt.in); got != tt.want {
				t.Errorf("StripThinkingTags(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
