package utils

import "testing"

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestExtractAndParseJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     sample
		wantErr  bool
	}{
		{
			name:     "plain JSON",
			response: `{"name":"a","count":2}`,
			want:     sample{Name: "a", Count: 2},
		},
		{
			name:     "markdown fenced",
			response: "```json\n{\"name\":\"b\",\"count\":1}\n```",
			want:     sample{Name: "b", Count: 1},
		},
		{
			name:     "leading prose",
			response: "Here is the result:\n{\"name\":\"c\",\"count\":3}",
			want:     sample{Name: "c", Count: 3},
		},
		{
			name:     "trailing text",
			response: `{"name":"d","count":4} hope that helps!`,
			want:     sample{Name: "d", Count: 4},
		},
		{
			name:     "trailing comma",
			response: `{"name":"e","count":5,}`,
			want:     sample{Name: "e", Count: 5},
		},
		{
			name:     "truncated object",
			response: `{"name":"f","count":6`,
			want:     sample{Name: "f", Count: 6},
		},
		{
			name:     "no JSON at all",
			response: "sorry, I cannot do that",
			wantErr:  true,
		},
		{
			name:     "empty response",
			response: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractAndParseJSON[sample](tt.response)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtractAndParseJSON_QuotedString(t *testing.T) {
	got, err := ExtractAndParseJSON[sample](`"{\"name\":\"g\",\"count\":7}"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "g" || got.Count != 7 {
		t.Errorf("got %+v", got)
	}
}
