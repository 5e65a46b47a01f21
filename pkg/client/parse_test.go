package client

import (
	"errors"
	"testing"
)

func TestParseFaceAnalysis(t *testing.T) {
	raw := "```json\n{\n  \"faces\": [\n    {\"box\": {\"x\": 0.1, \"y\": 0.2, \"w\": 0.3, \"h\": 0.4}, \"age\": 7, \"confidence\": 0.9}, // child\n  ],\n}\n```"

	result, err := ParseFaceAnalysis(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Faces) != 1 {
		t.Fatalf("Expected 1 face, got %d", len(result.Faces))
	}
	f := result.Faces[0]
	if f.Box.X != 0.1 || f.Box.Width != 0.3 || f.Box.Height != 0.4 {
		t.Errorf("Unexpected box %+v", f.Box)
	}
	if f.Age != 7 || f.Confidence == nil || *f.Confidence != 0.9 {
		t.Errorf("Unexpected age/confidence %v/%v", f.Age, f.Confidence)
	}
}

func TestParseFaceAnalysisBareArray(t *testing.T) {
	raw := `Here are the faces: [{"box":{"x":0,"y":0,"w":0.5,"h":0.5},"left_eye":[{"x":0.1,"y":0.2}],"right_eye":[{"x":0.3,"y":0.2}]}]`

	result, err := ParseFaceAnalysis(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Faces) != 1 {
		t.Fatalf("Expected 1 face, got %d", len(result.Faces))
	}
	if len(result.Faces[0].LeftEye) != 1 || result.Faces[0].RightEye[0].X != 0.3 {
		t.Errorf("Eye points not parsed: %+v", result.Faces[0])
	}
	if result.Faces[0].Confidence != nil {
		t.Errorf("Expected no confidence when the model omits it, got %v", *result.Faces[0].Confidence)
	}
}

func TestParseFaceAnalysisEmpty(t *testing.T) {
	result, err := ParseFaceAnalysis(`{"faces": []}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Faces) != 0 {
		t.Errorf("Expected no faces, got %d", len(result.Faces))
	}
}

func TestParseFaceAnalysisNoJSON(t *testing.T) {
	_, err := ParseFaceAnalysis("I can see two people smiling.")
	if !errors.Is(err, ErrNoJSON) {
		t.Errorf("Expected ErrNoJSON, got %v", err)
	}
}

func TestSanitizeModelJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a": 1,}`, `{"a": 1}`},
		{"/* note */ {\"a\": [1, 2,]}", `{"a": [1, 2]}`},
		{"prefix {\"a\": 1} suffix", `{"a": 1}`},
		{"no json here", ""},
	}

	for _, tt := range tests {
		if got := SanitizeModelJSON(tt.in); got != tt.want {
			t.Errorf("SanitizeModelJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
