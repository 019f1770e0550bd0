package onebot

import (
	"fmt"
	"path/filepath"
)

// Segment is one element of a OneBot v11 message array.
type Segment struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data"`
}

// Text builds a plain-text segment.
func Text(text string) Segment {
	return Segment{Type: "text", Data: map[string]string{"text": text}}
}

// Image builds an image segment referencing a local file. OneBot resolves
// file URIs on its own host, so the path is made absolute first.
func Image(path string) (Segment, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Segment{}, fmt.Errorf("resolve image path %s: %w", path, err)
	}
	return Segment{Type: "image", Data: map[string]string{"file": "file://" + abs}}, nil
}
