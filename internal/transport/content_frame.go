package transport

import (
	"fmt"

	"github.com/spec-kit/support-relay/internal/domain"
)

// ContentFrame is the JSON shape of a content item on every external surface.
type ContentFrame struct {
	Kind     domain.ContentKind `json:"kind"`
	Text     string             `json:"text,omitempty"`
	Ref      string             `json:"ref,omitempty"`
	Caption  string             `json:"caption,omitempty"`
	Filename string             `json:"filename,omitempty"`
}

// EncodeContent flattens item into its wire shape.
func EncodeContent(item domain.ContentItem) ContentFrame {
	switch v := item.(type) {
	case domain.Text:
		return ContentFrame{Kind: domain.ContentKindText, Text: v.Body}
	case domain.Image:
		return ContentFrame{Kind: domain.ContentKindImage, Ref: v.Ref, Caption: v.Caption}
	case domain.Voice:
		return ContentFrame{Kind: domain.ContentKindVoice, Ref: v.Ref}
	case domain.Document:
		return ContentFrame{Kind: domain.ContentKindDocument, Ref: v.Ref, Filename: v.Filename}
	default:
		return ContentFrame{}
	}
}

// Decode rebuilds the content item. Media kinds require a ref; text requires a body.
func (f ContentFrame) Decode() (domain.ContentItem, error) {
	switch f.Kind {
	case domain.ContentKindText, "":
		if f.Text == "" {
			return nil, fmt.Errorf("text content requires a body")
		}
		return domain.Text{Body: f.Text}, nil
	case domain.ContentKindImage:
		if f.Ref == "" {
			return nil, fmt.Errorf("image content requires a ref")
		}
		return domain.Image{Ref: f.Ref, Caption: f.Caption}, nil
	case domain.ContentKindVoice:
		if f.Ref == "" {
			return nil, fmt.Errorf("voice content requires a ref")
		}
		return domain.Voice{Ref: f.Ref}, nil
	case domain.ContentKindDocument:
		if f.Ref == "" {
			return nil, fmt.Errorf("document content requires a ref")
		}
		return domain.Document{Ref: f.Ref, Filename: f.Filename}, nil
	default:
		return nil, fmt.Errorf("unknown content kind %q", f.Kind)
	}
}
