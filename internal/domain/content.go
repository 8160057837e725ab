package domain

// ContentKind names a content variant.
type ContentKind string

const (
	ContentKindText     ContentKind = "text"
	ContentKindImage    ContentKind = "image"
	ContentKindVoice    ContentKind = "voice"
	ContentKindDocument ContentKind = "document"
)

// ContentItem is one unit of submitted or relayed content. The set of
// implementations is closed: Text, Image, Voice and Document.
type ContentItem interface {
	Kind() ContentKind
	isContentItem()
}

// Text is a plain text message.
type Text struct {
	Body string
}

// Image references a picture held by the transport.
type Image struct {
	Ref     string
	Caption string
}

// Voice references a voice note held by the transport.
type Voice struct {
	Ref string
}

// Document references a file held by the transport.
type Document struct {
	Ref      string
	Filename string
}

func (Text) Kind() ContentKind     { return ContentKindText }
func (Image) Kind() ContentKind    { return ContentKindImage }
func (Voice) Kind() ContentKind    { return ContentKindVoice }
func (Document) Kind() ContentKind { return ContentKindDocument }

func (Text) isContentItem()     {}
func (Image) isContentItem()    {}
func (Voice) isContentItem()    {}
func (Document) isContentItem() {}

// Caption returns the descriptive text carried by an item, if any.
func Caption(item ContentItem) string {
	switch v := item.(type) {
	case Text:
		return v.Body
	case Image:
		return v.Caption
	case Document:
		return v.Filename
	default:
		return ""
	}
}
