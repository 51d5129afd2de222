package valueobject

import "strings"

// ContentKind distinguishes the shape of a Message's content, grounded on
// the teacher's valueobject.MessageContent (text vs. richer payloads).
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
	ContentMixed ContentKind = "mixed"
)

// MessageContent wraps a message body and classifies it. Image content is
// always carried as a data URI, never a bare file path, so a stored
// Message never implicitly depends on local filesystem state.
type MessageContent struct {
	kind ContentKind
	text string
}

// NewTextContent builds a plain-text MessageContent.
func NewTextContent(text string) MessageContent {
	return MessageContent{kind: ContentText, text: text}
}

// NewImageContent wraps a data URI (e.g. "data:image/png;base64,...").
func NewImageContent(dataURI string) MessageContent {
	return MessageContent{kind: ContentImage, text: dataURI}
}

// Kind returns the content's classification.
func (c MessageContent) Kind() ContentKind { return c.kind }

// Text returns the raw text or data URI.
func (c MessageContent) Text() string { return c.text }

// IsDataURI reports whether the content is an embedded data URI.
func (c MessageContent) IsDataURI() bool {
	return c.kind == ContentImage && strings.HasPrefix(c.text, "data:")
}
