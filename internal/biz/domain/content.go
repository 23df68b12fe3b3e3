package domain

// Content is the closed set of message payloads that can carry text.
// Only the variants declared in this file implement it.
type Content interface {
	isContent()
}

// PlainText is a simple conversation message
type PlainText struct {
	Text string
}

// ExtendedText is a text message with quote, link preview or mentions
type ExtendedText struct {
	Text string
}

// ImageCaption is the caption attached to an image
type ImageCaption struct {
	Caption string
}

// VideoCaption is the caption attached to a video
type VideoCaption struct {
	Caption string
}

// ButtonReply is the id of a selected quick-reply button
type ButtonReply struct {
	SelectedID string
}

// ListReply is the title of a selected list row
type ListReply struct {
	Title string
}

func (PlainText) isContent()    {}
func (ExtendedText) isContent() {}
func (ImageCaption) isContent() {}
func (VideoCaption) isContent() {}
func (ButtonReply) isContent()  {}
func (ListReply) isContent()    {}

// TextOf returns the text carried by c. Empty text counts as no text.
func TextOf(c Content) (string, bool) {
	var text string
	switch v := c.(type) {
	case PlainText:
		text = v.Text
	case ExtendedText:
		text = v.Text
	case ImageCaption:
		text = v.Caption
	case VideoCaption:
		text = v.Caption
	case ButtonReply:
		text = v.SelectedID
	case ListReply:
		text = v.Title
	default:
		return "", false
	}
	return text, text != ""
}
