package domain

// BlockType tags the content block variants of a structured message.
type BlockType string

const (
	BlockSection BlockType = "section"
	BlockDivider BlockType = "divider"
	BlockContext BlockType = "context"
)

// MarkdownText is a markdown text object inside a block.
type MarkdownText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ImageAccessory is an image attached to the side of a section block.
type ImageAccessory struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
	AltText  string `json:"alt_text"`
}

// Block is one ordered content block of a structured message. Type decides
// which of the remaining fields are set: sections carry Text and optionally
// Accessory, contexts carry Elements, dividers carry nothing. The JSON shape
// matches the Slack Block Kit wire format so stored payloads repost verbatim.
type Block struct {
	Type      BlockType       `json:"type"`
	Text      *MarkdownText   `json:"text,omitempty"`
	Accessory *ImageAccessory `json:"accessory,omitempty"`
	Elements  []MarkdownText  `json:"elements,omitempty"`
}

// NewSectionBlock builds a markdown section, optionally with an image.
func NewSectionBlock(markdown string, imageURL string) Block {
	b := Block{
		Type: BlockSection,
		Text: &MarkdownText{Type: "mrkdwn", Text: markdown},
	}
	if imageURL != "" {
		b.Accessory = &ImageAccessory{
			Type:     "image",
			ImageURL: imageURL,
			AltText:  "Product image",
		}
	}
	return b
}

// NewDividerBlock builds a divider.
func NewDividerBlock() Block {
	return Block{Type: BlockDivider}
}

// NewContextBlock builds a context block from markdown elements.
func NewContextBlock(elements ...string) Block {
	texts := make([]MarkdownText, 0, len(elements))
	for _, el := range elements {
		texts = append(texts, MarkdownText{Type: "mrkdwn", Text: el})
	}
	return Block{Type: BlockContext, Elements: texts}
}

// StructuredMessage is the channel-agnostic notification: fallback text plus
// ordered content blocks. CorrelationID always equals the enriched record's
// primary id so stored deliveries can be traced back and resent.
type StructuredMessage struct {
	Text          string  `json:"text"`
	Blocks        []Block `json:"blocks"`
	CorrelationID string  `json:"correlation_id"`
}
