// Package compose turns conversation decisions into outbound message
// descriptors, enforcing the channel's field-length limits.
package compose

// Channel limits for interactive list messages and media captions.
const (
	MaxRowTitle       = 24
	MaxRowDescription = 72
	MaxMenuBody       = 1024
	MaxMenuRows       = 10
	MaxSectionTitle   = 24
	MaxButtonLabel    = 20
	MaxTextBody       = 4096
	MaxCaption        = 1024
)

type Kind string

const (
	KindText  Kind = "text"
	KindMenu  Kind = "menu"
	KindImage Kind = "image"
)

// Message is one outbound descriptor: Text, Menu or Image.
type Message interface {
	Kind() Kind
}

type Text struct {
	Body string
}

func (Text) Kind() Kind { return KindText }

// Menu is an interactive list. Fallback, when set, is a plain-text
// rendering to send if the list itself cannot be delivered.
type Menu struct {
	Body     string
	Button   string
	Sections []Section
	Fallback string
}

func (Menu) Kind() Kind { return KindMenu }

type Section struct {
	Title string
	Rows  []Row
}

type Row struct {
	ID          string
	Title       string
	Description string
}

type Image struct {
	Payload ImagePayload
	Caption string
}

func (Image) Kind() Kind { return KindImage }

// ImagePayload references an image either by public link or by a media id
// previously uploaded to the channel.
type ImagePayload struct {
	Link    string
	MediaID string
}

func (p ImagePayload) Empty() bool {
	return p.Link == "" && p.MediaID == ""
}
