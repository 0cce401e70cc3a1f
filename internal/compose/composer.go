package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/hopeland/leasebot/internal/catalog"
)

// ImageResolver turns a catalog image reference into something the channel
// can send. ok is false when the reference cannot be resolved.
type ImageResolver interface {
	Resolve(ctx context.Context, ref string) (payload ImagePayload, ok bool)
}

type ImageResolverFunc func(ctx context.Context, ref string) (ImagePayload, bool)

func (f ImageResolverFunc) Resolve(ctx context.Context, ref string) (ImagePayload, bool) {
	return f(ctx, ref)
}

// Branding carries the business details woven into replies.
type Branding struct {
	Name     string // "HOPELAND Real Estates"
	Tagline  string // shown under the name in the category menu
	Locality string // "Muither"
	Property string // suffix of listing section titles, "Muither Villa"
	Contact  string // phone number on the contact card
}

func DefaultBranding() Branding {
	return Branding{
		Name:     "HOPELAND Real Estates",
		Tagline:  "Muither, Qatar — quality units in a well-kept villa.",
		Locality: "Muither",
		Property: "Muither Villa",
		Contact:  "+974-55555555",
	}
}

// Composer builds message descriptors from catalog data. It holds no
// mutable state.
type Composer struct {
	catalog *catalog.Catalog
	brand   Branding
}

func NewComposer(c *catalog.Catalog, brand Branding) *Composer {
	return &Composer{catalog: c, brand: brand}
}

// CategoryID is the structured-reply id of a category row.
func CategoryID(key string) string {
	return "cat_" + key
}

// ListingID is the structured-reply id of a listing row.
func ListingID(id string) string {
	return "listing_" + id
}

// CategoryMenu offers every catalog category.
func (c *Composer) CategoryMenu() Menu {
	cats := c.catalog.Categories()
	rows := make([]Row, 0, len(cats))
	titles := make([]string, 0, len(cats))
	for _, cat := range cats {
		rows = append(rows, Row{
			ID:          CategoryID(cat.Key),
			Title:       Truncate(cat.Title, MaxRowTitle),
			Description: Truncate(cat.Summary, MaxRowDescription),
		})
		titles = append(titles, cat.Title)
	}

	body := fmt.Sprintf("Welcome to *%s*.\n%s\n\nWhat are you looking for today?", c.brand.Name, c.brand.Tagline)

	var fb strings.Builder
	fb.WriteString("Categories:\n")
	for _, t := range titles {
		fmt.Fprintf(&fb, "• %s\n", t)
	}
	fmt.Fprintf(&fb, "Type %s to continue.", joinOr(titles))

	return Menu{
		Body:   Truncate(body, MaxMenuBody),
		Button: Truncate("Browse", MaxButtonLabel),
		Sections: []Section{{
			Title: Truncate("Select a category", MaxSectionTitle),
			Rows:  capRows(rows),
		}},
		Fallback: Truncate(fb.String(), MaxTextBody),
	}
}

// ListingMenu lists the units of one category in catalog order.
func (c *Composer) ListingMenu(key string) (Menu, error) {
	cat, err := c.catalog.Category(key)
	if err != nil {
		return Menu{}, err
	}

	rows := make([]Row, 0, len(cat.Listings))
	var fb strings.Builder
	fmt.Fprintf(&fb, "%s listings:\n", cat.Title)
	for _, l := range cat.Listings {
		rows = append(rows, Row{
			ID:          ListingID(l.ID),
			Title:       Truncate(l.ID+" "+cat.Title, MaxRowTitle),
			Description: Truncate(l.Title+" — "+l.Description, MaxRowDescription),
		})
		fmt.Fprintf(&fb, "• %s — %s\n", l.ID, Truncate(l.Title, 32))
	}
	fb.WriteString("Type *menu* to return to categories.")

	body := fmt.Sprintf("We have the following listings for *%s*. Select an option to see photos.", cat.Title)
	if len(rows) > MaxMenuRows {
		body += fmt.Sprintf("\n\nShowing %d of %d. Type *agent* and our team will share the rest.", MaxMenuRows, len(rows))
	}
	section := cat.Title
	if c.brand.Property != "" {
		section += " " + c.brand.Property
	}

	return Menu{
		Body:   Truncate(body, MaxMenuBody),
		Button: Truncate("View options", MaxButtonLabel),
		Sections: []Section{{
			Title: Truncate(section, MaxSectionTitle),
			Rows:  capRows(rows),
		}},
		Fallback: Truncate(fb.String(), MaxTextBody),
	}, nil
}

// ListingDetail returns the contact card, then (when the listing has
// images) a photo intro and one Image per resolvable reference, then the
// navigation nudge. References the resolver rejects are skipped.
func (c *Composer) ListingDetail(ctx context.Context, l catalog.Listing, resolver ImageResolver) []Message {
	msgs := make([]Message, 0, len(l.Images)+3)
	msgs = append(msgs, c.ContactCard(l))

	if len(l.Images) > 0 {
		msgs = append(msgs, text(fmt.Sprintf("Here are a few photos of *Unit %s*.", l.ID)))
		for i, ref := range l.Images {
			if resolver == nil {
				break
			}
			payload, ok := resolver.Resolve(ctx, ref)
			if !ok || payload.Empty() {
				continue
			}
			msgs = append(msgs, Image{
				Payload: payload,
				Caption: Truncate(fmt.Sprintf("Unit %s — photo %d", l.ID, i+1), MaxCaption),
			})
		}
	}

	return append(msgs, c.Nudge())
}

func (c *Composer) ContactCard(l catalog.Listing) Text {
	where := ""
	if c.brand.Locality != "" {
		where = ", " + c.brand.Locality
	}
	return text(fmt.Sprintf(
		"Thanks for your interest in *%s* (Unit *%s*%s).\n"+
			"For the quickest details and booking, please *call* us on *%s*.\n"+
			"Kindly mention *Unit %s* so we can assist immediately.",
		l.Title, l.ID, where, c.brand.Contact, l.ID))
}

func (c *Composer) Nudge() Text {
	return text("To keep browsing, type *menu* to return to categories.")
}

// SelectionEcho confirms which unit the subject picked.
func (c *Composer) SelectionEcho(l catalog.Listing) Text {
	return text(fmt.Sprintf("You selected:\n*%s*\n\n%s", l.Title, l.Description))
}

func (c *Composer) Unavailable() Text {
	return text("Sorry, that listing is unavailable. Please choose another option.")
}

func (c *Composer) HandoffAck() Text {
	return text("Thanks. A leasing specialist will join shortly.")
}

// capRows keeps the first MaxMenuRows rows; a list message carrying more
// is rejected by the channel.
func capRows(rows []Row) []Row {
	if len(rows) > MaxMenuRows {
		return rows[:MaxMenuRows]
	}
	return rows
}

func text(body string) Text {
	return Text{Body: Truncate(body, MaxTextBody)}
}

func joinOr(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "*" + s + "*"
	}
	switch len(quoted) {
	case 0:
		return "*menu*"
	case 1:
		return quoted[0]
	default:
		return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
	}
}
