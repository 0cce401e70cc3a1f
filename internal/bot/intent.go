package bot

import (
	"strings"

	"github.com/hopeland/leasebot/internal/catalog"
	"github.com/hopeland/leasebot/internal/session"
)

type EventKind string

const (
	EventText      EventKind = "text"
	EventSelection EventKind = "selection"
)

// Event is one inbound message after the webhook layer has parsed it.
type Event struct {
	SubjectID   string
	DisplayName string
	Kind        EventKind
	Text        string
	SelectionID string
}

type IntentKind int

const (
	IntentUnrecognized IntentKind = iota
	IntentGreeting
	IntentCategory
	IntentHandoff
	IntentListing
)

func (k IntentKind) String() string {
	switch k {
	case IntentGreeting:
		return "greeting"
	case IntentCategory:
		return "category"
	case IntentHandoff:
		return "handoff"
	case IntentListing:
		return "listing"
	default:
		return "unrecognized"
	}
}

// Intent is what an inbound event asks for. Category is set for
// IntentCategory, ListingID for IntentListing.
type Intent struct {
	Kind      IntentKind
	Category  string
	ListingID string
}

const (
	categoryPrefix = "cat_"
	listingPrefix  = "listing_"
	handoffKeyword = "agent"
)

var greetings = map[string]bool{
	"hi":    true,
	"hello": true,
	"hey":   true,
	"start": true,
	"menu":  true,
}

type matcher func(s session.Session, ev Event, text string, c *catalog.Catalog) (Intent, bool)

// matchers run in priority order; the first match wins.
var matchers = []matcher{
	matchGreeting,
	matchCategoryKeyword,
	matchHandoff,
	matchFirstContact,
	matchCategorySelection,
	matchListingSelection,
}

// Classify maps an event to an intent for the subject's current session.
// Handoff-mode sessions are filtered out before classification.
func Classify(s session.Session, ev Event, c *catalog.Catalog) Intent {
	text := ""
	if ev.Kind == EventText {
		text = strings.ToLower(strings.TrimSpace(ev.Text))
	}
	for _, m := range matchers {
		if in, ok := m(s, ev, text, c); ok {
			return in
		}
	}
	return Intent{Kind: IntentUnrecognized}
}

func matchGreeting(_ session.Session, _ Event, text string, _ *catalog.Catalog) (Intent, bool) {
	if greetings[text] {
		return Intent{Kind: IntentGreeting}, true
	}
	return Intent{}, false
}

func matchCategoryKeyword(_ session.Session, _ Event, text string, c *catalog.Catalog) (Intent, bool) {
	if text == "" {
		return Intent{}, false
	}
	if key, ok := c.MatchKeyword(text); ok {
		return Intent{Kind: IntentCategory, Category: key}, true
	}
	return Intent{}, false
}

func matchHandoff(_ session.Session, _ Event, text string, _ *catalog.Catalog) (Intent, bool) {
	if text == handoffKeyword {
		return Intent{Kind: IntentHandoff}, true
	}
	return Intent{}, false
}

// First-contact noise gets the category menu; the same text mid-flow falls
// through to the fallback instead.
func matchFirstContact(s session.Session, _ Event, text string, _ *catalog.Catalog) (Intent, bool) {
	if text != "" && s.State == session.StateNew {
		return Intent{Kind: IntentGreeting}, true
	}
	return Intent{}, false
}

func matchCategorySelection(_ session.Session, ev Event, _ string, c *catalog.Catalog) (Intent, bool) {
	if ev.Kind != EventSelection {
		return Intent{}, false
	}
	key, ok := strings.CutPrefix(ev.SelectionID, categoryPrefix)
	if !ok || !c.HasCategory(key) {
		return Intent{}, false
	}
	return Intent{Kind: IntentCategory, Category: key}, true
}

func matchListingSelection(_ session.Session, ev Event, _ string, _ *catalog.Catalog) (Intent, bool) {
	if ev.Kind != EventSelection {
		return Intent{}, false
	}
	id, ok := strings.CutPrefix(ev.SelectionID, listingPrefix)
	if !ok {
		return Intent{}, false
	}
	return Intent{Kind: IntentListing, ListingID: id}, true
}
