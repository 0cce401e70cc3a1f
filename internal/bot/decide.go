package bot

import (
	"github.com/hopeland/leasebot/internal/catalog"
	"github.com/hopeland/leasebot/internal/compose"
	"github.com/hopeland/leasebot/internal/session"
)

type StepKind int

const (
	// StepSend delivers Message as is.
	StepSend StepKind = iota
	// StepRecord hands an enquiry for Listing to the recorder.
	StepRecord
	// StepDetail composes and delivers Listing's detail sequence.
	StepDetail
)

type Step struct {
	Kind    StepKind
	Message compose.Message
	Listing catalog.Listing
}

// Plan is the ordered work for one inbound event.
type Plan []Step

func send(m compose.Message) Step {
	return Step{Kind: StepSend, Message: m}
}

// Decide computes the next session and the plan for an intent. It performs
// no I/O; image resolution and delivery happen when the plan runs.
func Decide(comp *compose.Composer, cat *catalog.Catalog, s session.Session, in Intent) (session.Session, Plan) {
	next := s

	switch in.Kind {
	case IntentGreeting:
		next.State = session.StateMenu
		return next, Plan{send(comp.CategoryMenu())}

	case IntentCategory:
		menu, err := comp.ListingMenu(in.Category)
		if err != nil {
			return s, fallback(comp, s)
		}
		next.State = session.StateBrowsing
		next.ActiveCategory = in.Category
		return next, Plan{send(menu)}

	case IntentHandoff:
		next.Mode = session.ModeHumanHandoff
		return next, Plan{send(comp.HandoffAck())}

	case IntentListing:
		l, ok := cat.Listing(in.ListingID)
		if !ok {
			return s, Plan{send(comp.Unavailable())}
		}
		plan := Plan{
			send(comp.SelectionEcho(l)),
			{Kind: StepRecord, Listing: l},
			{Kind: StepDetail, Listing: l},
		}
		if s.ActiveCategory != "" {
			if menu, err := comp.ListingMenu(s.ActiveCategory); err == nil {
				plan = append(plan, send(menu))
			}
		}
		return s, plan
	}

	return s, fallback(comp, s)
}

// fallback re-offers the last browsed category, or the category menu.
func fallback(comp *compose.Composer, s session.Session) Plan {
	if s.ActiveCategory != "" {
		if menu, err := comp.ListingMenu(s.ActiveCategory); err == nil {
			return Plan{send(menu)}
		}
	}
	return Plan{send(comp.CategoryMenu())}
}
