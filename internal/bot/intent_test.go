package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopeland/leasebot/internal/catalog"
	"github.com/hopeland/leasebot/internal/compose"
	"github.com/hopeland/leasebot/internal/session"
)

func TestClassify(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	fresh := session.New("s", time.Now())
	mid := fresh
	mid.State = session.StateMenu

	tests := []struct {
		name string
		sess session.Session
		ev   Event
		want Intent
	}{
		{"greeting", mid, Event{Kind: EventText, Text: "Hi"}, Intent{Kind: IntentGreeting}},
		{"category keyword", mid, Event{Kind: EventText, Text: "1 BHK"}, Intent{Kind: IntentCategory, Category: "1bhk"}},
		{"handoff", mid, Event{Kind: EventText, Text: " Agent "}, Intent{Kind: IntentHandoff}},
		{"handoff beats first contact", fresh, Event{Kind: EventText, Text: "agent"}, Intent{Kind: IntentHandoff}},
		{"first contact noise", fresh, Event{Kind: EventText, Text: "rent?"}, Intent{Kind: IntentGreeting}},
		{"mid-flow noise", mid, Event{Kind: EventText, Text: "rent?"}, Intent{Kind: IntentUnrecognized}},
		{"empty text on new session", fresh, Event{Kind: EventText}, Intent{Kind: IntentUnrecognized}},
		{"category selection", fresh, Event{Kind: EventSelection, SelectionID: "cat_studio"}, Intent{Kind: IntentCategory, Category: "studio"}},
		{"unknown category selection", mid, Event{Kind: EventSelection, SelectionID: "cat_villa"}, Intent{Kind: IntentUnrecognized}},
		{"listing selection", mid, Event{Kind: EventSelection, SelectionID: "listing_R101"}, Intent{Kind: IntentListing, ListingID: "R101"}},
		{"listing id kept literally", mid, Event{Kind: EventSelection, SelectionID: "listing_listing_X"}, Intent{Kind: IntentListing, ListingID: "listing_X"}},
		{"unknown selection", mid, Event{Kind: EventSelection, SelectionID: "btn_yes"}, Intent{Kind: IntentUnrecognized}},
		{"selection text ignored", fresh, Event{Kind: EventSelection, Text: "hi", SelectionID: "x"}, Intent{Kind: IntentUnrecognized}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.sess, tt.ev, cat))
		})
	}
}

func TestDecideIsPure(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	comp := compose.NewComposer(cat, compose.DefaultBranding())

	s := session.New("s", time.Now())
	s.State = session.StateBrowsing
	s.ActiveCategory = "studio"

	next, plan := Decide(comp, cat, s, Intent{Kind: IntentListing, ListingID: "R102"})
	assert.Equal(t, s, next)
	require.Len(t, plan, 4)
	assert.Equal(t, StepSend, plan[0].Kind)
	assert.Equal(t, StepRecord, plan[1].Kind)
	assert.Equal(t, "R102", plan[1].Listing.ID)
	assert.Equal(t, StepDetail, plan[2].Kind)
	studio, _ := comp.ListingMenu("studio")
	assert.Equal(t, send(studio), plan[3])

	next, plan = Decide(comp, cat, s, Intent{Kind: IntentCategory, Category: "1bhk"})
	assert.Equal(t, "1bhk", next.ActiveCategory)
	assert.Equal(t, session.StateBrowsing, next.State)
	require.Len(t, plan, 1)

	next, plan = Decide(comp, cat, s, Intent{Kind: IntentHandoff})
	assert.Equal(t, session.ModeHumanHandoff, next.Mode)
	assert.Equal(t, Plan{send(comp.HandoffAck())}, plan)

	next, plan = Decide(comp, cat, s, Intent{Kind: IntentGreeting})
	assert.Equal(t, session.StateMenu, next.State)
	assert.Equal(t, "studio", next.ActiveCategory)
	assert.Equal(t, Plan{send(comp.CategoryMenu())}, plan)
}

func TestDecideUnknownCategoryCommitsNothing(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	comp := compose.NewComposer(cat, compose.DefaultBranding())
	s := session.New("s", time.Now())

	next, plan := Decide(comp, cat, s, Intent{Kind: IntentCategory, Category: "villa"})
	assert.Equal(t, s, next)
	assert.Equal(t, Plan{send(comp.CategoryMenu())}, plan)
}
