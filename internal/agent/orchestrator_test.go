package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityscout-ai/event-discovery-platform/internal/geocode"
	"github.com/cityscout-ai/event-discovery-platform/internal/llm"
	"github.com/cityscout-ai/event-discovery-platform/internal/model"
	"github.com/cityscout-ai/event-discovery-platform/internal/search"
	"github.com/cityscout-ai/event-discovery-platform/pkg/logger"
)

type fakeGeocoder struct {
	centerErr  error
	nearErr    error
	reverseErr error
	relevance  float64

	centerCalls  int
	nearQueries  []string
	reverseCalls int
}

func (f *fakeGeocoder) ResolveCityCenter(ctx context.Context, city, country string) (*model.CityCenter, error) {
	f.centerCalls++
	if f.centerErr != nil {
		return nil, f.centerErr
	}
	return model.NewCityCenter(34.6851, 33.0320, city, country, city+", "+country), nil
}

func (f *fakeGeocoder) GeocodeNear(ctx context.Context, query string, center *model.CityCenter) (*model.GeocodeResult, error) {
	f.nearQueries = append(f.nearQueries, query)
	if f.nearErr != nil {
		return nil, f.nearErr
	}
	rel := f.relevance
	if rel == 0 {
		rel = 0.9
	}
	return &model.GeocodeResult{Latitude: 34.6700, Longitude: 33.0410, PlaceName: query + ", Limassol, Cyprus", Relevance: rel}, nil
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	f.reverseCalls++
	if f.reverseErr != nil {
		return "", f.reverseErr
	}
	return "Agios Athanasios, Limassol, Cyprus", nil
}

type fakeSearcher struct {
	err    error
	events []model.Event
	calls  int
}

func (f *fakeSearcher) SearchEvents(ctx context.Context, city, country, month string, year int) ([]model.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func sampleEvents() []model.Event {
	return []model.Event{
		{Ordinal: 1, Name: "Wine Festival", Date: "Sep 5-14", Venue: "Municipal Gardens"},
		{Ordinal: 2, Name: "Harbour Regatta", Date: "Sep 12", Venue: "Old Port"},
		{Ordinal: 3, Name: "Street Food Fiesta", Date: "Sep 20", Venue: "Molos Promenade"},
	}
}

func newTestOrchestrator(g Geocoder, s EventSearcher) *Orchestrator {
	o := New(g, s, llm.RuleExtractor{}, logger.NewNop())
	o.SetClock(func() time.Time { return time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC) })
	return o
}

func TestRunTurn_AsksForLocationWhenNoneGiven(t *testing.T) {
	o := newTestOrchestrator(&fakeGeocoder{}, &fakeSearcher{events: sampleEvents()})
	conv := model.NewConversation()

	reply, err := o.RunTurn(context.Background(), &conv, "hello there", nil)
	require.NoError(t, err)
	assert.Equal(t, model.StateAwaitingLocation, conv.State)
	assert.Contains(t, reply, "Which city and country")
}

func TestRunTurn_LocationToEventList(t *testing.T) {
	g := &fakeGeocoder{}
	s := &fakeSearcher{events: sampleEvents()}
	o := newTestOrchestrator(g, s)
	conv := model.NewConversation()

	reply, err := o.RunTurn(context.Background(), &conv, "find events in Limassol, Cyprus", nil)
	require.NoError(t, err)

	// City-center resolution and event search complete in the same turn.
	assert.Equal(t, 1, g.centerCalls)
	assert.Equal(t, 1, s.calls)
	assert.Equal(t, model.StateAwaitingSelection, conv.State)
	require.Len(t, conv.Events, 3)

	assert.Contains(t, reply, "top events in Limassol for September")
	assert.Contains(t, reply, "1. Wine Festival")
	assert.Contains(t, reply, "Reply with the numbers")
}

func TestRunTurn_UnknownCity(t *testing.T) {
	g := &fakeGeocoder{centerErr: geocode.ErrNotFound}
	o := newTestOrchestrator(g, &fakeSearcher{})
	conv := model.NewConversation()

	reply, err := o.RunTurn(context.Background(), &conv, "Atlantis, Nowhere", nil)
	require.NoError(t, err)
	assert.Equal(t, model.StateAwaitingLocation, conv.State)
	assert.Contains(t, reply, "couldn't find Atlantis, Nowhere")
}

func TestRunTurn_SearchOutageThenRetry(t *testing.T) {
	g := &fakeGeocoder{}
	s := &fakeSearcher{err: search.ErrUnavailable}
	o := newTestOrchestrator(g, s)
	conv := model.NewConversation()

	reply, err := o.RunTurn(context.Background(), &conv, "Limassol, Cyprus", nil)
	require.NoError(t, err)
	// City center is kept; only the search failed.
	assert.Equal(t, model.StateHaveCityCenter, conv.State)
	require.NotNil(t, conv.CityCenter)
	assert.Contains(t, reply, "couldn't search for events")

	// Any follow-up without a new location retries the search without
	// re-geocoding.
	s.err = nil
	s.events = sampleEvents()
	reply, err = o.RunTurn(context.Background(), &conv, "try again", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, g.centerCalls)
	assert.Equal(t, 2, s.calls)
	assert.Equal(t, model.StateAwaitingSelection, conv.State)
	assert.Contains(t, reply, "1. Wine Festival")
}

func TestRunTurn_EmptySearchResults(t *testing.T) {
	o := newTestOrchestrator(&fakeGeocoder{}, &fakeSearcher{})
	conv := model.NewConversation()

	reply, err := o.RunTurn(context.Background(), &conv, "Limassol, Cyprus", nil)
	require.NoError(t, err)
	assert.Equal(t, model.StateHaveCityCenter, conv.State)
	assert.Contains(t, reply, "couldn't find any events")
}

func TestRunTurn_SelectionProducesMapLinks(t *testing.T) {
	g := &fakeGeocoder{}
	o := newTestOrchestrator(g, &fakeSearcher{events: sampleEvents()})
	conv := model.NewConversation()

	_, err := o.RunTurn(context.Background(), &conv, "Limassol, Cyprus", nil)
	require.NoError(t, err)

	reply, err := o.RunTurn(context.Background(), &conv, "1, 3", nil)
	require.NoError(t, err)

	assert.Equal(t, model.StateSelectionResolved, conv.State)
	assert.Equal(t, []string{"Municipal Gardens", "Molos Promenade"}, g.nearQueries)
	assert.Contains(t, reply, "https://www.google.com/maps?q=34.6700,33.0410")
	assert.Contains(t, reply, "1. Wine Festival (Sep 5-14)")
	assert.Contains(t, reply, "Municipal Gardens, Limassol, Cyprus")
	assert.Contains(t, reply, "3. Street Food Fiesta (Sep 20)")
	assert.NotContains(t, reply, "2. Harbour Regatta")
	// Confident matches keep the provider's label; no reverse lookup.
	assert.Zero(t, g.reverseCalls)
}

func TestRunTurn_FuzzyMatchGetsReverseGeocodedLabel(t *testing.T) {
	g := &fakeGeocoder{relevance: 0.3}
	o := newTestOrchestrator(g, &fakeSearcher{events: sampleEvents()})
	conv := model.NewConversation()

	_, err := o.RunTurn(context.Background(), &conv, "Limassol, Cyprus", nil)
	require.NoError(t, err)

	reply, err := o.RunTurn(context.Background(), &conv, "1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, g.reverseCalls)
	assert.Contains(t, reply, "Agios Athanasios, Limassol, Cyprus")
}

func TestRunTurn_ReverseGeocodeFailureKeepsProviderLabel(t *testing.T) {
	g := &fakeGeocoder{relevance: 0.3, reverseErr: geocode.ErrNotFound}
	o := newTestOrchestrator(g, &fakeSearcher{events: sampleEvents()})
	conv := model.NewConversation()

	_, err := o.RunTurn(context.Background(), &conv, "Limassol, Cyprus", nil)
	require.NoError(t, err)

	reply, err := o.RunTurn(context.Background(), &conv, "1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, g.reverseCalls)
	assert.Contains(t, reply, "Municipal Gardens, Limassol, Cyprus")
	assert.Contains(t, reply, "https://www.google.com/maps?q=34.6700,33.0410")
}

func TestRunTurn_InvalidSelectionReprompts(t *testing.T) {
	o := newTestOrchestrator(&fakeGeocoder{}, &fakeSearcher{events: sampleEvents()})
	conv := model.NewConversation()

	_, err := o.RunTurn(context.Background(), &conv, "Limassol, Cyprus", nil)
	require.NoError(t, err)

	reply, err := o.RunTurn(context.Background(), &conv, "the nicest one", nil)
	require.NoError(t, err)
	// No state change; the user is asked again.
	assert.Equal(t, model.StateAwaitingSelection, conv.State)
	assert.Contains(t, reply, "numbers between 1 and 3")
}

func TestRunTurn_OutOfRangeSelectionIsNoted(t *testing.T) {
	g := &fakeGeocoder{}
	o := newTestOrchestrator(g, &fakeSearcher{events: sampleEvents()})
	conv := model.NewConversation()

	_, err := o.RunTurn(context.Background(), &conv, "Limassol, Cyprus", nil)
	require.NoError(t, err)

	reply, err := o.RunTurn(context.Background(), &conv, "1, 9", nil)
	require.NoError(t, err)
	assert.Equal(t, model.StateSelectionResolved, conv.State)
	assert.Equal(t, []string{"Municipal Gardens"}, g.nearQueries)
	assert.Contains(t, reply, "9 didn't match any listed event")
}

func TestRunTurn_VenueGeocodeFailureIsPerVenue(t *testing.T) {
	g := &fakeGeocoder{nearErr: geocode.ErrNotFound}
	o := newTestOrchestrator(g, &fakeSearcher{events: sampleEvents()})
	conv := model.NewConversation()

	_, err := o.RunTurn(context.Background(), &conv, "Limassol, Cyprus", nil)
	require.NoError(t, err)

	reply, err := o.RunTurn(context.Background(), &conv, "2", nil)
	require.NoError(t, err)
	assert.Equal(t, model.StateSelectionResolved, conv.State)
	assert.Contains(t, reply, "couldn't locate this venue")
}

func TestRunTurn_NewLocationRestartsWorkflow(t *testing.T) {
	g := &fakeGeocoder{}
	s := &fakeSearcher{events: sampleEvents()}
	o := newTestOrchestrator(g, s)
	conv := model.NewConversation()

	_, err := o.RunTurn(context.Background(), &conv, "Limassol, Cyprus", nil)
	require.NoError(t, err)
	_, err = o.RunTurn(context.Background(), &conv, "1", nil)
	require.NoError(t, err)
	require.Equal(t, model.StateSelectionResolved, conv.State)

	_, err = o.RunTurn(context.Background(), &conv, "Lyon, France", nil)
	require.NoError(t, err)
	assert.Equal(t, model.StateAwaitingSelection, conv.State)
	assert.Equal(t, "Lyon", conv.CityCenter.City)
	assert.Equal(t, 2, g.centerCalls)
}

func TestRunTurn_EmitMatchesReply(t *testing.T) {
	o := newTestOrchestrator(&fakeGeocoder{}, &fakeSearcher{events: sampleEvents()})
	conv := model.NewConversation()

	var b strings.Builder
	reply, err := o.RunTurn(context.Background(), &conv, "Limassol, Cyprus", func(chunk string) {
		b.WriteString(chunk)
	})
	require.NoError(t, err)
	assert.Equal(t, reply, b.String())
}
