// Package agent drives the six-step event discovery workflow: location
// clarification, city-center geocoding, event search, selection, venue
// geocoding, and map-link generation.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cityscout-ai/event-discovery-platform/internal/geocode"
	"github.com/cityscout-ai/event-discovery-platform/internal/llm"
	"github.com/cityscout-ai/event-discovery-platform/internal/model"
	"github.com/cityscout-ai/event-discovery-platform/internal/search"
	"github.com/cityscout-ai/event-discovery-platform/pkg/logger"
)

// Geocoder is the geocoding tool surface consumed by the orchestrator.
type Geocoder interface {
	ResolveCityCenter(ctx context.Context, city, country string) (*model.CityCenter, error)
	GeocodeNear(ctx context.Context, query string, center *model.CityCenter) (*model.GeocodeResult, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// fuzzyRelevance is the provider-relevance floor below which a venue match
// is labeled with a reverse-geocoded place name, so the user can see where
// the pin actually landed.
const fuzzyRelevance = 0.5

// EventSearcher is the event search tool surface.
type EventSearcher interface {
	SearchEvents(ctx context.Context, city, country, month string, year int) ([]model.Event, error)
}

// EmitFunc receives incremental text output during a turn.
type EmitFunc func(text string)

// Orchestrator walks a conversation through the workflow state machine,
// dispatching external calls through the tool registry. Every tool call of
// a turn completes before any user-facing text is produced.
type Orchestrator struct {
	registry  *Registry
	extractor llm.Extractor
	logger    *logger.Logger
	now       func() time.Time
}

// New creates an orchestrator over the given tool clients.
func New(geocoder Geocoder, searcher EventSearcher, extractor llm.Extractor, log *logger.Logger) *Orchestrator {
	o := &Orchestrator{
		registry:  NewRegistry(),
		extractor: extractor,
		logger:    log,
		now:       time.Now,
	}

	mustRegister(o.registry, Tool{
		Name:        "get_city_center",
		Description: "Get the center coordinates of a city",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city":    map[string]any{"type": "string"},
				"country": map[string]any{"type": "string"},
			},
			"required": []string{"city", "country"},
		},
		SideEffect: SideEffectNetwork,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return geocoder.ResolveCityCenter(ctx, args["city"].(string), args["country"].(string))
		},
	})

	mustRegister(o.registry, Tool{
		Name:        "search_events",
		Description: "Find top events in a city for the current month",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city":    map[string]any{"type": "string"},
				"country": map[string]any{"type": "string"},
				"month":   map[string]any{"type": "string"},
				"year":    map[string]any{"type": "integer"},
			},
			"required": []string{"city", "country", "month", "year"},
		},
		SideEffect: SideEffectNetwork,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return searcher.SearchEvents(ctx,
				args["city"].(string), args["country"].(string),
				args["month"].(string), args["year"].(int))
		},
	})

	mustRegister(o.registry, Tool{
		Name:        "geocode_near",
		Description: "Geocode a venue constrained to the conversation's city center",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
			},
			"required": []string{"query", "center"},
		},
		SideEffect: SideEffectNetwork,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return geocoder.GeocodeNear(ctx, args["query"].(string), args["center"].(*model.CityCenter))
		},
	})

	mustRegister(o.registry, Tool{
		Name:        "reverse_geocode",
		Description: "Convert coordinates to a human-readable place name",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"lat": map[string]any{"type": "number"},
				"lon": map[string]any{"type": "number"},
			},
			"required": []string{"lat", "lon"},
		},
		SideEffect: SideEffectNetwork,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return geocoder.ReverseGeocode(ctx, args["lat"].(float64), args["lon"].(float64))
		},
	})

	return o
}

// SetClock replaces the time source. Test hook.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Registry exposes the tool registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// RunTurn processes one user message, mutating the conversation context and
// returning the full agent reply. Text is additionally emitted in line
// chunks as it becomes available. Conversational failures (unknown city,
// search outage, bad selection) become reply text, not errors; an error
// return means the turn could not run at all.
func (o *Orchestrator) RunTurn(ctx context.Context, conv *model.Conversation, userText string, emit EmitFunc) (string, error) {
	out := &turnOutput{emit: emit}

	switch conv.State {
	case model.StateAwaitingLocation, model.StateSelectionResolved, "":
		if err := o.handleLocation(ctx, conv, userText, out); err != nil {
			return "", err
		}
	case model.StateHaveCityCenter:
		// A previous search failed or came up empty. A new location
		// restarts the flow; otherwise retry the search.
		loc, _ := o.extractor.ExtractLocation(ctx, userText)
		if loc != nil {
			if err := o.handleLocation(ctx, conv, userText, out); err != nil {
				return "", err
			}
			break
		}
		o.runEventSearch(ctx, conv, out)
	case model.StateEventsPresented, model.StateAwaitingSelection:
		if err := o.handleSelection(ctx, conv, userText, out); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unknown workflow state %q", conv.State)
	}

	return out.String(), nil
}

func (o *Orchestrator) handleLocation(ctx context.Context, conv *model.Conversation, userText string, out *turnOutput) error {
	loc, err := o.extractor.ExtractLocation(ctx, userText)
	if err != nil {
		o.logger.Warn("location extraction failed", zap.Error(err))
	}
	if loc == nil {
		conv.State = model.StateAwaitingLocation
		out.Println("I'd love to help you discover events! Which city and country would you like to explore? (for example: \"Antwerp, Belgium\")")
		return nil
	}

	result, err := o.registry.Call(ctx, "get_city_center", map[string]any{
		"city":    loc.City,
		"country": loc.Country,
	})
	if err != nil {
		conv.State = model.StateAwaitingLocation
		switch {
		case errors.Is(err, geocode.ErrNotFound):
			out.Printf("I couldn't find %s, %s on the map. Could you check the spelling or try a nearby larger city?\n", loc.City, loc.Country)
		case errors.Is(err, geocode.ErrUpstream):
			out.Println("I'm having trouble reaching the map service right now. Please try again in a moment.")
		default:
			return err
		}
		return nil
	}

	center := result.(*model.CityCenter)
	conv.CityCenter = center
	conv.Events = nil
	conv.State = model.StateHaveCityCenter

	o.logger.Info("city center resolved",
		zap.String("city", center.City),
		zap.String("country", center.Country),
		zap.Float64("lat", center.Latitude),
		zap.Float64("lon", center.Longitude),
	)

	// City center gates event search; the search runs in the same turn.
	o.runEventSearch(ctx, conv, out)
	return nil
}

func (o *Orchestrator) runEventSearch(ctx context.Context, conv *model.Conversation, out *turnOutput) {
	center := conv.CityCenter
	now := o.now()
	month := now.Month().String()

	result, err := o.registry.Call(ctx, "search_events", map[string]any{
		"city":    center.City,
		"country": center.Country,
		"month":   month,
		"year":    now.Year(),
	})
	if err != nil {
		// ErrUnavailable covers both exhausted retries and permanent
		// failures; either way the user gets an apology, not a crash.
		if !errors.Is(err, search.ErrUnavailable) {
			o.logger.Error("event search failed", zap.Error(err))
		}
		out.Printf("I'm sorry — I couldn't search for events in %s right now. Send me another message and I'll try again.\n", center.City)
		return
	}

	events := result.([]model.Event)
	if len(events) == 0 {
		out.Printf("I couldn't find any events in %s for %s. You can try another city, or message me again to retry.\n", center.City, month)
		return
	}

	conv.Events = events
	conv.State = model.StateEventsPresented

	out.Println(formatEventList(center.City, month, events))
	out.Println("Which events would you like to visit? Reply with the numbers (for example: \"1, 3\").")
	conv.State = model.StateAwaitingSelection
}

func (o *Orchestrator) handleSelection(ctx context.Context, conv *model.Conversation, userText string, out *turnOutput) error {
	picked, dropped, err := ParseSelection(userText, len(conv.Events))
	if err != nil || len(picked) == 0 {
		if err != nil && !errors.Is(err, ErrInvalidSelection) {
			return err
		}
		// Re-prompt without a state change.
		out.Printf("I didn't catch which events you meant. Please reply with numbers between 1 and %d, like \"1, 3\".\n", len(conv.Events))
		return nil
	}

	// Geocode every chosen venue before emitting any text: partial tool
	// completion must never read like a final answer.
	links := make([]venueLink, 0, len(picked))
	for _, n := range picked {
		ev := conv.Events[n-1]
		query := ev.Venue
		if query == "" {
			query = ev.Name
		}

		result, geoErr := o.registry.Call(ctx, "geocode_near", map[string]any{
			"query":  query,
			"center": conv.CityCenter,
		})
		link := venueLink{event: ev, err: geoErr}
		if geoErr == nil {
			link.result = result.(*model.GeocodeResult)
			link.place = link.result.PlaceName
			// A fuzzy match gets a reverse-geocoded label; when that also
			// fails, the provider's own place name stands.
			if link.result.Relevance < fuzzyRelevance {
				if name, revErr := o.registry.Call(ctx, "reverse_geocode", map[string]any{
					"lat": link.result.Latitude,
					"lon": link.result.Longitude,
				}); revErr == nil {
					link.place = name.(string)
				}
			}
		} else if !errors.Is(geoErr, geocode.ErrNotFound) && !errors.Is(geoErr, geocode.ErrUpstream) {
			return geoErr
		}
		links = append(links, link)
	}

	conv.State = model.StateSelectionResolved
	out.Println(formatVenueLinks(links, dropped))
	return nil
}

// turnOutput accumulates the full reply while forwarding each chunk to the
// emit callback.
type turnOutput struct {
	b    strings.Builder
	emit EmitFunc
}

func (t *turnOutput) Printf(format string, args ...any) {
	t.write(fmt.Sprintf(format, args...))
}

func (t *turnOutput) Println(s string) {
	t.write(s + "\n")
}

func (t *turnOutput) write(s string) {
	t.b.WriteString(s)
	if t.emit != nil {
		t.emit(s)
	}
}

func (t *turnOutput) String() string {
	return t.b.String()
}
