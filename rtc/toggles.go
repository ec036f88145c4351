package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
)

// Feature is a locally toggled media capability synchronized with the
// remote peer.
type Feature string

const (
	FeatureMicrophone  Feature = "microphone"
	FeatureCamera      Feature = "camera"
	FeatureScreenShare Feature = "screen_share"
)

type featureRoute struct {
	service string
	action  string
}

var featureRoutes = map[Feature]featureRoute{
	FeatureMicrophone:  {service: "media_control", action: "toggle_microphone"},
	FeatureCamera:      {service: "media_control", action: "toggle_camera"},
	FeatureScreenShare: {service: "screen_share", action: "toggle_sharing"},
}

// Toggles holds the local media-enable flags. A toggle flips the local flag
// immediately for responsive UI, then informs the remote peer; on failure the
// flag is rolled back to the explicitly stored prior value. This is the only
// component that mutates local state before remote confirmation.
type Toggles struct {
	mu         sync.Mutex
	state      map[Feature]bool
	dispatcher Dispatcher
	convlog    *Log
	logger     *Logger
}

// TogglesOption configures the toggle set.
type TogglesOption func(*Toggles)

// WithInitialState overrides the starting value of a feature flag.
func WithInitialState(f Feature, enabled bool) TogglesOption {
	return func(t *Toggles) {
		t.state[f] = enabled
	}
}

// WithTogglesLogger sets the logger used by the toggle set.
func WithTogglesLogger(l *Logger) TogglesOption {
	return func(t *Toggles) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewToggles creates the feature toggle set. Microphone and camera start
// enabled, screen share disabled.
func NewToggles(d Dispatcher, convlog *Log, opts ...TogglesOption) *Toggles {
	t := &Toggles{
		state: map[Feature]bool{
			FeatureMicrophone:  true,
			FeatureCamera:      true,
			FeatureScreenShare: false,
		},
		dispatcher: d,
		convlog:    convlog,
		logger:     GetLogger(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Toggle flips a feature optimistically, confirms with the remote peer, and
// returns the new effective state. On remote failure the flag is restored to
// its pre-toggle value and a system entry records the failure.
func (t *Toggles) Toggle(ctx context.Context, f Feature) (bool, error) {
	route, ok := featureRoutes[f]
	if !ok {
		return false, fmt.Errorf("unknown feature %q", f)
	}

	t.mu.Lock()
	prev := t.state[f]
	next := !prev
	t.state[f] = next
	t.mu.Unlock()

	result, err := t.dispatcher.Dispatch(ctx, route.service, route.action,
		Arg{Name: "enabled", Value: next},
	)
	if err != nil {
		// Restore the stored prior value, not the negation of the current
		// one, so the rollback stays deterministic under concurrency.
		t.mu.Lock()
		t.state[f] = prev
		t.mu.Unlock()

		t.logger.Warn("toggle rolled back", "feature", f, "error", err)
		t.convlog.System(fmt.Sprintf("Could not toggle %s: %v", f, err))
		return prev, err
	}

	effective := next
	if v := gjson.GetBytes(result, "enabled"); v.Exists() {
		effective = v.Bool()
		t.mu.Lock()
		t.state[f] = effective
		t.mu.Unlock()
	}

	t.convlog.System(fmt.Sprintf("%s %s", featureLabel(f), enabledLabel(effective)))
	return effective, nil
}

// Enabled returns the current local flag for a feature.
func (t *Toggles) Enabled(f Feature) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state[f]
}

// States returns a copy of all feature flags.
func (t *Toggles) States() map[Feature]bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[Feature]bool, len(t.state))
	for k, v := range t.state {
		out[k] = v
	}
	return out
}

func featureLabel(f Feature) string {
	switch f {
	case FeatureMicrophone:
		return "Microphone"
	case FeatureCamera:
		return "Camera"
	case FeatureScreenShare:
		return "Screen share"
	}
	return string(f)
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
