// Package featureflags evaluates runtime feature toggles.
package featureflags

import (
	"hash/fnv"
	"slices"
	"strconv"
	"strings"
)

// Flags consulted by the application.
const (
	// ChallengeRequests lets viewers propose new challenges.
	ChallengeRequests = "challenge_requests"
	// StreamKeyRotation exposes the rotate endpoint to creators.
	StreamKeyRotation = "stream_key_rotation"
)

// Known lists the flags the application checks. They are reported even
// when unconfigured.
var Known = []string{ChallengeRequests, StreamKeyRotation}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "challenge_requests=on,stream_key_rotation=25%"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key = normalize(key)
		value = normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// IsSet reports whether name is configured at all.
func (m *Manager) IsSet(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.flags[normalize(name)]
	return ok
}

// Allowed is Enabled for configured flags and true for unconfigured ones,
// so features stay on unless explicitly switched off.
func (m *Manager) Allowed(name, userID string) bool {
	if !m.IsSet(name) {
		return true
	}
	return m.Enabled(name, userID)
}

// Enabled returns whether a flag is enabled for a given user.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic user rollout, e.g. 25%)
func (m *Manager) Enabled(name, userID string) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if userID == "" {
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// State is one flag as seen by one caller.
type State struct {
	Name       string `json:"name"`
	Value      string `json:"value,omitempty"`
	Configured bool   `json:"configured"`
	Enabled    bool   `json:"enabled"`
}

// Evaluate reports the known flags and any other configured ones, sorted by
// name. Known flags use Allowed, the rule the routes enforce; others use
// Enabled.
func (m *Manager) Evaluate(userID string) []State {
	names := make(map[string]bool, len(Known))
	for _, name := range Known {
		names[name] = true
	}
	if m != nil {
		for name := range m.flags {
			if _, ok := names[name]; !ok {
				names[name] = false
			}
		}
	}

	out := make([]State, 0, len(names))
	for name, known := range names {
		st := State{Name: name, Configured: m.IsSet(name)}
		if st.Configured {
			st.Value = m.flags[name]
		}
		if known {
			st.Enabled = m.Allowed(name, userID)
		} else {
			st.Enabled = m.Enabled(name, userID)
		}
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b State) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + userID))
	return int(h.Sum32() % 100)
}
