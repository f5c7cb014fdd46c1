package reconciler

import (
	"fmt"
	"hash/fnv"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Style is how one identity is drawn in the chat log.
type Style struct {
	Emoji         string `yaml:"emoji" json:"emoji"`
	AvatarColor   string `yaml:"avatar_color" json:"avatar_color"`
	UsernameColor string `yaml:"username_color" json:"username_color"`
	MessageColor  string `yaml:"message_color" json:"message_color"`
}

// Palette assigns each identity a Style the first time it is seen and
// keeps that assignment for the life of the palette.
type Palette struct {
	Emojis         []string `yaml:"emojis"`
	AvatarColors   []string `yaml:"avatar_colors"`
	UsernameColors []string `yaml:"username_colors"`
	MessageColors  []string `yaml:"message_colors"`
	System         Style    `yaml:"system"`

	mu       sync.Mutex
	assigned map[string]Style
}

// DefaultPalette returns the built-in neon palette.
func DefaultPalette() *Palette {
	return &Palette{
		Emojis:         []string{"😈", "👹", "👽", "🤖", "👻", "💀", "🤡", "👺", "😠", "🤯", "🥴", "🤪"},
		AvatarColors:   []string{"#B026FF", "#39FF14", "#FF6700", "#00FFFF", "#FFFF33", "#FF00FF"},
		UsernameColors: []string{"#B026FF", "#39FF14", "#FF6700", "#00FFFF", "#FFFF33", "#FF00FF"},
		MessageColors:  []string{"#FFFFFF", "#00FFFF", "#1F51FF"},
		System: Style{
			Emoji:         "🎉",
			AvatarColor:   "#FF073A",
			UsernameColor: "#FF073A",
			MessageColor:  "#FFFF33",
		},
	}
}

// LoadPalette reads a YAML palette. Empty lists fall back to the defaults.
func LoadPalette(path string) (*Palette, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read palette: %w", err)
	}
	p := &Palette{}
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("parse palette %s: %w", path, err)
	}

	def := DefaultPalette()
	if len(p.Emojis) == 0 {
		p.Emojis = def.Emojis
	}
	if len(p.AvatarColors) == 0 {
		p.AvatarColors = def.AvatarColors
	}
	if len(p.UsernameColors) == 0 {
		p.UsernameColors = def.UsernameColors
	}
	if len(p.MessageColors) == 0 {
		p.MessageColors = def.MessageColors
	}
	if p.System == (Style{}) {
		p.System = def.System
	}
	return p, nil
}

// For returns the style of identity, assigning one on first use.
func (p *Palette) For(identity string) Style {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.assigned[identity]; ok {
		return s
	}
	if p.assigned == nil {
		p.assigned = make(map[string]Style)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	n := h.Sum32()

	s := Style{
		Emoji:         pick(p.Emojis, n),
		AvatarColor:   pick(p.AvatarColors, n>>3),
		UsernameColor: pick(p.UsernameColors, n>>7),
		MessageColor:  pick(p.MessageColors, n>>11),
	}
	p.assigned[identity] = s
	return s
}

// Assigned returns how many identities have a style.
func (p *Palette) Assigned() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.assigned)
}

func pick(values []string, n uint32) string {
	if len(values) == 0 {
		return ""
	}
	return values[int(n%uint32(len(values)))]
}

func (p *Palette) messageDefault() string {
	if len(p.MessageColors) == 0 {
		return ""
	}
	return p.MessageColors[0]
}
