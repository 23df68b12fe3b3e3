package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Persona describes who the automated replies speak as.
// Loaded from YAML; a JSON profile is accepted as well.
type Persona struct {
	Name        string            `yaml:"name" json:"name"`
	Nickname    string            `yaml:"nickname" json:"nickname"`
	Location    string            `yaml:"location" json:"location"`
	Skills      []string          `yaml:"skills" json:"skills"`
	Education   string            `yaml:"education" json:"education"`
	Projects    map[string]string `yaml:"projects" json:"projects"`
	Personality string            `yaml:"personality" json:"personality"`
	Greeting    string            `yaml:"greeting" json:"greeting"`
}

// DefaultPersona returns the persona used when no profile file is found
func DefaultPersona() *Persona {
	return &Persona{
		Name:        "the account owner",
		Nickname:    "the owner",
		Location:    "somewhere online",
		Personality: "Friendly, helpful and to the point.",
		Greeting:    "Hey! I'm an AI assistant answering while my owner is away. Ask me anything and they'll follow up when they're back.",
	}
}

// LoadPersona loads the persona profile, searching default locations when path is empty
func LoadPersona(path string, logger zerolog.Logger) (*Persona, error) {
	paths := []string{path}
	if path == "" {
		paths = []string{
			"configs/persona.yaml",
			"configs/profile.json",
			"profile.json",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "persona.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data, loadedPath = b, p
			break
		}
		if path != "" {
			return nil, fmt.Errorf("read persona %s: %w", path, err)
		}
	}

	if data == nil {
		logger.Info().Msg("no persona profile found, using defaults")
		return DefaultPersona(), nil
	}

	logger.Info().Str("path", loadedPath).Msg("loading persona profile")

	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse persona %s: %w", loadedPath, err)
	}
	p.fillDefaults()
	return &p, nil
}

func (p *Persona) fillDefaults() {
	defaults := DefaultPersona()

	if p.Name == "" {
		p.Name = defaults.Name
	}
	if p.Nickname == "" {
		p.Nickname = p.Name
	}
	if p.Location == "" {
		p.Location = defaults.Location
	}
	if p.Personality == "" {
		p.Personality = defaults.Personality
	}
	if p.Greeting == "" {
		p.Greeting = defaults.Greeting
	}
}

// SystemPrompt renders the instruction prompt for a reply to sender
func (p *Persona) SystemPrompt(sender string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Act as %s, aka \"%s\", from %s.\n", p.Name, p.Nickname, p.Location)
	if len(p.Skills) > 0 {
		fmt.Fprintf(&b, "\nSkills: %s\n", strings.Join(p.Skills, ", "))
	}
	if p.Education != "" {
		fmt.Fprintf(&b, "Education: %s\n", p.Education)
	}
	if len(p.Projects) > 0 {
		b.WriteString("Projects:\n")
		names := make([]string, 0, len(p.Projects))
		for name := range p.Projects {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %s\n", name, p.Projects[name])
		}
	}

	fmt.Fprintf(&b, "\nPersonality:\n- %s\n- No robotic vibes, sound like a real person.\n", p.Personality)

	b.WriteString("\nYour job:\n")
	if sender != "" && sender != "Unknown" {
		fmt.Fprintf(&b, "Reply as %s, speaking to %s.\n", p.Nickname, sender)
	} else {
		fmt.Fprintf(&b, "Reply as %s.\n", p.Nickname)
	}
	b.WriteString("Keep it short, relevant, and mostly in English.\n")
	fmt.Fprintf(&b, "\nIf the message is a greeting, introduce yourself:\n'%s'\n", p.Greeting)

	return b.String()
}
