package loadgen

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// WaitTime is the uniform pause between two tasks of one user, in seconds
type WaitTime struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Task is one weighted request a simulated user can pick
type Task struct {
	Name    string            `json:"name" yaml:"name"`
	Weight  int               `json:"weight" yaml:"weight"`
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Body    string            `json:"body,omitempty" yaml:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Profile describes what every simulated user does
type Profile struct {
	Host     string   `json:"host,omitempty" yaml:"host,omitempty"` // Base for relative task URLs
	WaitTime WaitTime `json:"wait_time" yaml:"wait_time"`
	Tasks    []Task   `json:"tasks" yaml:"tasks"`
}

// DefaultProfile returns the PetClinic task set: owners listing, owner
// lookup, vets listing and owner creation weighted 4:3:2:1.
func DefaultProfile() *Profile {
	return &Profile{
		WaitTime: WaitTime{Min: 1, Max: 3},
		Tasks: []Task{
			{
				Name:   "/owners",
				Weight: 4,
				Method: http.MethodGet,
				URL:    "http://localhost:8081/owners",
			},
			{
				Name:   "/owners/[id]",
				Weight: 3,
				Method: http.MethodGet,
				URL:    "http://localhost:8081/owners/{{randint 1 10}}",
			},
			{
				Name:   "/vets",
				Weight: 2,
				Method: http.MethodGet,
				URL:    "http://localhost:8083/vets",
			},
			{
				Name:    "/owners [create]",
				Weight:  1,
				Method:  http.MethodPost,
				URL:     "http://localhost:8081/owners",
				Body:    `{"firstName":"Teste","lastName":"User{{randint 1 10000}}","address":"Rua 123","city":"Teresina","telephone":"999999999"}`,
				Headers: map[string]string{"Content-Type": "application/json"},
			},
		},
	}
}

// LoadProfile reads a profile from a .yaml, .yml, .json or .jsonc file
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var profile Profile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse YAML profile %s: %w", path, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &profile); err != nil {
			return nil, fmt.Errorf("failed to parse JSON profile %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported profile format: %s", filepath.Ext(path))
	}

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return &profile, nil
}

// Validate checks the profile and fills in defaults for method and name
func (p *Profile) Validate() error {
	if len(p.Tasks) == 0 {
		return fmt.Errorf("profile has no tasks")
	}
	if p.WaitTime.Min < 0 || p.WaitTime.Max < p.WaitTime.Min {
		return fmt.Errorf("invalid wait_time: min %v, max %v", p.WaitTime.Min, p.WaitTime.Max)
	}

	for i := range p.Tasks {
		t := &p.Tasks[i]
		if t.URL == "" {
			return fmt.Errorf("task %d: url is required", i)
		}
		if t.Weight <= 0 {
			return fmt.Errorf("task %d (%s): weight must be positive", i, t.URL)
		}
		if t.Method == "" {
			t.Method = http.MethodGet
		}
		t.Method = strings.ToUpper(t.Method)
		if t.Name == "" {
			t.Name = t.URL
		}
		if err := checkTemplate(t.URL); err != nil {
			return fmt.Errorf("task %d (%s): url: %w", i, t.Name, err)
		}
		if err := checkTemplate(t.Body); err != nil {
			return fmt.Errorf("task %d (%s): body: %w", i, t.Name, err)
		}
	}
	return nil
}

// totalWeight sums the task weights
func (p *Profile) totalWeight() int {
	total := 0
	for _, t := range p.Tasks {
		total += t.Weight
	}
	return total
}

// pick chooses a task with probability proportional to its weight
func (p *Profile) pick(rng *rand.Rand) *Task {
	n := rng.IntN(p.totalWeight())
	for i := range p.Tasks {
		n -= p.Tasks[i].Weight
		if n < 0 {
			return &p.Tasks[i]
		}
	}
	return &p.Tasks[len(p.Tasks)-1]
}

// wait returns a uniform pause between WaitTime.Min and WaitTime.Max
func (p *Profile) wait(rng *rand.Rand) time.Duration {
	seconds := p.WaitTime.Min + rng.Float64()*(p.WaitTime.Max-p.WaitTime.Min)
	return time.Duration(seconds * float64(time.Second))
}
