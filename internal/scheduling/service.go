package scheduling

import (
	"fmt"
	"time"
)

// Service is a bookable appointment type.
type Service struct {
	ID              string `json:"id" yaml:"id"`
	Label           string `json:"label" yaml:"label"`
	DurationMinutes int    `json:"durationMinutes" yaml:"duration_minutes"`
	BufferMinutes   int    `json:"bufferMinutes" yaml:"buffer_minutes"`
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

func (s Service) Buffer() time.Duration {
	return time.Duration(s.BufferMinutes) * time.Minute
}

// DefaultServices is the built-in catalog.
var DefaultServices = []Service{
	{ID: "intro-call", Label: "Intro Call", DurationMinutes: 30, BufferMinutes: 0},
	{ID: "personal-training", Label: "Personal Training", DurationMinutes: 60, BufferMinutes: 15},
	{ID: "couple-training", Label: "Couple Training", DurationMinutes: 60, BufferMinutes: 15},
	{ID: "fitness-assessment", Label: "Fitness Assessment", DurationMinutes: 90, BufferMinutes: 15},
}

// Catalog is an immutable lookup of services by ID.
type Catalog struct {
	order []Service
	byID  map[string]Service
}

func NewCatalog(services []Service) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Service, len(services))}
	for _, s := range services {
		if s.ID == "" {
			return nil, fmt.Errorf("service %q: id required", s.Label)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("service %q: duplicate id", s.ID)
		}
		if s.DurationMinutes <= 0 {
			return nil, fmt.Errorf("service %q: duration must be positive", s.ID)
		}
		if s.BufferMinutes < 0 {
			return nil, fmt.Errorf("service %q: buffer must not be negative", s.ID)
		}
		if s.Label == "" {
			s.Label = s.ID
		}
		c.byID[s.ID] = s
		c.order = append(c.order, s)
	}
	return c, nil
}

// Lookup returns the service or ErrInvalidServiceID.
func (c *Catalog) Lookup(id string) (Service, error) {
	s, ok := c.byID[id]
	if !ok {
		return Service{}, ErrInvalidServiceID
	}
	return s, nil
}

func (c *Catalog) All() []Service {
	out := make([]Service, len(c.order))
	copy(out, c.order)
	return out
}
