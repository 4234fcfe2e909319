package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Event is the descriptor carried by an issue transaction: one listing with
// the time slot the buyer picked.
type Event struct {
	Name     string          `json:"name"`
	City     string          `json:"city"`
	Venue    string          `json:"venue"`
	TimeSlot string          `json:"time_slot"`
	Price    decimal.Decimal `json:"price"`
}

// Listing is an event on sale with every slot it can be booked for.
type Listing struct {
	Name      string          `json:"name"`
	City      string          `json:"city"`
	Venue     string          `json:"venue"`
	TimeSlots []string        `json:"time_slots"`
	Price     decimal.Decimal `json:"price"`
}

// Book returns the event descriptor for the given slot.
func (l Listing) Book(slot string) (Event, error) {
	for _, s := range l.TimeSlots {
		if s == slot {
			return Event{
				Name:     l.Name,
				City:     l.City,
				Venue:    l.Venue,
				TimeSlot: slot,
				Price:    l.Price,
			}, nil
		}
	}
	return Event{}, fmt.Errorf("listing %q has no time slot %q", l.Name, slot)
}

type Catalog struct {
	listings []Listing
}

func NewCatalog(listings ...Listing) *Catalog {
	return &Catalog{listings: append([]Listing(nil), listings...)}
}

// Find looks a listing up by name, ignoring case.
func (c *Catalog) Find(name string) (Listing, bool) {
	for _, l := range c.listings {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return Listing{}, false
}

func (c *Catalog) Listings() []Listing {
	out := make([]Listing, len(c.listings))
	copy(out, c.listings)
	return out
}

// DefaultCatalog is the concert line-up the booking page starts with.
func DefaultCatalog() *Catalog {
	price := decimal.NewFromInt(5999)
	return NewCatalog(
		Listing{Name: "Imagine Dragons Live", City: "Mumbai", Venue: "NSCI Dome", TimeSlots: []string{"2025-11-09 19:00", "2025-11-10 19:00"}, Price: price},
		Listing{Name: "Coldplay Concert", City: "Bengaluru", Venue: "Kanteerava Stadium", TimeSlots: []string{"2025-11-16 20:00", "2025-11-17 20:00"}, Price: price},
		Listing{Name: "Adele Live", City: "Delhi", Venue: "Jawaharlal Nehru Stadium", TimeSlots: []string{"2025-12-06 19:30", "2025-12-07 19:30"}, Price: price},
		Listing{Name: "Ed Sheeran Tour", City: "Kolkata", Venue: "Salt Lake Stadium", TimeSlots: []string{"2025-12-13 20:00", "2025-12-14 20:00"}, Price: price},
		Listing{Name: "Arijit Singh Concert", City: "Pune", Venue: "Shiv Chhatrapati Sports Complex", TimeSlots: []string{"2025-12-20 19:00", "2025-12-21 19:00"}, Price: price},
	)
}
