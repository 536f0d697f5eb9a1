// Package geocode defines the address-resolution collaborator contract.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mverdeau/geodispatch/core/geo"
)

// ErrAddressNotFound is returned when the geocoder has no match for an address.
var ErrAddressNotFound = errors.New("geocode: address not found")

// Address is a street address to resolve.
type Address struct {
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	Number       int    `json:"number"`
}

// String renders the address in the "street, number, neighborhood" form the
// resolver queries with.
func (a Address) String() string {
	parts := []string{a.Street}
	if a.Number > 0 {
		parts = append(parts, fmt.Sprintf("%d", a.Number))
	}
	if a.Neighborhood != "" {
		parts = append(parts, a.Neighborhood)
	}
	return strings.Join(parts, ", ")
}

// Validate checks that the address carries enough information to resolve.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Street) == "" {
		return fmt.Errorf("street is required")
	}
	return nil
}

// Geocoder resolves a street address to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, a Address) (geo.Point, error)
}
