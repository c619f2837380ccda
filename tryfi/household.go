package tryfi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// PetSnapshot is the flat per-pet view the refresh coordinator diffs
// between cycles. PlaceName is nil while the pet is walking.
type PetSnapshot struct {
	ID              string
	Name            string
	PlaceName       *string
	BatteryPercent  int
	IsLost          bool
	ConnectionState string
}

// Household is the root of the domain model: the authenticated client, the
// current user, and the pet and base collections. Pets are updated in place
// across refreshes; bases are rebuilt wholesale each cycle.
type Household struct {
	client *Client
	log    zerolog.Logger

	mu    sync.RWMutex
	user  *User
	pets  []*Pet
	bases []*Base
}

// NewHousehold fetches the household membership and builds the domain
// model. The client must already be logged in. Pets without a paired collar
// are skipped entirely.
func NewHousehold(ctx context.Context, c *Client, log zerolog.Logger) (*Household, error) {
	h := &Household{
		client: c,
		log:    log.With().Str("component", "household").Logger(),
	}

	payload, err := c.getHouseholds(ctx)
	if err != nil {
		return nil, fmt.Errorf("building household: %w", err)
	}

	h.user = newUserFromPayload(payload)

	for _, house := range payload.UserHouseholds {
		for i := range house.Household.Pets {
			raw := &house.Household.Pets[i]
			if raw.Device == nil {
				// a pet without a collar has nothing to track
				h.log.Warn().Str("petId", raw.ID).Str("name", raw.Name).Msg("pet has no collar, ignoring pet")
				continue
			}

			pet := newPet(raw.ID, h.log)
			if err := pet.applyProfile(raw); err != nil {
				return nil, fmt.Errorf("building pet %s: %w", raw.ID, err)
			}
			if raw.OngoingActivity != nil {
				if err := pet.applyActivity(raw.OngoingActivity); err != nil {
					h.log.Warn().Err(err).Str("petId", raw.ID).Msg("could not apply initial activity")
				}
			}
			h.log.Debug().Str("petId", pet.ID()).Str("name", pet.Name()).Msg("adding pet")
			h.pets = append(h.pets, pet)
		}

		for _, raw := range house.Household.Bases {
			base, err := newBaseFromPayload(raw)
			if err != nil {
				return nil, fmt.Errorf("building base %s: %w", raw.BaseID, err)
			}
			h.log.Debug().Str("baseId", base.ID()).Bool("online", base.Online()).Msg("adding base")
			h.bases = append(h.bases, base)
		}
	}

	return h, nil
}

// Update refreshes bases and pets independently; a failure on one side does
// not prevent attempting the other. If any failure is auth-classified, one
// re-login is attempted and the failed sides retried exactly once. The
// returned error aggregates whichever sides still failed.
func (h *Household) Update(ctx context.Context) error {
	baseErr := h.updateBases(ctx)
	petErr := h.updatePets(ctx)

	if IsAuthError(baseErr) || IsAuthError(petErr) {
		h.log.Info().Msg("session rejected mid-refresh, re-authenticating")
		if lerr := h.client.Login(ctx); lerr != nil {
			return errors.Join(
				baseErr,
				petErr,
				fmt.Errorf("re-authentication failed: %w", lerr),
			)
		}
		if IsAuthError(baseErr) {
			baseErr = h.updateBases(ctx)
		}
		if IsAuthError(petErr) {
			petErr = h.updatePets(ctx)
		}
	}

	return errors.Join(baseErr, petErr)
}

// updateBases rebuilds the base collection from a fresh roster. No
// incremental merge: the old slice is discarded and readers re-resolve by
// id on the next access.
func (h *Household) updateBases(ctx context.Context) error {
	houses, err := h.client.getBaseList(ctx)
	if err != nil {
		return fmt.Errorf("updating bases: %w", err)
	}

	var updated []*Base
	for _, house := range houses {
		for _, raw := range house.Household.Bases {
			base, err := newBaseFromPayload(raw)
			if err != nil {
				return fmt.Errorf("updating bases: %w", err)
			}
			updated = append(updated, base)
		}
	}

	h.mu.Lock()
	h.bases = updated
	h.mu.Unlock()
	return nil
}

// updatePets refreshes each pet in place.
func (h *Household) updatePets(ctx context.Context) error {
	for _, pet := range h.Pets() {
		if err := pet.UpdateAllDetails(ctx, h.client); err != nil {
			return fmt.Errorf("updating pet %s: %w", pet.ID(), err)
		}
	}
	return nil
}

// CurrentUser returns the account the household belongs to.
func (h *Household) CurrentUser() *User {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user
}

// Client returns the live session handle, needed by command dispatch.
func (h *Household) Client() *Client {
	return h.client
}

// Pets returns the pet collection in household order.
func (h *Household) Pets() []*Pet {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Pet, len(h.pets))
	copy(out, h.pets)
	return out
}

// Bases returns the base collection in household order.
func (h *Household) Bases() []*Base {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Base, len(h.bases))
	copy(out, h.bases)
	return out
}

// GetPet resolves a pet by id, nil when absent.
func (h *Household) GetPet(petID string) *Pet {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, p := range h.pets {
		if p.ID() == petID {
			return p
		}
	}
	h.log.Error().Str("petId", petID).Msg("cannot find pet")
	return nil
}

// GetBase resolves a base by id, nil when absent.
func (h *Household) GetBase(baseID string) *Base {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, b := range h.bases {
		if b.ID() == baseID {
			return b
		}
	}
	h.log.Error().Str("baseId", baseID).Msg("cannot find base")
	return nil
}

// PetSnapshots captures the per-pet fields the refresh coordinator diffs.
func (h *Household) PetSnapshots() []PetSnapshot {
	pets := h.Pets()
	snaps := make([]PetSnapshot, 0, len(pets))
	for _, p := range pets {
		snaps = append(snaps, p.snapshot())
	}
	return snaps
}
