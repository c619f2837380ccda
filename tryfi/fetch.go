package tryfi

import (
	"context"
	"fmt"
)

// Typed wrappers over the catalog, one per logical fetch. Each extracts the
// sub-path of the response the caller cares about and leaves the rest alone.

func (c *Client) getHouseholds(ctx context.Context) (*currentUserPayload, error) {
	q, err := buildQuery(queryHousehold)
	if err != nil {
		return nil, err
	}
	res, err := c.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetching households: %w", err)
	}
	raw, ok := mapGet[map[string]any](res, "data", "currentUser")
	if !ok {
		return nil, fmt.Errorf("%w: household response missing data.currentUser", ErrRemoteAPI)
	}
	var user currentUserPayload
	if err := decodePayload(raw, &user); err != nil {
		return nil, fmt.Errorf("%w: decoding household response: %v", ErrRemoteAPI, err)
	}
	return &user, nil
}

func (c *Client) getBaseList(ctx context.Context) ([]userHouseholdPayload, error) {
	q, err := buildQuery(queryBaseList)
	if err != nil {
		return nil, err
	}
	res, err := c.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetching base list: %w", err)
	}
	raw, ok := mapGet[[]any](res, "data", "currentUser", "userHouseholds")
	if !ok {
		return nil, fmt.Errorf("%w: base list response missing data.currentUser.userHouseholds", ErrRemoteAPI)
	}
	var houses []userHouseholdPayload
	if err := decodePayload(raw, &houses); err != nil {
		return nil, fmt.Errorf("%w: decoding base list: %v", ErrRemoteAPI, err)
	}
	return houses, nil
}

func (c *Client) getPetFullDetail(ctx context.Context, petID string) (*petFullPayload, error) {
	q, err := buildPetQuery(queryPetFull, petID)
	if err != nil {
		return nil, err
	}
	res, err := c.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetching pet %s detail: %w", petID, err)
	}
	raw, ok := mapGet[map[string]any](res, "data", "pet")
	if !ok {
		return nil, fmt.Errorf("%w: pet detail response missing data.pet", ErrRemoteAPI)
	}
	var pet petFullPayload
	if err := decodePayload(raw, &pet); err != nil {
		return nil, fmt.Errorf("%w: decoding pet detail: %v", ErrRemoteAPI, err)
	}
	return &pet, nil
}

func (c *Client) getPetStats(ctx context.Context, petID string) (*petStatsPayload, error) {
	q, err := buildPetQuery(queryPetStats, petID)
	if err != nil {
		return nil, err
	}
	res, err := c.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetching pet %s stats: %w", petID, err)
	}
	raw, ok := mapGet[map[string]any](res, "data", "pet")
	if !ok {
		return nil, fmt.Errorf("%w: pet stats response missing data.pet", ErrRemoteAPI)
	}
	var stats petStatsPayload
	if err := decodePayload(raw, &stats); err != nil {
		return nil, fmt.Errorf("%w: decoding pet stats: %v", ErrRemoteAPI, err)
	}
	return &stats, nil
}

func (c *Client) getPetRestStats(ctx context.Context, petID string) (*petRestPayload, error) {
	q, err := buildPetQuery(queryPetRest, petID)
	if err != nil {
		return nil, err
	}
	res, err := c.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetching pet %s rest stats: %w", petID, err)
	}
	raw, ok := mapGet[map[string]any](res, "data", "pet")
	if !ok {
		return nil, fmt.Errorf("%w: pet rest response missing data.pet", ErrRemoteAPI)
	}
	var rest petRestPayload
	if err := decodePayload(raw, &rest); err != nil {
		return nil, fmt.Errorf("%w: decoding pet rest stats: %v", ErrRemoteAPI, err)
	}
	return &rest, nil
}

func (c *Client) getPetLocation(ctx context.Context, petID string) (*activityPayload, error) {
	q, err := buildPetQuery(queryPetLocation, petID)
	if err != nil {
		return nil, err
	}
	res, err := c.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetching pet %s location: %w", petID, err)
	}
	raw, ok := mapGet[map[string]any](res, "data", "pet", "ongoingActivity")
	if !ok {
		return nil, fmt.Errorf("%w: location response missing data.pet.ongoingActivity", ErrRemoteAPI)
	}
	var act activityPayload
	if err := decodePayload(raw, &act); err != nil {
		return nil, fmt.Errorf("%w: decoding pet location: %v", ErrRemoteAPI, err)
	}
	return &act, nil
}

func (c *Client) getPetDevice(ctx context.Context, petID string) (*petPayload, error) {
	q, err := buildPetQuery(queryPetDevice, petID)
	if err != nil {
		return nil, err
	}
	res, err := c.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetching pet %s device: %w", petID, err)
	}
	raw, ok := mapGet[map[string]any](res, "data", "pet")
	if !ok {
		return nil, fmt.Errorf("%w: device response missing data.pet", ErrRemoteAPI)
	}
	var pet petPayload
	if err := decodePayload(raw, &pet); err != nil {
		return nil, fmt.Errorf("%w: decoding pet device: %v", ErrRemoteAPI, err)
	}
	return &pet, nil
}

func (c *Client) getBehaviorTrends(ctx context.Context, petID, period string) ([]behaviorTrendPayload, error) {
	res, err := c.Query(ctx, buildBehaviorTrendsQuery(petID, period))
	if err != nil {
		return nil, fmt.Errorf("fetching pet %s behavior trends: %w", petID, err)
	}
	raw, ok := mapGet[[]any](res, "data", "getPetHealthTrendsForPet", "behaviorTrends")
	if !ok {
		return nil, fmt.Errorf("%w: trends response missing behaviorTrends", ErrRemoteAPI)
	}
	var trends []behaviorTrendPayload
	if err := decodePayload(raw, &trends); err != nil {
		return nil, fmt.Errorf("%w: decoding behavior trends: %v", ErrRemoteAPI, err)
	}
	return trends, nil
}

// setLedColor changes the collar LED color and returns the fresh device
// snapshot the mutation reports back.
func (c *Client) setLedColor(ctx context.Context, moduleID string, colorCode int) (*devicePayload, error) {
	q, err := buildQuery(mutationSetLedColor)
	if err != nil {
		return nil, err
	}
	res, err := c.Mutate(ctx, q, map[string]any{
		"moduleId":    moduleID,
		"ledColorCode": colorCode,
	})
	if err != nil {
		return nil, fmt.Errorf("setting led color: %w", err)
	}
	return decodeDeviceResult(res, "setDeviceLed")
}

// setDeviceOperationParams drives the LED on/off switch and the lost/normal
// operation mode through the shared operation-params mutation.
func (c *Client) setDeviceOperationParams(ctx context.Context, input map[string]any) (*devicePayload, error) {
	q, err := buildQuery(mutationDeviceOps)
	if err != nil {
		return nil, err
	}
	res, err := c.Mutate(ctx, q, map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("updating device operation params: %w", err)
	}
	return decodeDeviceResult(res, "updateDeviceOperationParams")
}

func decodeDeviceResult(res map[string]any, field string) (*devicePayload, error) {
	raw, ok := mapGet[map[string]any](res, "data", field)
	if !ok {
		return nil, fmt.Errorf("%w: mutation response missing data.%s", ErrRemoteAPI, field)
	}
	var dev devicePayload
	if err := decodePayload(raw, &dev); err != nil {
		return nil, fmt.Errorf("%w: decoding device snapshot: %v", ErrRemoteAPI, err)
	}
	return &dev, nil
}
