package tryfi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Period selects a stats window.
type Period string

const (
	PeriodDaily   Period = "DAILY"
	PeriodWeekly  Period = "WEEKLY"
	PeriodMonthly Period = "MONTHLY"
)

// Activity type names from the OngoingActivity union.
const (
	ActivityOngoingWalk = "OngoingWalk"
	ActivityOngoingRest = "OngoingRest"
)

// StepStats is one period's step counters. Distance is meters.
type StepStats struct {
	Steps    int
	Goal     int
	Distance float64
}

// SleepStats is one period's rest durations in seconds.
type SleepStats struct {
	SleepSeconds int
	NapSeconds   int
}

// BehaviorStat is one tracked behavior's daily count and total duration.
type BehaviorStat struct {
	Count           int
	DurationSeconds int
}

// BehaviorStats are the daily behavior metrics newer collars report.
type BehaviorStats struct {
	Barking    BehaviorStat
	Licking    BehaviorStat
	Scratching BehaviorStat
	Eating     BehaviorStat
	Drinking   BehaviorStat
}

// Pet is one tracked pet and its collar. Identity is the opaque pet id,
// stable for the pet's lifetime. A Pet only exists with a paired collar;
// household construction skips collarless pets entirely.
//
// ops serializes remote fetch+apply sequences so a user command round-trip
// never interleaves with the scheduled refresh of the same pet. mu guards
// the fields; readers get the previous values while a refresh is applying.
type Pet struct {
	id  string
	log zerolog.Logger

	ops sync.Mutex
	mu  sync.RWMutex

	name          string
	homeCityState string
	yearOfBirth   int
	monthOfBirth  int
	dayOfBirth    int
	gender        string
	weight        float64
	breed         string
	photoLink     string

	device *Device

	activityType       string
	areaName           string
	latitude           float64
	longitude          float64
	posAccuracy        *float64
	placeName          *string
	placeAddress       *string
	activityStart      time.Time
	locationLastReport time.Time
	lastUpdated        time.Time

	dailySteps   StepStats
	weeklySteps  StepStats
	monthlySteps StepStats

	dailySleep   SleepStats
	weeklySleep  SleepStats
	monthlySleep SleepStats

	behavior BehaviorStats
}

func newPet(id string, log zerolog.Logger) *Pet {
	return &Pet{
		id:  id,
		log: log.With().Str("petId", id).Logger(),
	}
}

// applyProfile fills the pet profile and its device from a household or
// device-detail payload. The payload must carry a device.
func (p *Pet) applyProfile(pl *petPayload) error {
	if pl == nil {
		return fmt.Errorf("nil pet payload")
	}
	if pl.Device == nil {
		return fmt.Errorf("pet %s has no device", p.id)
	}

	photoLink := ""
	if pl.Photos != nil && pl.Photos.First != nil && pl.Photos.First.Image != nil {
		photoLink = pl.Photos.First.Image.FullSize
	} else {
		p.log.Warn().Msg("no pet photo in profile, defaulting to empty link")
	}

	p.mu.Lock()
	p.name = pl.Name
	p.homeCityState = pl.HomeCityState
	p.yearOfBirth = pl.YearOfBirth
	p.monthOfBirth = pl.MonthOfBirth
	p.dayOfBirth = pl.DayOfBirth
	p.gender = pl.Gender
	p.weight = pl.Weight
	if pl.Breed != nil {
		p.breed = pl.Breed.Name
	}
	p.photoLink = photoLink
	if p.device == nil {
		p.device = newDevice(pl.Device.ModuleID)
	}
	p.lastUpdated = time.Now()
	p.mu.Unlock()

	return p.device.applyPayload(pl.Device)
}

// applyActivity folds an ongoing-activity payload into the current
// location. For a walk the collar's position is the last element of the
// positions list, the most recent report.
func (p *Pet) applyActivity(a *activityPayload) error {
	if a == nil {
		return fmt.Errorf("pet %s: nil activity payload", p.id)
	}

	start, err := parseAPITime(a.Start)
	if err != nil {
		return fmt.Errorf("pet %s: activity start: %w", p.id, err)
	}
	lastReport, err := parseAPITime(a.LastReportTimestamp)
	if err != nil {
		return fmt.Errorf("pet %s: activity report time: %w", p.id, err)
	}

	var (
		pos      positionPayload
		accuracy *float64
	)
	if a.Typename == ActivityOngoingWalk {
		if len(a.Positions) == 0 {
			return fmt.Errorf("pet %s: walk activity without positions", p.id)
		}
		last := a.Positions[len(a.Positions)-1]
		pos = last.Position
		accuracy = last.ErrorRadius
	} else {
		if a.Position == nil {
			return fmt.Errorf("pet %s: rest activity without position", p.id)
		}
		pos = *a.Position
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.activityType = a.Typename
	p.areaName = a.AreaName
	p.latitude = pos.Latitude
	p.longitude = pos.Longitude
	p.posAccuracy = accuracy
	p.activityStart = start
	p.locationLastReport = lastReport
	if a.Place != nil {
		name, addr := a.Place.Name, a.Place.Address
		p.placeName, p.placeAddress = &name, &addr
	} else {
		p.placeName, p.placeAddress = nil, nil
	}
	p.lastUpdated = time.Now()
	return nil
}

// applyStepStats sets the step counters. Daily is required; weekly and
// monthly are applied when present.
func (p *Pet) applyStepStats(daily, weekly, monthly *activitySummaryPayload) error {
	if daily == nil {
		return fmt.Errorf("pet %s: missing daily step stats", p.id)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dailySteps = StepStats{Steps: daily.TotalSteps, Goal: daily.StepGoal, Distance: daily.TotalDistance}
	if weekly != nil {
		p.weeklySteps = StepStats{Steps: weekly.TotalSteps, Goal: weekly.StepGoal, Distance: weekly.TotalDistance}
	}
	if monthly != nil {
		p.monthlySteps = StepStats{Steps: monthly.TotalSteps, Goal: monthly.StepGoal, Distance: monthly.TotalDistance}
	}
	p.lastUpdated = time.Now()
	return nil
}

// applySleepFeed extracts the SLEEP and NAP durations from a rest summary
// feed into the given period.
func (p *Pet) applySleepFeed(period Period, feed *restFeedPayload) error {
	if feed == nil || len(feed.RestSummaries) == 0 {
		return fmt.Errorf("pet %s: empty %s rest summary feed", p.id, period)
	}

	amounts := feed.RestSummaries[0].Data.SleepAmounts
	if len(amounts) == 0 {
		p.log.Warn().Str("period", string(period)).Msg("rest summary without sleepAmounts, keeping previous values")
		return nil
	}

	var stats SleepStats
	for _, amount := range amounts {
		switch amount.Type {
		case "SLEEP":
			stats.SleepSeconds = amount.Duration
		case "NAP":
			stats.NapSeconds = amount.Duration
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch period {
	case PeriodDaily:
		p.dailySleep = stats
	case PeriodWeekly:
		p.weeklySleep = stats
	case PeriodMonthly:
		p.monthlySleep = stats
	default:
		return fmt.Errorf("pet %s: unknown sleep period %q", p.id, period)
	}
	p.lastUpdated = time.Now()
	return nil
}

// applyBehaviorTrends resets and refills the daily behavior metrics from a
// health-trends payload. Trends whose events summary is null are stats the
// collar hardware does not track and are skipped.
func (p *Pet) applyBehaviorTrends(trends []behaviorTrendPayload) {
	var stats BehaviorStats
	for _, trend := range trends {
		if trend.SummaryComponents == nil || trend.SummaryComponents.EventsSummary == nil {
			continue
		}

		count := 0
		if es := *trend.SummaryComponents.EventsSummary; strings.Contains(es, "event") {
			if fields := strings.Fields(es); len(fields) > 0 {
				count, _ = strconv.Atoi(fields[0])
			}
		}
		stat := BehaviorStat{
			Count:           count,
			DurationSeconds: parseDurationSummary(trend.SummaryComponents.DurationSummary),
		}

		switch trend.ID {
		case "barking:DAY":
			stats.Barking = stat
		case "cleaning_self:DAY":
			stats.Licking = stat
		case "scratching:DAY":
			stats.Scratching = stat
		case "eating:DAY":
			stats.Eating = stat
		case "drinking:DAY":
			stats.Drinking = stat
		}
	}

	p.mu.Lock()
	p.behavior = stats
	p.lastUpdated = time.Now()
	p.mu.Unlock()
}

// parseDurationSummary turns the human-readable duration the trends API
// reports ("<1m", "45m", "2h", "1h 5m") into seconds.
func parseDurationSummary(ds *string) int {
	if ds == nil || *ds == "" {
		return 0
	}
	s := *ds
	if strings.HasPrefix(s, "<") {
		return 30
	}

	stripped := strings.ReplaceAll(strings.ReplaceAll(s, "h", ""), "m", "")
	parts := strings.Fields(stripped)
	switch {
	case len(parts) == 2:
		hours, _ := strconv.Atoi(parts[0])
		minutes, _ := strconv.Atoi(parts[1])
		return hours*3600 + minutes*60
	case len(parts) == 1 && strings.Contains(s, "h"):
		hours, _ := strconv.Atoi(parts[0])
		return hours * 3600
	case len(parts) == 1:
		minutes, _ := strconv.Atoi(parts[0])
		return minutes * 60
	default:
		return 0
	}
}

// UpdateAllDetails refreshes every category of this pet from one full-detail
// fetch: device, activity, step stats, daily and monthly sleep, and, when the
// collar generation supports it, behavior trends. A failure in one category
// does not abort the others; the behavior fetch is log-only because older
// collars reject it routinely. The core fetch failing aborts the whole pet.
func (p *Pet) UpdateAllDetails(ctx context.Context, c *Client) error {
	p.ops.Lock()
	defer p.ops.Unlock()

	if p.device == nil {
		return fmt.Errorf("pet %s: no device, profile never applied", p.id)
	}

	full, err := c.getPetFullDetail(ctx, p.id)
	if err != nil {
		return err
	}

	var errs []error
	if err := p.device.applyPayload(full.Device); err != nil {
		errs = append(errs, fmt.Errorf("device: %w", err))
	}
	if err := p.applyActivity(full.OngoingActivity); err != nil {
		errs = append(errs, fmt.Errorf("activity: %w", err))
	}
	if err := p.applyStepStats(full.DailyStepStat, full.WeeklyStepStat, full.MonthlyStepStat); err != nil {
		errs = append(errs, fmt.Errorf("step stats: %w", err))
	}
	// weekly sleep is not part of the full-detail query
	if err := p.applySleepFeed(PeriodDaily, full.DailySleepStat); err != nil {
		errs = append(errs, fmt.Errorf("daily sleep: %w", err))
	}
	if err := p.applySleepFeed(PeriodMonthly, full.MonthlySleepStat); err != nil {
		errs = append(errs, fmt.Errorf("monthly sleep: %w", err))
	}

	if p.device.SupportsBehaviorStats() {
		if err := p.updateBehaviorStats(ctx, c); err != nil {
			p.log.Debug().Err(err).Msg("behavior stats unavailable, possibly an older collar model")
		}
	}

	return errors.Join(errs...)
}

func (p *Pet) updateBehaviorStats(ctx context.Context, c *Client) error {
	trends, err := c.getBehaviorTrends(ctx, p.id, "DAY")
	if err != nil {
		return err
	}
	p.applyBehaviorTrends(trends)
	return nil
}

// UpdateStats refreshes only the step counters.
func (p *Pet) UpdateStats(ctx context.Context, c *Client) error {
	p.ops.Lock()
	defer p.ops.Unlock()

	stats, err := c.getPetStats(ctx, p.id)
	if err != nil {
		return err
	}
	return p.applyStepStats(stats.DailyStat, stats.WeeklyStat, stats.MonthlyStat)
}

// UpdateRestStats refreshes sleep and nap durations for all periods,
// including the weekly window the full refresh skips.
func (p *Pet) UpdateRestStats(ctx context.Context, c *Client) error {
	p.ops.Lock()
	defer p.ops.Unlock()

	rest, err := c.getPetRestStats(ctx, p.id)
	if err != nil {
		return err
	}
	var errs []error
	if err := p.applySleepFeed(PeriodDaily, rest.DailyStat); err != nil {
		errs = append(errs, err)
	}
	if err := p.applySleepFeed(PeriodWeekly, rest.WeeklyStat); err != nil {
		errs = append(errs, err)
	}
	if err := p.applySleepFeed(PeriodMonthly, rest.MonthlyStat); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// UpdateLocation refreshes only the current activity and coordinates.
func (p *Pet) UpdateLocation(ctx context.Context, c *Client) error {
	p.ops.Lock()
	defer p.ops.Unlock()

	act, err := c.getPetLocation(ctx, p.id)
	if err != nil {
		return err
	}
	return p.applyActivity(act)
}

// UpdateDeviceDetails refreshes the profile and collar snapshot.
func (p *Pet) UpdateDeviceDetails(ctx context.Context, c *Client) error {
	p.ops.Lock()
	defer p.ops.Unlock()

	pl, err := c.getPetDevice(ctx, p.id)
	if err != nil {
		return err
	}
	return p.applyProfile(pl)
}

// SetLedColorCode sets the collar LED color. Commands never propagate
// errors; they report success and apply the returned device snapshot.
func (p *Pet) SetLedColorCode(ctx context.Context, c *Client, colorCode int) bool {
	p.ops.Lock()
	defer p.ops.Unlock()

	dev, err := c.setLedColor(ctx, p.device.ModuleID(), colorCode)
	if err != nil {
		p.log.Error().Err(err).Int("colorCode", colorCode).Msg("could not complete led color request")
		return false
	}
	if err := p.device.applyPayload(dev); err != nil {
		p.log.Warn().Err(err).Msg("led color updated but could not apply returned device state")
	}
	return true
}

// TurnOnOffLed enables or disables the collar LED.
func (p *Pet) TurnOnOffLed(ctx context.Context, c *Client, on bool) bool {
	p.ops.Lock()
	defer p.ops.Unlock()

	dev, err := c.setDeviceOperationParams(ctx, map[string]any{
		"moduleId":   p.device.ModuleID(),
		"ledEnabled": on,
	})
	if err != nil {
		p.log.Error().Err(err).Bool("on", on).Msg("could not complete led on/off request")
		return false
	}
	if err := p.device.applyPayload(dev); err != nil {
		p.log.Warn().Err(err).Msg("led switched but could not apply returned device state")
	}
	return true
}

// SetLostDogMode switches the collar between lost-dog and normal operation.
func (p *Pet) SetLostDogMode(ctx context.Context, c *Client, lost bool) bool {
	p.ops.Lock()
	defer p.ops.Unlock()

	mode := deviceModeNormal
	if lost {
		mode = deviceModeLost
	}
	dev, err := c.setDeviceOperationParams(ctx, map[string]any{
		"moduleId": p.device.ModuleID(),
		"mode":     mode,
	})
	if err != nil {
		p.log.Error().Err(err).Str("mode", mode).Msg("could not complete lost mode request")
		return false
	}
	if err := p.device.applyPayload(dev); err != nil {
		p.log.Warn().Err(err).Msg("mode switched but could not apply returned device state")
	}
	return true
}

func (p *Pet) ID() string { return p.id }

func (p *Pet) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *Pet) Breed() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.breed
}

func (p *Pet) Gender() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gender
}

// Weight is the pet's weight as reported, in the account's unit.
func (p *Pet) Weight() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.weight
}

func (p *Pet) HomeCityState() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.homeCityState
}

func (p *Pet) PhotoLink() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.photoLink
}

func (p *Pet) BirthDate() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Date(p.yearOfBirth, time.Month(p.monthOfBirth), p.dayOfBirth, 0, 0, 0, 0, time.UTC)
}

// Device is the collar paired with this pet.
func (p *Pet) Device() *Device {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.device
}

// IsLost reports whether the collar is in lost-dog mode.
func (p *Pet) IsLost() bool {
	d := p.Device()
	return d != nil && d.IsLost()
}

func (p *Pet) ActivityType() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.activityType
}

func (p *Pet) AreaName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.areaName
}

func (p *Pet) Latitude() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latitude
}

func (p *Pet) Longitude() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.longitude
}

// PositionAccuracy reports the position error radius when the last fix
// carried one.
func (p *Pet) PositionAccuracy() (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.posAccuracy == nil {
		return 0, false
	}
	return *p.posAccuracy, true
}

// PlaceName names the place the pet is resting at, when known.
func (p *Pet) PlaceName() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.placeName == nil {
		return "", false
	}
	return *p.placeName, true
}

// PlaceAddress is the address of the resting place, when known.
func (p *Pet) PlaceAddress() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.placeAddress == nil {
		return "", false
	}
	return *p.placeAddress, true
}

func (p *Pet) ActivityStart() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.activityStart
}

func (p *Pet) LocationLastReported() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.locationLastReport
}

func (p *Pet) LastUpdated() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastUpdated
}

// StepStats returns the step counters for one period.
func (p *Pet) StepStats(period Period) StepStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch period {
	case PeriodWeekly:
		return p.weeklySteps
	case PeriodMonthly:
		return p.monthlySteps
	default:
		return p.dailySteps
	}
}

// SleepStats returns the rest durations for one period.
func (p *Pet) SleepStats(period Period) SleepStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch period {
	case PeriodWeekly:
		return p.weeklySleep
	case PeriodMonthly:
		return p.monthlySleep
	default:
		return p.dailySleep
	}
}

// Behavior returns the daily behavior metrics. Zero for collars that do not
// support behavior tracking.
func (p *Pet) Behavior() BehaviorStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.behavior
}

// snapshot captures the fields the refresh coordinator diffs.
func (p *Pet) snapshot() PetSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := PetSnapshot{
		ID:        p.id,
		Name:      p.name,
		PlaceName: p.placeName,
	}
	if p.device != nil {
		snap.BatteryPercent = p.device.BatteryPercent()
		snap.IsLost = p.device.IsLost()
		snap.ConnectionState = p.device.ConnectionState().Type
	}
	return snap
}
