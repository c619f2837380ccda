package tryfi

import (
	"fmt"
	"time"
)

// Base is a stationary charging/connectivity station. Bases are immutable:
// every base-list refresh rebuilds the whole collection instead of mutating
// in place, so readers must re-resolve by id each cycle.
type Base struct {
	id              string
	name            string
	online          bool
	onlineQuality   string
	networkName     string
	latitude        float64
	longitude       float64
	infoLastUpdated time.Time
}

func newBaseFromPayload(p basePayload) (*Base, error) {
	updated, err := parseAPITime(p.InfoLastUpdated)
	if err != nil {
		return nil, fmt.Errorf("base %s: %w", p.BaseID, err)
	}
	b := &Base{
		id:              p.BaseID,
		name:            p.Name,
		online:          p.Online,
		onlineQuality:   p.OnlineQuality,
		networkName:     p.NetworkName,
		infoLastUpdated: updated,
	}
	if p.Position != nil {
		b.latitude = p.Position.Latitude
		b.longitude = p.Position.Longitude
	}
	return b, nil
}

func (b *Base) ID() string   { return b.id }
func (b *Base) Name() string { return b.name }

func (b *Base) Online() bool { return b.online }

// OnlineQuality is the remote's health classification for the base uplink,
// e.g. ONLINE_QUALITY_OK.
func (b *Base) OnlineQuality() string { return b.onlineQuality }

// NetworkName is the SSID the base is joined to.
func (b *Base) NetworkName() string { return b.networkName }

func (b *Base) Latitude() float64  { return b.latitude }
func (b *Base) Longitude() float64 { return b.longitude }

func (b *Base) InfoLastUpdated() time.Time { return b.infoLastUpdated }
