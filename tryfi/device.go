package tryfi

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Collar operation modes as the remote reports them.
const (
	deviceModeNormal = "NORMAL"
	deviceModeLost   = "LOST_DOG"
)

// Connection state type names from the ConnectionState union.
const (
	ConnectedToCellular = "ConnectedToCellular"
	ConnectedToBase     = "ConnectedToBase"
	ConnectedToUser     = "ConnectedToUser"
	UnknownConnectivity = "UnknownConnectivity"
)

// LedColor is one selectable collar LED color.
type LedColor struct {
	Code int
	Hex  string
	Name string
}

// ConnectionState is the collar's last known uplink: the union type name
// plus whichever sub-detail that type carries.
type ConnectionState struct {
	Type                  string
	Date                  time.Time
	SignalStrengthPercent int    // cellular only
	BaseID                string // base only
	UserName              string // user only
}

// Detail renders the state's sub-detail for logs and topics.
func (s ConnectionState) Detail() string {
	switch s.Type {
	case ConnectedToCellular:
		return fmt.Sprintf("%d%% signal", s.SignalStrengthPercent)
	case ConnectedToBase:
		return s.BaseID
	case ConnectedToUser:
		return s.UserName
	default:
		return ""
	}
}

// Connected reports whether the collar is reachable over cellular or a base.
func (s ConnectionState) Connected() bool {
	return s.Type == ConnectedToCellular || s.Type == ConnectedToBase
}

// Device is the tracking collar paired 1:1 with a pet. Identity is the
// module id, immutable once assigned. Updated by the pet refreshes that
// embed device details and by command responses carrying a fresh snapshot.
type Device struct {
	mu sync.RWMutex

	moduleID             string
	buildID              string
	batteryPercent       int
	batteryHealthPercent int
	isCharging           bool
	ledOn                bool
	ledColor             LedColor
	availableLedColors   []LedColor
	connectionState      ConnectionState
	isLost               bool
	nextLocationUpdate   time.Time
	supportsBehavior     bool
}

func newDevice(moduleID string) *Device {
	return &Device{moduleID: moduleID}
}

// applyPayload folds a device snapshot into the collar state.
func (d *Device) applyPayload(p *devicePayload) error {
	if p == nil {
		return fmt.Errorf("nil device payload")
	}

	next, err := parseAPITime(p.NextLocationUpdateExpectedBy)
	if err != nil {
		return fmt.Errorf("device %s: %w", d.moduleID, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.moduleID == "" {
		d.moduleID = p.ModuleID
	}
	d.nextLocationUpdate = next

	if info, ok := looseJSONMap(p.Info); ok {
		var parsed deviceInfoPayload
		if err := decodePayload(info, &parsed); err != nil {
			return fmt.Errorf("device %s: decoding info blob: %w", d.moduleID, err)
		}
		d.buildID = parsed.BuildID
		d.batteryPercent = parsed.BatteryPercent
		d.isCharging = parsed.IsCharging
		if parsed.Bq27421Info != nil {
			d.batteryHealthPercent = parsed.Bq27421Info.BatteryHealthPercent
		}
		// Series 3 hardware carries the nRF9160 modem; older collars never
		// report it and do not serve behavior trends.
		_, d.supportsBehavior = parsed.Manifest["nrf9160"]
	}

	if p.OperationParams != nil {
		d.isLost = strings.EqualFold(p.OperationParams.Mode, deviceModeLost)
		d.ledOn = p.OperationParams.LedEnabled
	}

	if p.LedColor != nil {
		d.ledColor = LedColor{Code: p.LedColor.LedColorCode, Hex: p.LedColor.HexCode, Name: p.LedColor.Name}
	}
	if len(p.AvailableLedColors) > 0 {
		colors := make([]LedColor, 0, len(p.AvailableLedColors))
		for _, c := range p.AvailableLedColors {
			colors = append(colors, LedColor{Code: c.LedColorCode, Hex: c.HexCode, Name: c.Name})
		}
		d.availableLedColors = colors
	}

	if cs := p.LastConnectionState; cs != nil {
		date, err := parseAPITime(cs.Date)
		if err != nil {
			return fmt.Errorf("device %s: %w", d.moduleID, err)
		}
		state := ConnectionState{Type: cs.Typename, Date: date}
		switch {
		case cs.SignalStrengthPercent != nil:
			state.SignalStrengthPercent = int(*cs.SignalStrengthPercent)
		case cs.ChargingBase != nil:
			state.BaseID = cs.ChargingBase.ID
		case cs.User != nil:
			state.UserName = strings.TrimSpace(cs.User.FirstName + " " + cs.User.LastName)
		}
		d.connectionState = state
	}

	return nil
}

func (d *Device) ModuleID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.moduleID
}

// BuildID is the collar firmware build identifier.
func (d *Device) BuildID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buildID
}

func (d *Device) BatteryPercent() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.batteryPercent
}

func (d *Device) BatteryHealthPercent() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.batteryHealthPercent
}

func (d *Device) IsCharging() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isCharging
}

func (d *Device) LedOn() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ledOn
}

func (d *Device) LedColor() LedColor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ledColor
}

func (d *Device) AvailableLedColors() []LedColor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]LedColor, len(d.availableLedColors))
	copy(out, d.availableLedColors)
	return out
}

func (d *Device) ConnectionState() ConnectionState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connectionState
}

// IsLost reports whether the collar is in lost-dog mode.
func (d *Device) IsLost() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isLost
}

func (d *Device) NextLocationUpdate() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.nextLocationUpdate
}

// SupportsBehaviorStats reports whether the collar generation serves the
// behavior trends endpoint.
func (d *Device) SupportsBehaviorStats() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.supportsBehavior
}
