package poller

// LocationChanged fires when a pet's resting place name changes between
// refresh cycles.
type LocationChanged struct {
	PetID       string
	PetName     string
	OldLocation string
	NewLocation string
}

// LowBattery fires when a collar battery crosses the threshold downward. It
// does not re-fire while the battery stays low.
type LowBattery struct {
	PetID        string
	PetName      string
	BatteryLevel int
}

// LostModeChanged fires when a collar switches between lost-dog and normal
// operation.
type LostModeChanged struct {
	PetID   string
	PetName string
	IsLost  bool
}

// ConnectionChanged fires when a collar's connection state type changes.
type ConnectionChanged struct {
	PetID       string
	PetName     string
	OldState    string
	NewState    string
	IsConnected bool
}

// Callbacks receive refresh outcomes and change notifications. Nil entries
// are skipped. Callbacks run on the poll loop goroutine; keep them short.
type Callbacks struct {
	// Refreshed runs after every successful cycle, after change events.
	Refreshed func()
	// RefreshFailed runs when a cycle fails; the previous snapshot stays
	// readable on the domain model.
	RefreshFailed func(error)

	LocationChanged   func(LocationChanged)
	LowBattery        func(LowBattery)
	LostModeChanged   func(LostModeChanged)
	ConnectionChanged func(ConnectionChanged)
}
