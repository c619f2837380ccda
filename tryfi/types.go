package tryfi

// Raw shapes of the GraphQL payloads, decoded loosely with decodePayload.
// Field names follow the remote's camelCase keys; matching is
// case-insensitive so no tags are needed except where keys and Go names
// diverge. Optional nested objects are pointers so absence survives decode.

type currentUserPayload struct {
	ID             string
	Email          string
	FirstName      string
	LastName       string
	PhoneNumber    string
	UserHouseholds []userHouseholdPayload
}

type userHouseholdPayload struct {
	Household householdPayload
}

type householdPayload struct {
	Pets  []petPayload
	Bases []basePayload
}

type petPayload struct {
	ID              string
	Name            string
	HomeCityState   string
	YearOfBirth     int
	MonthOfBirth    int
	DayOfBirth      int
	Gender          string
	Weight          float64
	IsPurebred      bool
	Breed           *breedPayload
	Photos          *photosPayload
	Device          *devicePayload
	OngoingActivity *activityPayload
}

type breedPayload struct {
	ID   string
	Name string
}

type photosPayload struct {
	First *photoPayload
	Items []photoPayload
}

type photoPayload struct {
	ID    string
	Date  string
	Image *struct {
		FullSize string
	}
}

type devicePayload struct {
	ID                           string
	ModuleID                     string `mapstructure:"moduleId"`
	Info                         any
	NextLocationUpdateExpectedBy string
	OperationParams              *operationParamsPayload
	LastConnectionState          *connectionStatePayload
	LedColor                     *ledColorPayload
	AvailableLedColors           []ledColorPayload
}

type operationParamsPayload struct {
	Mode       string
	LedEnabled bool
	LedOffAt   string
}

type connectionStatePayload struct {
	Typename              string `mapstructure:"__typename"`
	Date                  string
	SignalStrengthPercent *float64
	ChargingBase          *struct {
		ID string
	}
	User *currentUserPayload
}

type ledColorPayload struct {
	LedColorCode int
	HexCode      string
	Name         string
}

type basePayload struct {
	BaseID          string `mapstructure:"baseId"`
	Name            string
	Online          bool
	OnlineQuality   string
	NetworkName     string
	InfoLastUpdated string
	Position        *positionPayload
}

type positionPayload struct {
	Latitude  float64
	Longitude float64
}

type activityPayload struct {
	Typename            string `mapstructure:"__typename"`
	Start               string
	LastReportTimestamp string
	AreaName            string
	Distance            float64
	Positions           []locationPointPayload
	Position            *positionPayload
	Place               *placePayload
}

type locationPointPayload struct {
	Date        string
	ErrorRadius *float64
	Position    positionPayload
}

type placePayload struct {
	ID       string
	Name     string
	Address  string
	Radius   float64
	Position *positionPayload
}

type activitySummaryPayload struct {
	TotalSteps    int
	StepGoal      int
	TotalDistance float64
}

type restFeedPayload struct {
	RestSummaries []restSummaryPayload
}

type restSummaryPayload struct {
	Start string
	End   string
	Data  restDataPayload
}

type restDataPayload struct {
	SleepAmounts []sleepAmountPayload
}

type sleepAmountPayload struct {
	Type     string
	Duration int
}

// petFullPayload is the shape of the periodic full-detail refresh. Weekly
// sleep is intentionally absent; the query only asks for daily and monthly.
type petFullPayload struct {
	OngoingActivity  *activityPayload
	DailyStepStat    *activitySummaryPayload
	WeeklyStepStat   *activitySummaryPayload
	MonthlyStepStat  *activitySummaryPayload
	Device           *devicePayload
	DailySleepStat   *restFeedPayload
	MonthlySleepStat *restFeedPayload
}

type petStatsPayload struct {
	DailyStat   *activitySummaryPayload
	WeeklyStat  *activitySummaryPayload
	MonthlyStat *activitySummaryPayload
}

type petRestPayload struct {
	DailyStat   *restFeedPayload
	WeeklyStat  *restFeedPayload
	MonthlyStat *restFeedPayload
}

type behaviorTrendPayload struct {
	ID                string
	Title             string
	SummaryComponents *summaryComponentsPayload
}

type summaryComponentsPayload struct {
	// nil when the collar hardware does not support the stat
	EventsSummary   *string
	DurationSummary *string
}

// deviceInfoPayload is the interesting subset of the device info blob.
type deviceInfoPayload struct {
	BuildID        string `mapstructure:"buildId"`
	BatteryPercent int
	IsCharging     bool
	Bq27421Info    *struct {
		BatteryHealthPercent int
	}
	Manifest map[string]any
}
