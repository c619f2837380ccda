package tryfi

import (
	"fmt"
	"regexp"
	"strings"
)

// The catalog below carries the exact query and fragment texts the tryfi.com
// GraphQL endpoint expects. Queries are assembled by concatenating the query
// body with every fragment its spreads reference; a query missing a fragment
// is rejected by the remote, so VerifyCatalog checks the closure once.

const petIDVar = "__PET_ID__"

var fragments = map[string]string{
	"ActivitySummaryDetails": "fragment ActivitySummaryDetails on ActivitySummary {  __typename  totalSteps  stepGoal  totalDistance}",
	"BaseDetails":            "fragment BaseDetails on ChargingBase {  __typename  baseId  name  position {    __typename    ...PositionCoordinates  }  infoLastUpdated  networkName  online  onlineQuality}",
	"BasePetProfile":         "fragment BasePetProfile on BasePet {  __typename  id  name  homeCityState  yearOfBirth  monthOfBirth  dayOfBirth  gender  weight  isPurebred  breed {    __typename    ...BreedDetails  }  photos {    __typename    first {      __typename      ...PhotoDetails    }    items {      __typename      ...PhotoDetails    }  }  }",
	"BreedDetails":           "fragment BreedDetails on Breed {  __typename  id  name  }",
	"ConnectionStateDetails": "fragment ConnectionStateDetails on ConnectionState {  __typename  date  ... on ConnectedToUser {    user {      __typename      ...UserDetails    }  }  ... on ConnectedToBase {    chargingBase {      __typename      id    }  }  ... on ConnectedToCellular {    signalStrengthPercent  }  ... on UnknownConnectivity {    unknownConnectivity  }}",
	"DeviceDetails":          "fragment DeviceDetails on Device {  __typename  id  moduleId  info  nextLocationUpdateExpectedBy  operationParams {    __typename    ...OperationParamsDetails  }  lastConnectionState {    __typename    ...ConnectionStateDetails  }  ledColor {    __typename    ...LedColorDetails  }  availableLedColors {    __typename    ...LedColorDetails  }}",
	"LedColorDetails":        "fragment LedColorDetails on LedColor {  __typename  ledColorCode  hexCode  name}",
	"LocationPoint":          "fragment LocationPoint on Location {  __typename  date  errorRadius  position {    __typename    ...PositionCoordinates  }}",
	"OngoingActivityDetails": "fragment OngoingActivityDetails on OngoingActivity {  __typename  start  lastReportTimestamp  areaName  ... on OngoingWalk {    distance    positions {      __typename      ...LocationPoint    }    path {      __typename      ...PositionCoordinates    }  }  ... on OngoingRest {    position {      __typename      ...PositionCoordinates    }    place {      __typename      ...PlaceDetails    }  }}",
	"OperationParamsDetails": "fragment OperationParamsDetails on OperationParams {  __typename  mode  ledEnabled  ledOffAt}",
	"PetProfile":             "fragment PetProfile on Pet {  __typename  ...BasePetProfile  chip {    __typename    shortId  }  device {    __typename    ...DeviceDetails  }}",
	"PhotoDetails":           "fragment PhotoDetails on Photo {  __typename  id  date  image {    __typename    fullSize  }}",
	"PlaceDetails":           "fragment PlaceDetails on Place {  __typename  id  name  address  position {    __typename    ...PositionCoordinates  }  radius}",
	"PositionCoordinates":    "fragment PositionCoordinates on Position {  __typename  latitude  longitude}",
	"RestSummaryDetails":     "fragment RestSummaryDetails on RestSummary {  __typename  start  end  data {    __typename    ... on ConcreteRestSummaryData {      sleepAmounts {        __typename        type        duration      }    }  }}",
	"UserDetails":            "fragment UserDetails on User {  __typename   id  email  firstName  lastName  phoneNumber }",
	"UserFullDetails":        "fragment UserFullDetails on User {  __typename  ...UserDetails  userHouseholds {    __typename    household {      __typename      pets {        __typename        ...PetProfile      }      bases {        __typename        ...BaseDetails      }    }  }}",
}

type queryDef struct {
	text      string
	fragments []string
}

const (
	queryHousehold   = "household"
	queryBaseList    = "baseList"
	queryPetFull     = "petFull"
	queryPetStats    = "petStats"
	queryPetRest     = "petRest"
	queryPetLocation = "petLocation"
	queryPetDevice   = "petDevice"

	mutationSetLedColor = "setLedColor"
	mutationDeviceOps   = "deviceOps"
)

var catalog = map[string]queryDef{
	queryHousehold: {
		text: "query {  currentUser {    ...UserFullDetails  }}",
		fragments: []string{
			"UserDetails", "UserFullDetails", "PetProfile", "BasePetProfile",
			"BaseDetails", "PositionCoordinates", "BreedDetails", "PhotoDetails",
			"DeviceDetails", "LedColorDetails", "OperationParamsDetails",
			"ConnectionStateDetails",
		},
	},
	queryBaseList: {
		text:      "query { currentUser { userHouseholds { household { bases { __typename ...BaseDetails }}}}}",
		fragments: []string{"BaseDetails", "PositionCoordinates"},
	},
	queryPetFull: {
		text: "query {  pet (id: \"" + petIDVar + "\") { ongoingActivity { __typename ...OngoingActivityDetails } dailyStepStat: currentActivitySummary (period: DAILY) { ...ActivitySummaryDetails } weeklyStepStat: currentActivitySummary (period: WEEKLY) { ...ActivitySummaryDetails } monthlyStepStat: currentActivitySummary (period: MONTHLY) { ...ActivitySummaryDetails } device { __typename moduleId info operationParams {    __typename    ...OperationParamsDetails  }  nextLocationUpdateExpectedBy  lastConnectionState {    __typename    ...ConnectionStateDetails  }  ledColor {    __typename    ...LedColorDetails }} dailySleepStat: restSummaryFeed(cursor: null, period: DAILY, limit: 1) {      __typename      restSummaries {        __typename        ...RestSummaryDetails }} monthlySleepStat: restSummaryFeed(cursor: null, period: MONTHLY, limit: 1) {      __typename      restSummaries {        __typename        ...RestSummaryDetails }} }}",
		fragments: []string{
			"ActivitySummaryDetails", "OngoingActivityDetails",
			"OperationParamsDetails", "ConnectionStateDetails", "LedColorDetails",
			"RestSummaryDetails", "PositionCoordinates", "LocationPoint",
			"UserDetails", "PlaceDetails",
		},
	},
	queryPetStats: {
		text:      "query {  pet (id: \"" + petIDVar + "\") {       dailyStat: currentActivitySummary (period: DAILY) {      ...ActivitySummaryDetails    }    weeklyStat: currentActivitySummary (period: WEEKLY) {      ...ActivitySummaryDetails    }    monthlyStat: currentActivitySummary (period: MONTHLY) {      ...ActivitySummaryDetails    }  }}",
		fragments: []string{"ActivitySummaryDetails"},
	},
	queryPetRest: {
		text:      "query {  pet (id: \"" + petIDVar + "\") {\tdailyStat: restSummaryFeed(cursor: null, period: DAILY, limit: 1) {      __typename      restSummaries {        __typename        ...RestSummaryDetails      }    }\tweeklyStat: restSummaryFeed(cursor: null, period: WEEKLY, limit: 1) {      __typename      restSummaries {        __typename        ...RestSummaryDetails      }    }\tmonthlyStat: restSummaryFeed(cursor: null, period: MONTHLY, limit: 1) {      __typename      restSummaries {        __typename        ...RestSummaryDetails      }    }  }}",
		fragments: []string{"RestSummaryDetails"},
	},
	queryPetLocation: {
		text:      "query {  pet (id: \"" + petIDVar + "\") {    ongoingActivity {      __typename      ...OngoingActivityDetails    }  }}",
		fragments: []string{"OngoingActivityDetails", "LocationPoint", "PlaceDetails", "PositionCoordinates"},
	},
	queryPetDevice: {
		text: "query {  pet (id: \"" + petIDVar + "\") {    __typename    ...PetProfile  }}",
		fragments: []string{
			"PetProfile", "BasePetProfile", "DeviceDetails", "LedColorDetails",
			"OperationParamsDetails", "ConnectionStateDetails", "UserDetails",
			"BreedDetails", "PhotoDetails",
		},
	},
	mutationSetLedColor: {
		text: "mutation SetDeviceLed($moduleId: String!, $ledColorCode: Int!) {  setDeviceLed(moduleId: $moduleId, ledColorCode: $ledColorCode) {    __typename    ...DeviceDetails  }}",
		fragments: []string{
			"DeviceDetails", "OperationParamsDetails", "ConnectionStateDetails",
			"UserDetails", "LedColorDetails",
		},
	},
	mutationDeviceOps: {
		text: "mutation UpdateDeviceOperationParams($input: UpdateDeviceOperationParamsInput!) {  updateDeviceOperationParams(input: $input) {    __typename    ...DeviceDetails  }}",
		fragments: []string{
			"DeviceDetails", "OperationParamsDetails", "ConnectionStateDetails",
			"UserDetails", "LedColorDetails",
		},
	},
}

// buildQuery assembles the named catalog entry with all of its fragments.
func buildQuery(name string) (string, error) {
	def, ok := catalog[name]
	if !ok {
		return "", fmt.Errorf("unknown catalog entry %q", name)
	}

	var b strings.Builder
	b.WriteString(def.text)
	for _, fname := range def.fragments {
		frag, ok := fragments[fname]
		if !ok {
			return "", fmt.Errorf("catalog entry %q references unknown fragment %q", name, fname)
		}
		b.WriteString(frag)
	}
	return b.String(), nil
}

// buildPetQuery assembles a catalog entry and substitutes the pet id.
func buildPetQuery(name, petID string) (string, error) {
	q, err := buildQuery(name)
	if err != nil {
		return "", err
	}
	if !strings.Contains(q, petIDVar) {
		return "", fmt.Errorf("catalog entry %q has no pet id variable", name)
	}
	return strings.ReplaceAll(q, petIDVar, petID), nil
}

// buildBehaviorTrendsQuery returns the health-trends query for one pet.
// Behavior trends live on a newer endpoint that takes its arguments inline
// rather than through the fragment catalog.
func buildBehaviorTrendsQuery(petID, period string) string {
	return fmt.Sprintf(`
    query PetHealthTrends {
        getPetHealthTrendsForPet(petId: "%s", period: %s) {
            behaviorTrends {
                __typename
                id
                title
                summaryComponents {
                    __typename
                    eventsSummary
                    durationSummary
                }
            }
        }
    }
    `, petID, period)
}

// Matches named fragment spreads ("...BaseDetails"); inline type conditions
// ("... on OngoingWalk") have a space after the ellipsis and do not match.
var fragmentSpreadRe = regexp.MustCompile(`\.\.\.([A-Za-z][A-Za-z0-9]*)`)

// VerifyCatalog checks that every named fragment spread in every assembled
// query has its fragment definition included. Called once at startup; the
// catalog is immutable afterwards.
func VerifyCatalog() error {
	for name := range catalog {
		q, err := buildQuery(name)
		if err != nil {
			return err
		}
		for _, m := range fragmentSpreadRe.FindAllStringSubmatch(q, -1) {
			spread := m[1]
			if spread == "on" {
				continue
			}
			if !strings.Contains(q, "fragment "+spread+" on ") {
				return fmt.Errorf("catalog entry %q is missing fragment %q", name, spread)
			}
		}
	}
	return nil
}
