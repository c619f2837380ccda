package tryfi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const householdResponse = `{"data":{"currentUser":{"__typename":"User","id":"u-1","email":"owner@example.com","firstName":"Ola","lastName":"Nordmann","phoneNumber":"12345678",
  "userHouseholds":[{"household":{
    "pets":[
      {"id":"p1","name":"Rex","homeCityState":"Oslo, NO","yearOfBirth":2020,"monthOfBirth":5,"dayOfBirth":2,"gender":"MALE","weight":12.5,
       "breed":{"id":"br1","name":"Beagle"},
       "photos":{"first":{"image":{"fullSize":"https://img.example/rex.jpg"}}},
       "device":{"__typename":"Device","moduleId":"M1","info":{"buildId":"fw-3.20","batteryPercent":80,"isCharging":false,"manifest":{"nrf52840App":{}}},"nextLocationUpdateExpectedBy":"2025-08-01T10:05:00Z","operationParams":{"mode":"NORMAL","ledEnabled":true,"ledOffAt":""},"lastConnectionState":{"__typename":"ConnectedToCellular","date":"2025-08-01T10:00:00Z","signalStrengthPercent":88},"ledColor":{"ledColorCode":2,"hexCode":"#0000ff","name":"Blue"}},
       "ongoingActivity":{"__typename":"OngoingRest","start":"2025-08-01T09:00:00Z","lastReportTimestamp":"2025-08-01T10:00:00Z","areaName":"Home","position":{"latitude":59.91,"longitude":10.75},"place":{"id":"pl1","name":"Home","address":"Main st 1"}}},
      {"id":"p2","name":"Strayless","device":null}
    ],
    "bases":[{"__typename":"ChargingBase","baseId":"b1","name":"Kitchen","online":true,"onlineQuality":"ONLINE_QUALITY_OK","networkName":"wifi-home","infoLastUpdated":"2025-08-01T10:00:00Z","position":{"latitude":59.9,"longitude":10.7}}]
  }}]}}}`

const baseListResponseFmt = `{"data":{"currentUser":{"userHouseholds":[{"household":{"bases":[{"__typename":"ChargingBase","baseId":"b1","name":%q,"online":true,"onlineQuality":"ONLINE_QUALITY_OK","networkName":"wifi-home","infoLastUpdated":"2025-08-01T11:00:00Z","position":{"latitude":59.9,"longitude":10.7}}]}}]}}}`

// fakeAPI plays the remote for household tests: login plus the GraphQL
// queries routed by their distinguishing text.
type fakeAPI struct {
	t *testing.T

	baseName     string
	baseFailures int    // this many base-list calls return 401 before recovering
	baseError    string // when set, base-list calls return a GraphQL error
	petError     string // when set, pet detail calls return a GraphQL error
	loginFails   bool

	loginCalls int
	baseCalls  int
	petCalls   int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case loginPath:
		f.loginCalls++
		if f.loginFails {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":{"message":"login rejected"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"userId":"u-1","sessionId":"s-2"}`)
	case graphqlPath:
		q := r.URL.Query().Get("query")
		switch {
		case strings.Contains(q, "UserFullDetails"):
			_, _ = io.WriteString(w, householdResponse)
		case strings.Contains(q, "getPetHealthTrendsForPet"):
			_, _ = io.WriteString(w, `{"data":{"getPetHealthTrendsForPet":{"behaviorTrends":[]}}}`)
		case strings.Contains(q, "dailyStepStat"):
			f.petCalls++
			if f.petError != "" {
				_, _ = io.WriteString(w, `{"errors":[{"message":"`+f.petError+`"}]}`)
				return
			}
			_, _ = io.WriteString(w, petFullResponse)
		case strings.Contains(q, "...BaseDetails"):
			f.baseCalls++
			if f.baseFailures > 0 {
				f.baseFailures--
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if f.baseError != "" {
				_, _ = io.WriteString(w, `{"errors":[{"message":"`+f.baseError+`"}]}`)
				return
			}
			_, _ = fmt.Fprintf(w, baseListResponseFmt, f.baseName)
		default:
			f.t.Fatalf("unrouted query: %s", q)
		}
	default:
		f.t.Fatalf("unrouted path: %s", r.URL.Path)
	}
}

func newTestHousehold(t *testing.T, api *fakeAPI) *Household {
	t.Helper()
	if api.baseName == "" {
		api.baseName = "Kitchen"
	}
	c := testClient(t, api)
	h, err := NewHousehold(context.Background(), c, zerolog.Nop())
	require.NoError(t, err)
	return h
}

func TestNewHousehold(t *testing.T) {
	h := newTestHousehold(t, &fakeAPI{t: t})

	u := h.CurrentUser()
	require.NotNil(t, u)
	assert.Equal(t, "u-1", u.ID())
	assert.Equal(t, "owner@example.com", u.Email())
	assert.Equal(t, "Ola Nordmann", u.FullName())

	// the collarless pet is not part of the model
	require.Len(t, h.Pets(), 1)
	pet := h.GetPet("p1")
	require.NotNil(t, pet)
	assert.Equal(t, "Rex", pet.Name())
	assert.Equal(t, 80, pet.Device().BatteryPercent())
	name, ok := pet.PlaceName()
	require.True(t, ok)
	assert.Equal(t, "Home", name)
	assert.Nil(t, h.GetPet("p2"))

	require.Len(t, h.Bases(), 1)
	base := h.GetBase("b1")
	require.NotNil(t, base)
	assert.Equal(t, "Kitchen", base.Name())
	assert.True(t, base.Online())
	assert.Equal(t, "wifi-home", base.NetworkName())
	assert.Equal(t, time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC), base.InfoLastUpdated())
	assert.Nil(t, h.GetBase("b9"))
}

func TestUpdateRefreshesPetsAndReplacesBases(t *testing.T) {
	api := &fakeAPI{t: t}
	h := newTestHousehold(t, api)

	before := h.GetBase("b1")
	api.baseName = "Hallway"

	require.NoError(t, h.Update(context.Background()))

	after := h.GetBase("b1")
	require.NotNil(t, after)
	assert.NotSame(t, before, after)
	assert.Equal(t, "Hallway", after.Name())

	// pet is the same object, refreshed in place
	pet := h.GetPet("p1")
	assert.Equal(t, 64, pet.Device().BatteryPercent())
	assert.Equal(t, StepStats{Steps: 1200, Goal: 7000, Distance: 950.5}, pet.StepStats(PeriodDaily))
}

func TestUpdateBaseFailureDoesNotBlockPets(t *testing.T) {
	api := &fakeAPI{t: t, baseError: "base roster exploded"}
	h := newTestHousehold(t, api)

	err := h.Update(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base roster exploded")
	assert.NotContains(t, err.Error(), "updating pet")

	// the pet side still refreshed
	assert.Equal(t, 64, h.GetPet("p1").Device().BatteryPercent())
}

func TestUpdatePetFailureDoesNotBlockBases(t *testing.T) {
	api := &fakeAPI{t: t, petError: "pet feed exploded"}
	h := newTestHousehold(t, api)

	api.baseName = "Hallway"
	err := h.Update(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pet feed exploded")
	assert.NotContains(t, err.Error(), "updating bases")

	// the base side still refreshed
	assert.Equal(t, "Hallway", h.GetBase("b1").Name())
}

func TestUpdateReauthenticatesOnce(t *testing.T) {
	api := &fakeAPI{t: t, baseFailures: 1}
	h := newTestHousehold(t, api)

	require.NoError(t, h.Update(context.Background()))

	assert.Equal(t, 1, api.loginCalls)
	assert.Equal(t, 2, api.baseCalls, "failed side retried exactly once")
	assert.Equal(t, 1, api.petCalls, "healthy side not retried")
}

func TestUpdateReloginFailure(t *testing.T) {
	api := &fakeAPI{t: t, baseFailures: 2, loginFails: true}
	h := newTestHousehold(t, api)

	err := h.Update(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.ErrorIs(t, err, ErrLogin)
	assert.Contains(t, err.Error(), "re-authentication failed")
	assert.Equal(t, 1, api.loginCalls)
	assert.Equal(t, 1, api.baseCalls, "no retry without a fresh session")
}

func TestPetSnapshots(t *testing.T) {
	h := newTestHousehold(t, &fakeAPI{t: t})

	snaps := h.PetSnapshots()
	require.Len(t, snaps, 1)
	s := snaps[0]
	assert.Equal(t, "p1", s.ID)
	assert.Equal(t, "Rex", s.Name)
	require.NotNil(t, s.PlaceName)
	assert.Equal(t, "Home", *s.PlaceName)
	assert.Equal(t, 80, s.BatteryPercent)
	assert.False(t, s.IsLost)
	assert.Equal(t, ConnectedToCellular, s.ConnectionState)
}
