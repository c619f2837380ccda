package tryfi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyCatalog(t *testing.T) {
	require.NoError(t, VerifyCatalog())
}

func TestBuildQueryIncludesDeclaredFragments(t *testing.T) {
	for name, def := range catalog {
		q, err := buildQuery(name)
		require.NoError(t, err, name)
		for _, fname := range def.fragments {
			assert.Contains(t, q, "fragment "+fname+" on ", "%s should embed %s", name, fname)
		}
	}
}

func TestBuildQueryUnknownEntry(t *testing.T) {
	_, err := buildQuery("noSuchQuery")
	require.Error(t, err)
}

func TestBuildPetQuerySubstitutesID(t *testing.T) {
	q, err := buildPetQuery(queryPetFull, "pet-1234")
	require.NoError(t, err)
	assert.NotContains(t, q, petIDVar)
	assert.Contains(t, q, `pet (id: "pet-1234")`)
}

func TestBuildPetQueryRejectsNonPetEntry(t *testing.T) {
	_, err := buildPetQuery(queryHousehold, "pet-1234")
	require.Error(t, err)
}

func TestBuildBehaviorTrendsQuery(t *testing.T) {
	q := buildBehaviorTrendsQuery("pet-9", "DAY")
	assert.Contains(t, q, `getPetHealthTrendsForPet(petId: "pet-9", period: DAY)`)
	assert.Contains(t, q, "behaviorTrends")
}

func TestFragmentSpreadRegexpSkipsInlineConditions(t *testing.T) {
	matches := fragmentSpreadRe.FindAllStringSubmatch("... on OngoingWalk ...LocationPoint", -1)
	var names []string
	for _, m := range matches {
		if m[1] != "on" {
			names = append(names, m[1])
		}
	}
	assert.Equal(t, []string{"LocationPoint"}, names)
}

func TestMutationsTakeVariables(t *testing.T) {
	for _, name := range []string{mutationSetLedColor, mutationDeviceOps} {
		q, err := buildQuery(name)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(q, "mutation "), "%s should be a mutation", name)
	}
}
