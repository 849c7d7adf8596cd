package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slotwise/reservation-engine/internal/models"
)

func TestCanBePerformedBy_AnyMatchesEverything(t *testing.T) {
	treatment := &models.Treatment{RequiredStaffLevel: models.StaffLevelAny}
	staff := &models.User{}

	assert.True(t, CanBePerformedBy(treatment, staff))
}

func TestCanBePerformedBy_MissingSkillDefaultsToJunior(t *testing.T) {
	treatment := &models.Treatment{RequiredStaffLevel: models.StaffLevelJunior}
	staff := &models.User{} // SkillLevel unset

	assert.True(t, CanBePerformedBy(treatment, staff))

	treatment.RequiredStaffLevel = models.StaffLevelSenior
	assert.False(t, CanBePerformedBy(treatment, staff))
}

func TestCanBePerformedBy_RanksCorrectly(t *testing.T) {
	expert := models.SkillExpert
	staff := &models.User{SkillLevel: &expert}

	for _, required := range []models.StaffLevel{models.StaffLevelJunior, models.StaffLevelSenior, models.StaffLevelExpert} {
		treatment := &models.Treatment{RequiredStaffLevel: required}
		assert.True(t, CanBePerformedBy(treatment, staff), "expert should satisfy %s", required)
	}

	junior := models.SkillJunior
	juniorStaff := &models.User{SkillLevel: &junior}
	treatment := &models.Treatment{RequiredStaffLevel: models.StaffLevelExpert}
	assert.False(t, CanBePerformedBy(treatment, juniorStaff))
}
