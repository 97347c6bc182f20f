package student

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/shared"
)

func TestExtractLevel(t *testing.T) {
	assert.Equal(t, LevelB1, ExtractLevel("Smart Learning B1"))
	assert.Equal(t, LevelA2, ExtractLevel("a2 - intermediate"))
	assert.Equal(t, LevelC2, ExtractLevel("C2/Proficiency"))
	assert.Equal(t, LevelA1, ExtractLevel("PREA1 starters"))
	assert.Equal(t, LevelA1, ExtractLevel("Pre-A1"))
	assert.Equal(t, LevelA1, ExtractLevel("Adventures"))
	assert.Equal(t, LevelUnknown, ExtractLevel("Indefinido"))
	assert.Equal(t, LevelUnknown, ExtractLevel(""))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "joao da silva", NormalizeName("  João da Silva "))
	assert.Equal(t, "ines muller", NormalizeName("Inês Müller"))
	assert.Equal(t, "ana", NormalizeName("ANA"))

	// Same student, different accenting, must normalize identically.
	assert.Equal(t, NormalizeName("José"), NormalizeName("Jose"))
}

func TestRecordValidate(t *testing.T) {
	valid := Record{ID: "s1", Name: "Ana", Level: LevelB1, StudiedMinutes: 300}
	assert.NoError(t, valid.Validate())

	noID := valid
	noID.ID = "  "
	err := noID.Validate()
	assert.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	noName := valid
	noName.Name = ""
	assert.ErrorIs(t, noName.Validate(), shared.ErrEmptyValue)

	negative := valid
	negative.StudiedMinutes = -1
	assert.ErrorIs(t, negative.Validate(), shared.ErrValidation)
}

func TestFingerprintChangesOnlyWithVisibleFields(t *testing.T) {
	base := Record{ID: "s1", Name: "Ana", Level: LevelB1, StudiedMinutes: 300}
	fp := ComputeFingerprint(base)
	assert.False(t, fp.IsZero())

	// Identical visible fields -> identical fingerprint, even when the
	// fetch timestamp differs.
	again := base
	again.FetchedAt = base.FetchedAt.AddDate(0, 0, 1)
	assert.Equal(t, fp, ComputeFingerprint(again))

	// Accent-only name difference is not a visible change.
	accented := base
	accented.Name = "Aná"
	assert.Equal(t, fp, ComputeFingerprint(accented))

	hours := base
	hours.StudiedMinutes = 360
	assert.NotEqual(t, fp, ComputeFingerprint(hours))

	level := base
	level.Level = LevelB2
	assert.NotEqual(t, fp, ComputeFingerprint(level))

	renamed := base
	renamed.Name = "Anabela"
	assert.NotEqual(t, fp, ComputeFingerprint(renamed))
}

func TestFingerprintNoConcatenationCollision(t *testing.T) {
	a := Record{ID: "s1", Name: "ab", Level: "c", StudiedMinutes: 1}
	b := Record{ID: "s1", Name: "a", Level: "bc", StudiedMinutes: 1}
	assert.NotEqual(t, ComputeFingerprint(a), ComputeFingerprint(b))
}
