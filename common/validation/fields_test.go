package validation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/models"
)

func TestValidateChanges_AllowListEnforced(t *testing.T) {
	_, err := ValidateChanges(map[string]any{"version": 5})
	require.True(t, apperr.IsInvalidField(err))

	_, err = ValidateChanges(map[string]any{"id": uuid.New().String()})
	require.True(t, apperr.IsInvalidField(err))

	_, err = ValidateChanges(map[string]any{"role": "admin"})
	require.True(t, apperr.IsInvalidField(err), "role changes have their own admin path")

	_, err = ValidateChanges(nil)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestValidateChanges_TypedSetters(t *testing.T) {
	cs, err := ValidateChanges(map[string]any{
		"name":       "Salem",
		"bio":        nil,
		"father_id":  uuid.New().String(),
		"sibling_order": 3,
	})
	require.NoError(t, err)
	require.Len(t, cs, 4)

	_, err = ValidateChanges(map[string]any{"father_id": "not-a-uuid"})
	require.Error(t, err)

	_, err = ValidateChanges(map[string]any{"sibling_order": "three"})
	require.Error(t, err)

	_, err = ValidateChanges(map[string]any{"name": 42})
	require.Error(t, err)
}

func TestChangeSet_Apply(t *testing.T) {
	fatherID := uuid.New()
	cs, err := ValidateChanges(map[string]any{
		"name":      "Salem",
		"kunya":     "Abu Fahd",
		"father_id": fatherID.String(),
		"status":    "deceased",
	})
	require.NoError(t, err)

	var p models.Person
	require.NoError(t, cs.Apply(&p))
	require.Equal(t, "Salem", p.Name)
	require.Equal(t, "Abu Fahd", *p.Kunya)
	require.Equal(t, fatherID, *p.FatherID)
	require.Equal(t, models.StatusDeceased, p.Status)

	// clearing an optional field with null
	cs2, err := ValidateChanges(map[string]any{"kunya": nil})
	require.NoError(t, err)
	require.NoError(t, cs2.Apply(&p))
	require.Nil(t, p.Kunya)
}

func TestChangeSet_Structural(t *testing.T) {
	cs, err := ValidateChanges(map[string]any{"bio": "text"})
	require.NoError(t, err)
	require.False(t, cs.Structural())

	for _, field := range []string{"father_id", "mother_id"} {
		cs, err = ValidateChanges(map[string]any{field: uuid.New().String()})
		require.NoError(t, err)
		require.True(t, cs.Structural(), field)
	}

	cs, err = ValidateChanges(map[string]any{"sibling_order": 2})
	require.NoError(t, err)
	require.True(t, cs.Structural())
}

func TestSnapshotStringCoerceStringRoundTrip(t *testing.T) {
	fatherID := uuid.New()
	p := &models.Person{
		Name:         "Salem",
		FatherID:     &fatherID,
		SiblingOrder: 4,
		Status:       models.StatusAlive,
	}

	for _, f := range []Field{FieldName, FieldFatherID, FieldSiblingOrder, FieldStatus, FieldKunya} {
		s := SnapshotString(p, f)
		raw, err := CoerceString(f, s)
		require.NoError(t, err)

		var probe models.Person
		cs := ChangeSet{f: raw}
		require.NoError(t, cs.Apply(&probe))
		require.Equal(t, s, SnapshotString(&probe, f), "round-trip through string form for %s", f)
	}
}

func TestValidateField(t *testing.T) {
	f, err := ValidateField("occupation")
	require.NoError(t, err)
	require.Equal(t, FieldOccupation, f)

	_, err = ValidateField("created_at")
	require.True(t, apperr.IsInvalidField(err))
}
