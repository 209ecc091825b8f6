package validation

import (
	"strconv"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/models"
)

// SnapshotString returns the current value of an editable field as the
// string form stored on a suggestion. Nil means the field is unset.
func SnapshotString(p *models.Person, f Field) *string {
	switch f {
	case FieldName:
		return strPtr(p.Name)
	case FieldKunya:
		return p.Kunya
	case FieldBio:
		return p.Bio
	case FieldBirthDate:
		return p.BirthDate
	case FieldDeathDate:
		return p.DeathDate
	case FieldBirthPlace:
		return p.BirthPlace
	case FieldResidence:
		return p.Residence
	case FieldOccupation:
		return p.Occupation
	case FieldPhone:
		return p.Phone
	case FieldEmail:
		return p.Email
	case FieldPhotoURL:
		return p.PhotoURL
	case FieldStatus:
		return strPtr(string(p.Status))
	case FieldFatherID:
		if p.FatherID == nil {
			return nil
		}
		return strPtr(p.FatherID.String())
	case FieldMotherID:
		if p.MotherID == nil {
			return nil
		}
		return strPtr(p.MotherID.String())
	case FieldSiblingOrder:
		return strPtr(strconv.Itoa(p.SiblingOrder))
	}
	return nil
}

// CoerceString converts a suggestion's string value into the raw value
// its field's setter expects, so suggestion approval reuses the same
// validated apply path as direct mutation.
func CoerceString(f Field, s *string) (any, error) {
	if _, ok := fields[f]; !ok {
		return nil, &apperr.InvalidFieldError{Field: string(f)}
	}
	if s == nil {
		return nil, nil
	}
	if f == FieldSiblingOrder {
		n, err := strconv.Atoi(*s)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	return *s, nil
}

func strPtr(s string) *string {
	return &s
}
