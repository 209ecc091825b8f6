package validation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/models"
)

// Field identifies one editable person field. The set is closed: any name
// outside it is rejected at the boundary with InvalidField, rather than
// resolved by reflective struct access.
type Field string

const (
	FieldName         Field = "name"
	FieldKunya        Field = "kunya"
	FieldBio          Field = "bio"
	FieldBirthDate    Field = "birth_date"
	FieldDeathDate    Field = "death_date"
	FieldBirthPlace   Field = "birth_place"
	FieldResidence    Field = "residence"
	FieldOccupation   Field = "occupation"
	FieldPhone        Field = "phone"
	FieldEmail        Field = "email"
	FieldPhotoURL     Field = "photo_url"
	FieldStatus       Field = "status"
	FieldFatherID     Field = "father_id"
	FieldMotherID     Field = "mother_id"
	FieldSiblingOrder Field = "sibling_order"
)

// fieldDef binds a field name to its column, its typed setter, and
// whether changing it moves the person within the tree (which triggers
// a downstream layout recalculation).
type fieldDef struct {
	structural bool
	apply      func(p *models.Person, v any) error
}

var fields = map[Field]fieldDef{
	FieldName: {apply: func(p *models.Person, v any) error {
		s, ok := v.(string)
		if !ok || s == "" {
			return fmt.Errorf("name must be a non-empty string")
		}
		p.Name = s
		return nil
	}},
	FieldKunya:      {apply: optionalString(func(p *models.Person, s *string) { p.Kunya = s })},
	FieldBio:        {apply: optionalString(func(p *models.Person, s *string) { p.Bio = s })},
	FieldBirthDate:  {apply: optionalString(func(p *models.Person, s *string) { p.BirthDate = s })},
	FieldDeathDate:  {apply: optionalString(func(p *models.Person, s *string) { p.DeathDate = s })},
	FieldBirthPlace: {apply: optionalString(func(p *models.Person, s *string) { p.BirthPlace = s })},
	FieldResidence:  {apply: optionalString(func(p *models.Person, s *string) { p.Residence = s })},
	FieldOccupation: {apply: optionalString(func(p *models.Person, s *string) { p.Occupation = s })},
	FieldPhone:      {apply: optionalString(func(p *models.Person, s *string) { p.Phone = s })},
	FieldEmail:      {apply: optionalString(func(p *models.Person, s *string) { p.Email = s })},
	FieldPhotoURL:   {apply: optionalString(func(p *models.Person, s *string) { p.PhotoURL = s })},
	FieldStatus: {apply: func(p *models.Person, v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("status must be a string")
		}
		switch models.LifecycleStatus(s) {
		case models.StatusAlive, models.StatusDeceased:
			p.Status = models.LifecycleStatus(s)
			return nil
		default:
			return fmt.Errorf("status must be %q or %q", models.StatusAlive, models.StatusDeceased)
		}
	}},
	FieldFatherID: {structural: true, apply: optionalUUID(func(p *models.Person, id *uuid.UUID) { p.FatherID = id })},
	FieldMotherID: {structural: true, apply: optionalUUID(func(p *models.Person, id *uuid.UUID) { p.MotherID = id })},
	FieldSiblingOrder: {structural: true, apply: func(p *models.Person, v any) error {
		switch n := v.(type) {
		case int:
			p.SiblingOrder = n
		case int64:
			p.SiblingOrder = int(n)
		case float64: // JSON numbers decode to float64
			p.SiblingOrder = int(n)
		default:
			return fmt.Errorf("sibling_order must be an integer")
		}
		return nil
	}},
}

func optionalString(set func(*models.Person, *string)) func(*models.Person, any) error {
	return func(p *models.Person, v any) error {
		if v == nil {
			set(p, nil)
			return nil
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string or null, got %T", v)
		}
		set(p, &s)
		return nil
	}
}

func optionalUUID(set func(*models.Person, *uuid.UUID)) func(*models.Person, any) error {
	return func(p *models.Person, v any) error {
		if v == nil {
			set(p, nil)
			return nil
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected uuid string or null, got %T", v)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid uuid: %w", err)
		}
		set(p, &id)
		return nil
	}
}

// ChangeSet is a validated set of field changes ready for the mutation
// guard. Values have already passed their field's type check.
type ChangeSet map[Field]any

// ValidateChanges checks every field name against the allow-list and every
// value against its field's typed setter. The probe applies values to a
// scratch person so type errors surface before any transaction starts.
func ValidateChanges(raw map[string]any) (ChangeSet, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no changes supplied: %w", apperr.ErrValidation)
	}

	cs := make(ChangeSet, len(raw))
	var scratch models.Person
	for name, value := range raw {
		def, ok := fields[Field(name)]
		if !ok {
			return nil, &apperr.InvalidFieldError{Field: name}
		}
		if err := def.apply(&scratch, value); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		cs[Field(name)] = value
	}
	return cs, nil
}

// ValidateField checks a single field name, for the suggestion boundary.
func ValidateField(name string) (Field, error) {
	if _, ok := fields[Field(name)]; !ok {
		return "", &apperr.InvalidFieldError{Field: name}
	}
	return Field(name), nil
}

// Apply writes every change in the set onto p.
func (cs ChangeSet) Apply(p *models.Person) error {
	for f, v := range cs {
		def, ok := fields[f]
		if !ok {
			return &apperr.InvalidFieldError{Field: string(f)}
		}
		if err := def.apply(p, v); err != nil {
			return fmt.Errorf("field %q: %w", f, err)
		}
	}
	return nil
}

// Structural reports whether any change in the set moves the person
// within the tree.
func (cs ChangeSet) Structural() bool {
	for f := range cs {
		if fields[f].structural {
			return true
		}
	}
	return false
}

// Fields returns the change set's field names, for logging.
func (cs ChangeSet) Fields() []string {
	out := make([]string, 0, len(cs))
	for f := range cs {
		out = append(out, string(f))
	}
	return out
}
