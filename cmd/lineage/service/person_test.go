package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/models"
)

func TestCreate_UnderFather(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	father := env.addPerson("father", models.GenderMale, 3, nil, nil)

	child, err := env.persons.Create(ctx, CreateInput{
		ActorID:  father.ID,
		Name:     "child",
		Gender:   models.GenderMale,
		FatherID: &father.ID,
	})
	require.NoError(t, err)
	require.Equal(t, 4, child.Generation, "generation derives from the father")
	require.Equal(t, int64(1), child.Version)
	require.Equal(t, models.RoleNone, child.Role)
}

func TestCreate_RootRequiresAdmin(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	regular := env.addPerson("regular", models.GenderMale, 1, nil, nil)
	admin := env.addAdmin("admin")

	_, err := env.persons.Create(ctx, CreateInput{
		ActorID: regular.ID,
		Name:    "root",
		Gender:  models.GenderMale,
	})
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	root, err := env.persons.Create(ctx, CreateInput{
		ActorID: admin.ID,
		Name:    "root",
		Gender:  models.GenderMale,
	})
	require.NoError(t, err)
	require.Equal(t, 1, root.Generation)
}

func TestCreate_ParentGenderChecked(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	admin := env.addAdmin("admin")
	woman := env.addPerson("woman", models.GenderFemale, 1, nil, nil)

	_, err := env.persons.Create(ctx, CreateInput{
		ActorID:  admin.ID,
		Name:     "child",
		Gender:   models.GenderMale,
		FatherID: &woman.ID,
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateChildren_ContiguousSiblingOrder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	father := env.addPerson("father", models.GenderMale, 1, nil, nil)
	existing := env.addPerson("existing", models.GenderMale, 2, &father.ID, nil)
	existing.SiblingOrder = 2
	env.store.put(existing)

	children, err := env.persons.CreateChildren(ctx, father.ID, father.ID, nil, []ChildInput{
		{Name: "a", Gender: models.GenderMale},
		{Name: "b", Gender: models.GenderFemale},
		{Name: "c", Gender: models.GenderMale},
	})
	require.NoError(t, err)
	require.Len(t, children, 3)

	// orders continue after the existing child, contiguously
	require.Equal(t, 3, children[0].SiblingOrder)
	require.Equal(t, 4, children[1].SiblingOrder)
	require.Equal(t, 5, children[2].SiblingOrder)
	for _, c := range children {
		require.Equal(t, 2, c.Generation)
		require.Equal(t, father.ID, *c.FatherID)
	}
}

func TestCreateChildren_FemaleNodeRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	admin := env.addAdmin("admin")
	mother := env.addPerson("mother", models.GenderFemale, 1, nil, nil)

	_, err := env.persons.CreateChildren(ctx, admin.ID, mother.ID, nil, []ChildInput{
		{Name: "a", Gender: models.GenderMale},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDelete_AdminOnlyAndHidesFromQueries(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	admin := env.addAdmin("admin")
	father := env.addPerson("father", models.GenderMale, 1, nil, nil)
	child := env.addPerson("child", models.GenderMale, 2, &father.ID, nil)

	// the father has full access over the child, but not deletion
	err := env.persons.Delete(ctx, father.ID, child.ID)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	require.NoError(t, env.persons.Delete(ctx, admin.ID, child.ID))

	_, err = env.persons.Get(ctx, child.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	// deleting twice reads as not found
	err = env.persons.Delete(ctx, admin.ID, child.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRelate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	father := env.addPerson("father", models.GenderMale, 1, nil, nil)
	child := env.addPerson("child", models.GenderMale, 2, &father.ID, nil)

	rel, err := env.persons.Relate(ctx, father.ID, child.ID)
	require.NoError(t, err)
	require.True(t, rel.Ancestor)
	require.False(t, rel.Descendant)
	require.False(t, rel.Siblings)
	require.False(t, rel.Spouses)
}

func TestCreateMarriage_GenderAndAuthorization(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	h := env.addPerson("h", models.GenderMale, 1, nil, nil)
	w := env.addPerson("w", models.GenderFemale, 1, nil, nil)
	stranger := env.addPerson("stranger", models.GenderMale, 1, nil, nil)

	_, err := env.persons.CreateMarriage(ctx, stranger.ID, h.ID, w.ID)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	m, err := env.persons.CreateMarriage(ctx, h.ID, h.ID, w.ID)
	require.NoError(t, err)
	require.Equal(t, models.MarriageCurrent, m.Status)

	// swapped genders rejected
	_, err = env.persons.CreateMarriage(ctx, h.ID, w.ID, h.ID)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateMarriage_SecondCurrentRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	h := env.addPerson("h", models.GenderMale, 1, nil, nil)
	w := env.addPerson("w", models.GenderFemale, 1, nil, nil)
	other := env.addPerson("other", models.GenderFemale, 1, nil, nil)

	_, err := env.persons.CreateMarriage(ctx, h.ID, h.ID, w.ID)
	require.NoError(t, err)

	// at most one current marriage per partner
	_, err = env.persons.CreateMarriage(ctx, h.ID, h.ID, other.ID)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestEndMarriage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	h := env.addPerson("h", models.GenderMale, 1, nil, nil)
	w := env.addPerson("w", models.GenderFemale, 1, nil, nil)
	m := env.addMarriage(h.ID, w.ID)

	require.NoError(t, env.persons.EndMarriage(ctx, w.ID, m.ID))

	spouses, err := env.relationship.AreSpouses(ctx, h.ID, w.ID)
	require.NoError(t, err)
	require.False(t, spouses)

	// ending again reads as not found
	err = env.persons.EndMarriage(ctx, w.ID, m.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetRole_SelfChangeForbidden(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	admin := env.addAdmin("admin")
	other := env.addPerson("other", models.GenderMale, 1, nil, nil)

	err := env.admin.SetRole(ctx, admin.ID, admin.ID, models.RoleNone)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	require.NoError(t, env.admin.SetRole(ctx, admin.ID, other.ID, models.RoleModerator))
	after, err := env.store.GetByID(ctx, other.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleModerator, after.Role)
}

func TestGrantAndRevokeModerator(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	admin := env.addAdmin("admin")
	root := env.addPerson("root", models.GenderMale, 1, nil, nil)
	descendant := env.addPerson("descendant", models.GenderMale, 2, &root.ID, nil)
	moderator := env.addPerson("moderator", models.GenderMale, 5, nil, nil)

	g, err := env.admin.GrantModerator(ctx, admin.ID, moderator.ID, root.ID)
	require.NoError(t, err)

	level, err := env.permissions.Evaluate(ctx, moderator.ID, descendant.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelFull, level)

	require.NoError(t, env.admin.RevokeModerator(ctx, admin.ID, g.ID))

	level, err = env.permissions.Evaluate(ctx, moderator.ID, descendant.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelSuggest, level)

	// revoking twice reads as not found
	err = env.admin.RevokeModerator(ctx, admin.ID, g.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBlockAndUnblock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	admin := env.addAdmin("admin")
	person := env.addPerson("person", models.GenderMale, 1, nil, nil)
	target := env.addPerson("target", models.GenderMale, 1, nil, nil)

	require.NoError(t, env.admin.BlockSuggestions(ctx, admin.ID, person.ID, "spam"))

	level, err := env.permissions.Evaluate(ctx, person.ID, target.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelBlocked, level)

	require.NoError(t, env.admin.UnblockSuggestions(ctx, admin.ID, person.ID))

	level, err = env.permissions.Evaluate(ctx, person.ID, target.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelSuggest, level)
}
