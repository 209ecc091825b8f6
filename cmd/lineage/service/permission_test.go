package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/qefaraki/lineage/common/models"
)

func TestEvaluate_MissingActorOrTarget(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	p := env.addPerson("p", models.GenderMale, 1, nil, nil)

	level, err := env.permissions.Evaluate(ctx, uuid.New(), p.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelNone, level)

	level, err = env.permissions.Evaluate(ctx, p.ID, uuid.New())
	require.NoError(t, err)
	require.Equal(t, models.LevelNone, level)
}

func TestEvaluate_AdminAlwaysFull(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	admin := env.addAdmin("admin")
	stranger := env.addPerson("stranger", models.GenderMale, 5, nil, nil)

	level, err := env.permissions.Evaluate(ctx, admin.ID, stranger.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelFull, level)
}

func TestEvaluate_SelfFull(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	p := env.addPerson("p", models.GenderFemale, 3, nil, nil)

	level, err := env.permissions.Evaluate(ctx, p.ID, p.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelFull, level)
}

func TestEvaluate_RelationRules(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	grandfather := env.addPerson("grandfather", models.GenderMale, 1, nil, nil)
	father := env.addPerson("father", models.GenderMale, 2, &grandfather.ID, nil)
	child := env.addPerson("child", models.GenderMale, 3, &father.ID, nil)
	sibling := env.addPerson("sibling", models.GenderFemale, 3, &father.ID, nil)
	wife := env.addPerson("wife", models.GenderFemale, 3, nil, nil)
	env.addMarriage(child.ID, wife.ID)
	stranger := env.addPerson("stranger", models.GenderMale, 3, nil, nil)

	cases := []struct {
		name   string
		actor  uuid.UUID
		target uuid.UUID
		want   models.PermissionLevel
	}{
		{"ancestor over descendant", grandfather.ID, child.ID, models.LevelFull},
		{"child over direct parent", child.ID, father.ID, models.LevelFull},
		{"child over grandparent is not the parent rule", child.ID, grandfather.ID, models.LevelSuggest},
		{"siblings", child.ID, sibling.ID, models.LevelFull},
		{"current spouses", wife.ID, child.ID, models.LevelFull},
		{"unrelated", stranger.ID, child.ID, models.LevelSuggest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			level, err := env.permissions.Evaluate(ctx, tc.actor, tc.target)
			require.NoError(t, err)
			require.Equal(t, tc.want, level)
		})
	}
}

func TestEvaluate_PastSpouseOnlySuggests(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	h := env.addPerson("h", models.GenderMale, 1, nil, nil)
	w := env.addPerson("w", models.GenderFemale, 1, nil, nil)
	m := env.addMarriage(h.ID, w.ID)
	m.Status = models.MarriagePast

	level, err := env.permissions.Evaluate(ctx, w.ID, h.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelSuggest, level)
}

func TestEvaluate_BranchModeratorGrant(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	root := env.addPerson("root", models.GenderMale, 1, nil, nil)
	descendant := env.addPerson("descendant", models.GenderMale, 2, &root.ID, nil)
	outside := env.addPerson("outside", models.GenderMale, 1, nil, nil)
	moderator := env.addPerson("moderator", models.GenderMale, 4, nil, nil)

	env.store.grants[uuid.New()] = &models.BranchModeratorGrant{
		ID: uuid.New(), ActorID: moderator.ID, RootID: root.ID, Active: true, GrantedAt: time.Now(),
	}

	level, err := env.permissions.Evaluate(ctx, moderator.ID, root.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelFull, level, "grant covers the root itself")

	level, err = env.permissions.Evaluate(ctx, moderator.ID, descendant.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelFull, level, "grant covers descendants")

	level, err = env.permissions.Evaluate(ctx, moderator.ID, outside.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelSuggest, level, "grant does not reach outside the branch")
}

func TestEvaluate_BranchGrantCoversDeepDescendants(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	root := env.addPerson("root", models.GenderMale, 1, nil, nil)
	parent := root
	for gen := 2; gen <= 13; gen++ {
		parent = env.addPerson(fmt.Sprintf("gen%d", gen), models.GenderMale, gen, &parent.ID, nil)
	}
	deep := parent

	moderator := env.addPerson("moderator", models.GenderMale, 1, nil, nil)
	env.store.grants[uuid.New()] = &models.BranchModeratorGrant{
		ID: uuid.New(), ActorID: moderator.ID, RootID: root.ID, Active: true, GrantedAt: time.Now(),
	}

	// The node sits past the generation cap of the relation rules, but
	// grant scope covers the whole branch regardless of depth.
	isAncestor, err := env.relationship.IsAncestor(ctx, root.ID, deep.ID)
	require.NoError(t, err)
	require.False(t, isAncestor)

	inBranch, err := env.relationship.InBranch(ctx, root.ID, deep.ID)
	require.NoError(t, err)
	require.True(t, inBranch)

	level, err := env.permissions.Evaluate(ctx, moderator.ID, deep.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelFull, level)
}

func TestEvaluate_RevokedGrantDoesNotCount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	root := env.addPerson("root", models.GenderMale, 1, nil, nil)
	moderator := env.addPerson("moderator", models.GenderMale, 4, nil, nil)

	env.store.grants[uuid.New()] = &models.BranchModeratorGrant{
		ID: uuid.New(), ActorID: moderator.ID, RootID: root.ID, Active: false,
	}

	level, err := env.permissions.Evaluate(ctx, moderator.ID, root.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelSuggest, level)
}

func TestEvaluate_BlockedStranger(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	stranger := env.addPerson("stranger", models.GenderMale, 1, nil, nil)
	target := env.addPerson("target", models.GenderMale, 1, nil, nil)
	env.store.blocks[stranger.ID] = &models.SuggestionBlock{ID: uuid.New(), PersonID: stranger.ID}

	level, err := env.permissions.Evaluate(ctx, stranger.ID, target.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelBlocked, level)
}

func TestEvaluate_BlockedRelativeKeepsFull(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	father := env.addPerson("father", models.GenderMale, 1, nil, nil)
	child := env.addPerson("child", models.GenderMale, 2, &father.ID, nil)

	// blocking the father must not strip relation-based rights
	env.store.blocks[father.ID] = &models.SuggestionBlock{ID: uuid.New(), PersonID: father.ID}

	level, err := env.permissions.Evaluate(ctx, father.ID, child.ID)
	require.NoError(t, err)
	require.Equal(t, models.LevelFull, level)
}

func TestPolicy_DowngradeOnly(t *testing.T) {
	ctx := context.Background()

	policy, err := NewPolicy(`target.status == "deceased" && level == "full" ? "suggest" : level`)
	require.NoError(t, err)
	require.NotNil(t, policy)

	actor := &models.Person{ID: uuid.New(), Role: models.RoleNone, Gender: models.GenderMale, Status: models.StatusAlive}
	deceased := &models.Person{ID: uuid.New(), Gender: models.GenderMale, Status: models.StatusDeceased}
	alive := &models.Person{ID: uuid.New(), Gender: models.GenderMale, Status: models.StatusAlive}

	level, err := policy.Apply(ctx, actor, deceased, models.LevelFull)
	require.NoError(t, err)
	require.Equal(t, models.LevelSuggest, level)

	level, err = policy.Apply(ctx, actor, alive, models.LevelFull)
	require.NoError(t, err)
	require.Equal(t, models.LevelFull, level)
}

func TestPolicy_UpgradeIgnored(t *testing.T) {
	ctx := context.Background()

	policy, err := NewPolicy(`"full"`)
	require.NoError(t, err)

	actor := &models.Person{ID: uuid.New()}
	target := &models.Person{ID: uuid.New()}

	level, err := policy.Apply(ctx, actor, target, models.LevelSuggest)
	require.NoError(t, err)
	require.Equal(t, models.LevelSuggest, level, "a policy can never widen access")
}

func TestPolicy_EmptyExpression(t *testing.T) {
	policy, err := NewPolicy("")
	require.NoError(t, err)
	require.Nil(t, policy)
}

func TestPolicy_CompileError(t *testing.T) {
	_, err := NewPolicy(`level ==`)
	require.Error(t, err)
}
