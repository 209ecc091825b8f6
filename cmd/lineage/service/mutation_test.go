package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/models"
)

func TestUpdate_HappyPath(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	admin := env.addAdmin("admin")
	target := env.addPerson("target", models.GenderMale, 2, nil, nil)

	updated, err := env.mutations.Update(ctx, UpdateInput{
		ActorID:         admin.ID,
		TargetID:        target.ID,
		ExpectedVersion: 1,
		Changes:         map[string]any{"occupation": "farmer"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.Version)
	require.NotNil(t, updated.Occupation)
	require.Equal(t, "farmer", *updated.Occupation)

	// one ledger entry with before/after snapshots and the result version
	entries, err := env.store.ListAuditByPerson(ctx, target.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entry := entries[0]
	require.Equal(t, models.ActionUpdate, entry.Action)
	require.Equal(t, []string{"occupation"}, entry.ChangedFields)
	require.NotNil(t, entry.ResultVersion)
	require.Equal(t, int64(2), *entry.ResultVersion)
	require.NotEmpty(t, entry.OldData)
	require.NotEmpty(t, entry.NewData)
}

func TestUpdate_VersionConflict(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	admin := env.addAdmin("admin")
	target := env.addPerson("target", models.GenderMale, 2, nil, nil)

	_, err := env.mutations.Update(ctx, UpdateInput{
		ActorID:         admin.ID,
		TargetID:        target.ID,
		ExpectedVersion: 7,
		Changes:         map[string]any{"bio": "text"},
	})
	require.True(t, apperr.IsVersionConflict(err))

	// nothing applied, nothing logged
	after, err := env.store.GetByID(ctx, target.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), after.Version)
	require.Nil(t, after.Bio)
	entries, err := env.store.ListAuditByPerson(ctx, target.ID, 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestUpdate_ConcurrentWritersOneWins(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	admin := env.addAdmin("admin")
	target := env.addPerson("target", models.GenderMale, 2, nil, nil)

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.mutations.Update(ctx, UpdateInput{
				ActorID:         admin.ID,
				TargetID:        target.ID,
				ExpectedVersion: 1,
				Changes:         map[string]any{"residence": "riyadh"},
			})
		}(i)
	}
	wg.Wait()

	var won, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case apperr.IsVersionConflict(err):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, won, "exactly one writer commits at a given version")
	require.Equal(t, writers-1, conflicted)

	after, err := env.store.GetByID(ctx, target.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), after.Version)
}

func TestUpdate_InvalidField(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	admin := env.addAdmin("admin")
	target := env.addPerson("target", models.GenderMale, 2, nil, nil)

	_, err := env.mutations.Update(ctx, UpdateInput{
		ActorID:         admin.ID,
		TargetID:        target.ID,
		ExpectedVersion: 1,
		Changes:         map[string]any{"version": 99},
	})
	require.True(t, apperr.IsInvalidField(err), "version is not an editable field")

	_, err = env.mutations.Update(ctx, UpdateInput{
		ActorID:         admin.ID,
		TargetID:        target.ID,
		ExpectedVersion: 1,
		Changes:         map[string]any{"nickname": "x"},
	})
	require.True(t, apperr.IsInvalidField(err))
}

func TestUpdate_SuggestLevelActorRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	stranger := env.addPerson("stranger", models.GenderMale, 1, nil, nil)
	target := env.addPerson("target", models.GenderMale, 1, nil, nil)

	_, err := env.mutations.Update(ctx, UpdateInput{
		ActorID:         stranger.ID,
		TargetID:        target.ID,
		ExpectedVersion: 1,
		Changes:         map[string]any{"bio": "gossip"},
	})
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestUpdate_MissingTarget(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	admin := env.addAdmin("admin")

	_, err := env.mutations.Update(ctx, UpdateInput{
		ActorID:         admin.ID,
		TargetID:        uuid.New(),
		ExpectedVersion: 1,
		Changes:         map[string]any{"bio": "x"},
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdate_StructuralChange(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	admin := env.addAdmin("admin")
	father := env.addPerson("father", models.GenderMale, 1, nil, nil)
	target := env.addPerson("target", models.GenderMale, 2, nil, nil)

	updated, err := env.mutations.Update(ctx, UpdateInput{
		ActorID:         admin.ID,
		TargetID:        target.ID,
		ExpectedVersion: 1,
		Changes:         map[string]any{"father_id": father.ID.String()},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.FatherID)
	require.Equal(t, father.ID, *updated.FatherID)
}
