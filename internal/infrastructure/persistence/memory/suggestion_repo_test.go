package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/domain/repository"
)

func seed(t *testing.T, r *SuggestionRepository, n int) {
	t.Helper()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		st := entity.SuggestionTypeCharacter
		if i%2 == 1 {
			st = entity.SuggestionTypeNote
		}
		var payload entity.SuggestionPayload = &entity.CharacterPayload{Name: fmt.Sprintf("c%d", i)}
		if st == entity.SuggestionTypeNote {
			payload = &entity.NotePayload{Content: fmt.Sprintf("n%d", i)}
		}
		require.NoError(t, r.Create(context.Background(), &entity.ContentSuggestion{
			ID:         fmt.Sprintf("s-%02d", i),
			Type:       st,
			Confidence: entity.ConfidenceMedium,
			Status:     entity.SuggestionStatusPending,
			ContextRef: entity.Ref{ID: "campaign-1", Type: "campaign"},
			Payload:    payload,
			Version:    1,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestListNewestFirstWithPagination(t *testing.T) {
	r := NewSuggestionRepository()
	seed(t, r, 5)

	page, err := r.List(context.Background(), nil, repository.NewPagination(1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "s-04", page.Items[0].ID)
	assert.Equal(t, "s-03", page.Items[1].ID)

	last, err := r.List(context.Background(), nil, repository.NewPagination(3, 2))
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "s-00", last.Items[0].ID)

	beyond, err := r.List(context.Background(), nil, repository.NewPagination(9, 2))
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
}

func TestFindFilters(t *testing.T) {
	r := NewSuggestionRepository()
	seed(t, r, 4)

	notes, err := r.Find(context.Background(), &repository.SuggestionFilter{
		Types: []entity.SuggestionType{entity.SuggestionTypeNote},
	})
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "s-01", notes[0].ID)

	none, err := r.Find(context.Background(), &repository.SuggestionFilter{MinConfidence: entity.ConfidenceHigh})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateIfVersion(t *testing.T) {
	ctx := context.Background()
	r := NewSuggestionRepository()
	seed(t, r, 1)

	cur, err := r.GetByID(ctx, "s-00")
	require.NoError(t, err)
	cur.Status = entity.SuggestionStatusRejected
	cur.Version = 2

	ok, err := r.UpdateIfVersion(ctx, cur, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.UpdateIfVersion(ctx, cur, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := r.GetByID(ctx, "s-00")
	require.NoError(t, err)
	assert.Equal(t, entity.SuggestionStatusRejected, got.Status)

	missing, err := r.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
