package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilad12-coder/agentic-tdd/domain"
)

func TestResultCache_AddGet(t *testing.T) {
	cache, err := NewResultCache(2)
	require.NoError(t, err)

	tc := domain.TaskConstraints{Primary: domain.ConstraintSet{NoEval: domain.Bool(true)}}
	key := CacheKey([]byte("x = 1\n"), tc)
	_, ok := cache.Get(key)
	assert.False(t, ok)

	stored := CachedCheck{
		Primary:   domain.NewConstraintResult(nil, domain.Metrics{"eval_calls": []int{}}),
		Secondary: domain.NewConstraintResult(nil, nil),
	}
	cache.Add(key, stored)

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Same(t, stored.Primary, got.Primary)
	assert.Equal(t, 1, cache.Len())
}

func TestCacheKey_DependsOnSourceAndConstraints(t *testing.T) {
	strict := domain.TaskConstraints{Primary: domain.ConstraintSet{MaxCyclomaticComplexity: domain.Int(3)}}
	loose := domain.TaskConstraints{Primary: domain.ConstraintSet{MaxCyclomaticComplexity: domain.Int(10)}}
	swapped := domain.TaskConstraints{Secondary: strict.Primary}

	base := CacheKey([]byte("x = 1\n"), strict)
	assert.Equal(t, base, CacheKey([]byte("x = 1\n"), strict))
	assert.NotEqual(t, base, CacheKey([]byte("x = 2\n"), strict))
	assert.NotEqual(t, base, CacheKey([]byte("x = 1\n"), loose))
	assert.NotEqual(t, base, CacheKey([]byte("x = 1\n"), swapped))
	assert.Len(t, base, 64)
}

func TestResultCache_Evicts(t *testing.T) {
	cache, err := NewResultCache(1)
	require.NoError(t, err)

	cache.Add("a", CachedCheck{})
	cache.Add("b", CachedCheck{})

	_, ok := cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len())
}
