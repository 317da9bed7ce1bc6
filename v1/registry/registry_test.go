package registry

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo(_ context.Context, input json.RawMessage) (any, error) {
	return string(input), nil
}

func TestRegisterAndLookup(t *testing.T) {
	reg := New()
	key := Key{Kind: KindTool, Name: "mongodb/crud/read"}

	require.NoError(t, reg.Register(Action{Key: key, Description: "read", Run: echo}))

	action, err := reg.Lookup(key)
	require.NoError(t, err)
	assert.Equal(t, "read", action.Description)

	_, err = reg.Lookup(Key{Kind: KindRetriever, Name: "mongodb/crud/read"})
	assert.ErrorIs(t, err, ErrActionNotFound)

	_, err = reg.Lookup(Key{Kind: KindTool, Name: "mongodb/crud"})
	assert.ErrorIs(t, err, ErrActionNotFound)
}

func TestRegisterRejectsInvalidActions(t *testing.T) {
	reg := New()

	assert.ErrorIs(t, reg.Register(Action{Key: Key{Kind: KindTool}, Run: echo}), ErrInvalidAction)
	assert.ErrorIs(t, reg.Register(Action{Key: Key{Kind: "model", Name: "x"}, Run: echo}), ErrInvalidAction)
	assert.ErrorIs(t, reg.Register(Action{Key: Key{Kind: KindTool, Name: "x"}}), ErrInvalidAction)

	require.NoError(t, reg.Register(Action{Key: Key{Kind: KindTool, Name: "x"}, Run: echo}))
	assert.ErrorIs(t, reg.Register(Action{Key: Key{Kind: KindTool, Name: "x"}, Run: echo}), ErrDuplicateAction)

	// Same name, different kind is a different key.
	assert.NoError(t, reg.Register(Action{Key: Key{Kind: KindIndexer, Name: "x"}, Run: echo}))
}

func TestListIsSorted(t *testing.T) {
	reg := New()
	for _, k := range []Key{
		{Kind: KindTool, Name: "b"},
		{Kind: KindIndexer, Name: "z"},
		{Kind: KindTool, Name: "a"},
		{Kind: KindRetriever, Name: "m"},
	} {
		require.NoError(t, reg.Register(Action{Key: k, Run: echo}))
	}

	var got []string
	for _, a := range reg.List() {
		got = append(got, a.Key.String())
	}
	assert.Equal(t, []string{"indexer:z", "retriever:m", "tool:a", "tool:b"}, got)
}

func TestRunTyped(t *testing.T) {
	type req struct {
		Name string `json:"name"`
	}

	reg := New()
	key := Key{Kind: KindTool, Name: "greet"}
	require.NoError(t, reg.Register(Action{Key: key, Run: Typed(func(_ context.Context, r req) (string, error) {
		return "hello " + r.Name, nil
	})}))

	out, err := reg.Run(context.Background(), key, json.RawMessage(`{"name": "mongo"}`))
	require.NoError(t, err)
	assert.Equal(t, "hello mongo", out)

	out, err = reg.Run(context.Background(), key, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello ", out)

	_, err = reg.Run(context.Background(), key, json.RawMessage(`{"name": 1}`))
	assert.ErrorContains(t, err, "invalid input")

	_, err = reg.Run(context.Background(), Key{Kind: KindTool, Name: "missing"}, nil)
	assert.ErrorIs(t, err, ErrActionNotFound)
}

func TestConcurrentLookups(t *testing.T) {
	reg := New()
	key := Key{Kind: KindRetriever, Name: "r"}
	require.NoError(t, reg.Register(Action{Key: key, Run: echo}))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Lookup(key)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
