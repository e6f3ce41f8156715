// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

//go:build unit

package walker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-engineering-labs/lexica/pkg/entity"
)

// testVisitor renders references in a compact text form and upper-cases keys
// to exercise the key transform hook.
type testVisitor struct {
	upperKeys bool
}

func (v testVisitor) RenderAttrRef(parentName, attr string) (any, error) {
	return fmt.Sprintf("getatt(%s,%s)", parentName, attr), nil
}

func (v testVisitor) RenderResourceRef(logicalName string) (any, error) {
	return fmt.Sprintf("ref(%s)", logicalName), nil
}

func (v testVisitor) RenderPropertyEntity(e *entity.Entity, walk func(any) (any, error)) (any, error) {
	return walk(e.Properties())
}

func (v testVisitor) TransformKey(key string) string {
	if v.upperKeys {
		return strings.ToUpper(key)
	}
	return key
}

func TestWalk(t *testing.T) {
	t.Run("nil and primitives pass through", func(t *testing.T) {
		for _, in := range []any{nil, "s", 42, 1.5, true} {
			out, err := Walk(testVisitor{}, in)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		}
	})

	t.Run("resolved attr ref renders natively", func(t *testing.T) {
		arena := entity.NewArena()
		a := arena.NewResource("aws", "T", nil, "name")
		ref, _ := a.Attr("name")
		require.NoError(t, ref.Resolve("A"))

		out, err := Walk(testVisitor{}, ref)
		require.NoError(t, err)
		assert.Equal(t, "getatt(A,name)", out)
	})

	t.Run("unresolved attr ref fails loudly", func(t *testing.T) {
		arena := entity.NewArena()
		a := arena.NewResource("aws", "T", nil, "name")
		ref, _ := a.Attr("name")

		_, err := Walk(testVisitor{}, ref)
		var serr *entity.SerializationError
		require.ErrorAs(t, err, &serr)
	})

	t.Run("resource entity becomes a by-name reference", func(t *testing.T) {
		arena := entity.NewArena()
		a := arena.NewResource("aws", "T", map[string]any{"ignored": "x"})
		require.NoError(t, a.AssignLogicalName("A"))

		out, err := Walk(testVisitor{}, a)
		require.NoError(t, err)
		assert.Equal(t, "ref(A)", out)
	})

	t.Run("unnamed resource entity fails loudly", func(t *testing.T) {
		arena := entity.NewArena()
		a := arena.NewResource("aws", "T", nil)

		_, err := Walk(testVisitor{}, a)
		var serr *entity.SerializationError
		require.ErrorAs(t, err, &serr)
	})

	t.Run("property entity is inlined through the visitor hook", func(t *testing.T) {
		arena := entity.NewArena()
		p := arena.NewProperty("aws", "Config", map[string]any{"Port": 8080})

		out, err := Walk(testVisitor{}, map[string]any{"Net": p})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"Net": map[string]any{"Port": 8080}}, out)
	})

	t.Run("intrinsic self-serializes with the walker's recursion", func(t *testing.T) {
		arena := entity.NewArena()
		a := arena.NewResource("aws", "T", nil, "Arn")
		ref, _ := a.Attr("Arn")
		require.NoError(t, ref.Resolve("A"))

		out, err := Walk(testVisitor{}, wrapIntrinsic{inner: ref})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"wrapped": "getatt(A,Arn)"}, out)
	})

	t.Run("cross-lexicon output serializes to its marker", func(t *testing.T) {
		arena := entity.NewArena()
		src := arena.NewResource("aws", "T", nil, "Arn")
		out := entity.NewLexiconOutput("aws", src, "Arn", "shared_arn")

		walked, err := Walk(testVisitor{}, out)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"$output": "shared_arn"}, walked)
	})

	t.Run("arrays map element-wise", func(t *testing.T) {
		out, err := Walk(testVisitor{}, []any{1, "two", nil})
		require.NoError(t, err)
		assert.Equal(t, []any{1, "two", nil}, out)
	})

	t.Run("plain object keys go through the transform", func(t *testing.T) {
		out, err := Walk(testVisitor{upperKeys: true}, map[string]any{"a": 1, "b": map[string]any{"c": 2}})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"A": 1, "B": map[string]any{"C": 2}}, out)
	})
}

type wrapIntrinsic struct {
	inner any
}

func (w wrapIntrinsic) Render(walk func(any) (any, error)) (any, error) {
	rendered, err := walk(w.inner)
	if err != nil {
		return nil, err
	}
	return map[string]any{"wrapped": rendered}, nil
}
