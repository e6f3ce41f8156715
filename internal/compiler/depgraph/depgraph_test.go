// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

//go:build unit

package depgraph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/platform-engineering-labs/lexica/internal/compiler/resolver"
	"github.com/platform-engineering-labs/lexica/pkg/entity"
)

func resolved(t *testing.T, arena *entity.Arena, ns *entity.Namespace) {
	t.Helper()
	require.NoError(t, resolver.Resolve(ns, arena))
}

func TestBuild(t *testing.T) {
	t.Run("attr ref produces an edge to the referenced resource", func(t *testing.T) {
		arena := entity.NewArena()
		a := arena.NewResource("aws", "AWS::S3::Bucket", nil, "name")
		aName, _ := a.Attr("name")
		b := arena.NewResource("aws", "AWS::Lambda::Function", map[string]any{
			"Source": aName,
		})

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("A", a))
		require.NoError(t, ns.Add("B", b))
		resolved(t, arena, ns)

		g, err := Build(ns, arena)
		require.NoError(t, err)

		assert.Empty(t, g.DependenciesOf("A"))
		assert.Equal(t, []string{"A"}, g.DependenciesOf("B"))
	})

	t.Run("direct entity value produces an edge", func(t *testing.T) {
		arena := entity.NewArena()
		a := arena.NewResource("aws", "T", nil)
		b := arena.NewResource("aws", "T", map[string]any{"Upstream": a})

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("A", a))
		require.NoError(t, ns.Add("B", b))
		resolved(t, arena, ns)

		g, err := Build(ns, arena)
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, g.DependenciesOf("B"))
	})

	t.Run("own accessors alone produce no self edge", func(t *testing.T) {
		arena := entity.NewArena()
		a := arena.NewResource("aws", "T", nil, "Arn")
		arn, _ := a.Attr("Arn")
		a.SetProperties(map[string]any{"SelfArn": arn})

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("A", a))
		resolved(t, arena, ns)

		g, err := Build(ns, arena)
		require.NoError(t, err)
		assert.Empty(t, g.DependenciesOf("A"))
	})

	t.Run("a second self encounter records the self edge", func(t *testing.T) {
		arena := entity.NewArena()
		a := arena.NewResource("aws", "T", nil, "Arn")
		arn, _ := a.Attr("Arn")
		a.SetProperties(map[string]any{
			"SelfArn": arn,
			"Parent":  a,
		})

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("A", a))
		resolved(t, arena, ns)

		g, err := Build(ns, arena)
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, g.DependenciesOf("A"))
		assert.Equal(t, [][]string{{"A"}}, g.Cycles())
	})

	t.Run("mutual references surface as a cycle", func(t *testing.T) {
		arena := entity.NewArena()
		a := arena.NewResource("aws", "T", nil, "Id")
		b := arena.NewResource("aws", "T", nil, "Id")
		aID, _ := a.Attr("Id")
		bID, _ := b.Attr("Id")
		a.SetProperties(map[string]any{"Peer": bID})
		b.SetProperties(map[string]any{"Peer": aID})

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("A", a))
		require.NoError(t, ns.Add("B", b))
		resolved(t, arena, ns)

		g, err := Build(ns, arena)
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, g.DependenciesOf("A"))
		assert.Equal(t, []string{"A"}, g.DependenciesOf("B"))
		assert.Equal(t, [][]string{{"A", "B"}}, g.Cycles())
	})

	t.Run("references inside property entities attach to the enclosing resource", func(t *testing.T) {
		arena := entity.NewArena()
		vpc := arena.NewResource("aws", "AWS::EC2::VPC", nil, "VpcId")
		vpcID, _ := vpc.Attr("VpcId")
		network := arena.NewProperty("aws", "NetworkConfig", map[string]any{
			"VpcId": vpcID,
		})
		fn := arena.NewResource("aws", "AWS::Lambda::Function", map[string]any{
			"Network": network,
		})

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("vpc", vpc))
		require.NoError(t, ns.Add("fn", fn))
		resolved(t, arena, ns)

		g, err := Build(ns, arena)
		require.NoError(t, err)
		assert.Equal(t, []string{"vpc"}, g.DependenciesOf("fn"))
		// The property entity itself is not a node.
		assert.Equal(t, []string{"vpc", "fn"}, g.Names())
	})

	t.Run("shared sub-object is scanned once per root", func(t *testing.T) {
		arena := entity.NewArena()
		dep := arena.NewResource("aws", "T", nil, "Id")
		depID, _ := dep.Attr("Id")
		shared := map[string]any{"Dep": depID}

		x := arena.NewResource("aws", "T", map[string]any{"Config": shared})
		y := arena.NewResource("aws", "T", map[string]any{"Config": shared})

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("dep", dep))
		require.NoError(t, ns.Add("x", x))
		require.NoError(t, ns.Add("y", y))
		resolved(t, arena, ns)

		g, err := Build(ns, arena)
		require.NoError(t, err)
		assert.Equal(t, []string{"dep"}, g.DependenciesOf("x"))
		assert.Equal(t, []string{"dep"}, g.DependenciesOf("y"))
	})

	t.Run("cyclic plain containers terminate", func(t *testing.T) {
		arena := entity.NewArena()
		inner := map[string]any{}
		outer := map[string]any{"Inner": inner}
		inner["Outer"] = outer

		a := arena.NewResource("aws", "T", map[string]any{"Loop": outer})
		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("A", a))
		resolved(t, arena, ns)

		_, err := Build(ns, arena)
		require.NoError(t, err)
	})

	t.Run("intrinsics are leaves", func(t *testing.T) {
		arena := entity.NewArena()
		dep := arena.NewResource("aws", "T", nil, "Id")
		depID, _ := dep.Attr("Id")
		a := arena.NewResource("aws", "T", map[string]any{
			"Value": leafIntrinsic{inner: depID},
		})

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("dep", dep))
		require.NoError(t, ns.Add("A", a))
		resolved(t, arena, ns)

		g, err := Build(ns, arena)
		require.NoError(t, err)
		assert.Empty(t, g.DependenciesOf("A"))
	})

	t.Run("unregistered resource value is an error", func(t *testing.T) {
		arena := entity.NewArena()
		ghost := arena.NewResource("aws", "T", nil)
		a := arena.NewResource("aws", "T", map[string]any{"Ghost": ghost})

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("A", a))
		resolved(t, arena, ns)

		_, err := Build(ns, arena)
		var rerr *entity.ResolutionError
		require.ErrorAs(t, err, &rerr)
	})
}

type leafIntrinsic struct {
	inner any
}

func (l leafIntrinsic) Render(walk func(any) (any, error)) (any, error) {
	return walk(l.inner)
}

// The two-case self rule: k occurrences of the root inside its own property
// tree yield a self edge exactly when k >= 2, regardless of whether the
// occurrences are accessors or direct values.
func TestBuildSelfEdgeRule(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		k := rapid.IntRange(0, 5).Draw(t, "occurrences")
		asAccessor := rapid.SliceOfN(rapid.Bool(), k, k).Draw(t, "shape")

		arena := entity.NewArena()
		a := arena.NewResource("aws", "T", nil, "Arn")
		arn, _ := a.Attr("Arn")

		props := map[string]any{}
		for i, accessor := range asAccessor {
			if accessor {
				props[fmt.Sprintf("p%d", i)] = arn
			} else {
				props[fmt.Sprintf("p%d", i)] = a
			}
		}
		a.SetProperties(props)

		ns := entity.NewNamespace()
		if err := ns.Add("A", a); err != nil {
			t.Fatalf("add: %v", err)
		}
		if err := resolver.Resolve(ns, arena); err != nil {
			t.Fatalf("resolve: %v", err)
		}

		g, err := Build(ns, arena)
		if err != nil {
			t.Fatalf("build: %v", err)
		}

		deps := g.DependenciesOf("A")
		if k >= 2 {
			if len(deps) != 1 || deps[0] != "A" {
				t.Fatalf("%d self occurrences: want self edge, got %v", k, deps)
			}
		} else if len(deps) != 0 {
			t.Fatalf("%d self occurrences: want no edges, got %v", k, deps)
		}
	})
}
