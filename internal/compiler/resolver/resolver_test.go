// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

//go:build unit

package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-engineering-labs/lexica/pkg/entity"
)

func TestResolve(t *testing.T) {
	t.Run("assigns logical names and resolves references", func(t *testing.T) {
		arena := entity.NewArena()
		a := arena.NewResource("aws", "AWS::S3::Bucket", nil, "Arn")
		arn, _ := a.Attr("Arn")
		b := arena.NewResource("aws", "AWS::Lambda::Function", map[string]any{
			"Code": map[string]any{"Bucket": arn},
		}, "Arn")

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("a", a))
		require.NoError(t, ns.Add("b", b))

		require.NoError(t, Resolve(ns, arena))

		name, named := a.LogicalName()
		assert.True(t, named)
		assert.Equal(t, "a", name)

		target, err := arn.Target()
		require.NoError(t, err)
		assert.Equal(t, "a", target)
	})

	t.Run("gating holds until resolve runs", func(t *testing.T) {
		arena := entity.NewArena()
		a := arena.NewResource("aws", "T", nil, "Name")
		ref, _ := a.Attr("Name")

		_, err := ref.Target()
		require.Error(t, err)

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("a", a))
		require.NoError(t, Resolve(ns, arena))

		_, err = ref.Target()
		assert.NoError(t, err)
	})

	t.Run("resolve is idempotent", func(t *testing.T) {
		arena := entity.NewArena()
		a := arena.NewResource("aws", "T", nil, "Name")
		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("a", a))

		require.NoError(t, Resolve(ns, arena))
		require.NoError(t, Resolve(ns, arena))
	})

	t.Run("unregistered parent fails with the entity.property path", func(t *testing.T) {
		arena := entity.NewArena()
		orphan := arena.NewResource("aws", "T", nil, "Id")
		orphanID, _ := orphan.Attr("Id")
		consumer := arena.NewResource("aws", "T", map[string]any{
			"VpcId": orphanID,
		})

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("consumer", consumer))

		err := Resolve(ns, arena)
		var rerr *entity.ResolutionError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "consumer.VpcId", rerr.Path)
	})

	t.Run("reclaimed parent fails as a lookup failure", func(t *testing.T) {
		foreign := entity.NewArena()
		ghost := foreign.NewResource("aws", "T", nil, "Id")
		ghostID, _ := ghost.Attr("Id")

		arena := entity.NewArena() // ghost's handle was never issued here
		consumer := arena.NewResource("aws", "T", map[string]any{"Ghost": ghostID})

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("consumer", consumer))

		err := Resolve(ns, arena)
		var rerr *entity.ResolutionError
		require.ErrorAs(t, err, &rerr)
		assert.Contains(t, rerr.Reason, "reclaimed")
	})

	t.Run("references nested in property entities and arrays resolve", func(t *testing.T) {
		arena := entity.NewArena()
		vpc := arena.NewResource("aws", "AWS::EC2::VPC", nil, "VpcId")
		vpcID, _ := vpc.Attr("VpcId")

		netConfig := arena.NewProperty("aws", "NetworkConfig", map[string]any{
			"Subnets": []any{map[string]any{"VpcId": vpcID}},
		})
		fn := arena.NewResource("aws", "AWS::Lambda::Function", map[string]any{
			"Network": netConfig,
		})

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("vpc", vpc))
		require.NoError(t, ns.Add("fn", fn))

		require.NoError(t, Resolve(ns, arena))

		target, err := vpcID.Target()
		require.NoError(t, err)
		assert.Equal(t, "vpc", target)
	})

	t.Run("cyclic property graphs terminate", func(t *testing.T) {
		arena := entity.NewArena()
		propsA := map[string]any{}
		propsB := map[string]any{}
		pa := arena.NewProperty("aws", "A", propsA)
		pb := arena.NewProperty("aws", "B", propsB)
		propsA["next"] = pb
		propsB["next"] = pa

		root := arena.NewResource("aws", "T", map[string]any{"Chain": pa})
		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("root", root))

		require.NoError(t, Resolve(ns, arena))
	})

	t.Run("lexicon output sources resolve to logical names", func(t *testing.T) {
		arena := entity.NewArena()
		bucket := arena.NewResource("aws", "AWS::S3::Bucket", nil, "Arn")
		out := entity.NewLexiconOutput("aws", bucket, "Arn", "bucket_arn")

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("bucket", bucket))
		require.NoError(t, ns.Add("bucket_arn", out))

		require.NoError(t, Resolve(ns, arena))

		sourceName, resolved := out.SourceEntityName()
		assert.True(t, resolved)
		assert.Equal(t, "bucket", sourceName)
	})

	t.Run("output with unregistered source fails", func(t *testing.T) {
		arena := entity.NewArena()
		hidden := arena.NewResource("aws", "T", nil, "Arn")
		out := entity.NewLexiconOutput("aws", hidden, "Arn", "orphaned")

		ns := entity.NewNamespace()
		require.NoError(t, ns.Add("orphaned", out))

		err := Resolve(ns, arena)
		var rerr *entity.ResolutionError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "orphaned", rerr.Name)
	})
}
