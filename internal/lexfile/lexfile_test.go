// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

//go:build unit

package lexfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-engineering-labs/lexica/internal/compiler/discovery"
	"github.com/platform-engineering-labs/lexica/lexicons/cloudjson"
	"github.com/platform-engineering-labs/lexica/lexicons/cloudyaml"
	"github.com/platform-engineering-labs/lexica/pkg/entity"
	"github.com/platform-engineering-labs/lexica/pkg/lexicon"
)

func newRegistry(t *testing.T) *lexicon.Registry {
	t.Helper()
	reg := lexicon.NewRegistry()
	require.NoError(t, reg.Register(cloudjson.New()))
	require.NoError(t, reg.Register(cloudyaml.New()))
	return reg
}

func writeUnit(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestUnits(t *testing.T) {
	t.Run("enumerates lex units in lexical order", func(t *testing.T) {
		root := t.TempDir()
		writeUnit(t, root, "b.lex.hcl", "")
		writeUnit(t, root, "a.lex.hcl", "")
		writeUnit(t, root, "nested/c.lex.hcl", "")
		writeUnit(t, root, "readme.md", "")

		loader := NewLoader(entity.NewArena(), newRegistry(t))
		units, err := loader.Units(root)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "a.lex.hcl"),
			filepath.Join(root, "b.lex.hcl"),
			filepath.Join(root, "nested/c.lex.hcl"),
		}, units)
	})

	t.Run("skips test units and tool directories", func(t *testing.T) {
		root := t.TempDir()
		writeUnit(t, root, "main.lex.hcl", "")
		writeUnit(t, root, "main_test.lex.hcl", "")
		writeUnit(t, root, "vendor/dep.lex.hcl", "")
		writeUnit(t, root, "node_modules/dep.lex.hcl", "")
		writeUnit(t, root, ".lexica/cache.lex.hcl", "")

		loader := NewLoader(entity.NewArena(), newRegistry(t))
		units, err := loader.Units(root)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "main.lex.hcl")}, units)
	})

	t.Run("does not descend into child projects", func(t *testing.T) {
		root := t.TempDir()
		writeUnit(t, root, "main.lex.hcl", "")
		writeUnit(t, root, "child/lexica.hcl", "")
		writeUnit(t, root, "child/theirs.lex.hcl", "")

		loader := NewLoader(entity.NewArena(), newRegistry(t))
		units, err := loader.Units(root)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "main.lex.hcl")}, units)
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads entities with cross file references", func(t *testing.T) {
		root := t.TempDir()
		writeUnit(t, root, "storage.lex.hcl", `
resource "assets" "AWS::S3::Bucket" {
  lexicon = "cloudjson"
  properties = {
    BucketName = "assets"
    Versioned  = true
    Tags       = ["prod", "media"]
  }
}
`)
		// References an entity declared in a later file.
		writeUnit(t, root, "access.lex.hcl", `
resource "reader" "AWS::IAM::Role" {
  lexicon = "cloudjson"
  properties = {
    Resource = attr.assets.Arn
    Bucket   = ref.assets
  }
}
`)

		arena := entity.NewArena()
		loader := NewLoader(arena, newRegistry(t))
		result, err := discovery.Discover(loader, root)
		require.NoError(t, err)
		assert.Empty(t, result.Errors)
		assert.ElementsMatch(t, []string{"assets", "reader"}, result.Namespace.Names())

		assets, ok := result.Namespace.Entity("assets")
		require.True(t, ok)
		assert.Equal(t, "AWS::S3::Bucket", assets.Type())
		assert.Equal(t, "assets", assets.Properties()["BucketName"])
		assert.Equal(t, true, assets.Properties()["Versioned"])
		assert.Equal(t, []any{"prod", "media"}, assets.Properties()["Tags"])

		reader, ok := result.Namespace.Entity("reader")
		require.True(t, ok)
		ref, ok := reader.Properties()["Resource"].(*entity.AttrRef)
		require.True(t, ok)
		assert.Equal(t, "Arn", ref.Attr())
		assert.Equal(t, assets.Handle(), ref.Parent())
		assert.Same(t, assets, reader.Properties()["Bucket"])
	})

	t.Run("loads property entities", func(t *testing.T) {
		root := t.TempDir()
		writeUnit(t, root, "main.lex.hcl", `
property "cors" "AWS::S3::CorsRule" {
  lexicon = "cloudjson"
  properties = { AllowedMethods = ["GET"] }
}

resource "assets" "AWS::S3::Bucket" {
  lexicon = "cloudjson"
  properties = { Cors = ref.cors }
}
`)

		loader := NewLoader(entity.NewArena(), newRegistry(t))
		result, err := discovery.Discover(loader, root)
		require.NoError(t, err)
		require.Empty(t, result.Errors)

		cors, ok := result.Namespace.Entity("cors")
		require.True(t, ok)
		assert.Equal(t, entity.KindProperty, cors.Kind())

		assets, _ := result.Namespace.Entity("assets")
		assert.Same(t, cors, assets.Properties()["Cors"])
	})

	t.Run("expands composites", func(t *testing.T) {
		root := t.TempDir()
		writeUnit(t, root, "main.lex.hcl", `
composite "api" {
  resource "role" "AWS::IAM::Role" {
    lexicon = "cloudjson"
  }
  resource "func" "AWS::Lambda::Function" {
    lexicon = "cloudjson"
    properties = { Role = attr.api_role.Arn }
  }
}
`)

		loader := NewLoader(entity.NewArena(), newRegistry(t))
		result, err := discovery.Discover(loader, root)
		require.NoError(t, err)
		require.Empty(t, result.Errors)
		assert.Equal(t, []string{"api_role", "api_func"}, result.Namespace.Names())

		fn, ok := result.Namespace.Entity("api_func")
		require.True(t, ok)
		ref, ok := fn.Properties()["Role"].(*entity.AttrRef)
		require.True(t, ok)
		assert.Equal(t, "Arn", ref.Attr())
	})

	t.Run("loads lexicon outputs", func(t *testing.T) {
		root := t.TempDir()
		writeUnit(t, root, "main.lex.hcl", `
resource "jobs" "AWS::SQS::Queue" {
  lexicon = "cloudjson"
}

output "jobs_url" {
  value = attr.jobs.QueueUrl
}
`)

		loader := NewLoader(entity.NewArena(), newRegistry(t))
		result, err := discovery.Discover(loader, root)
		require.NoError(t, err)
		require.Empty(t, result.Errors)

		d, ok := result.Namespace.Lookup("jobs_url")
		require.True(t, ok)
		out, ok := d.(*entity.LexiconOutput)
		require.True(t, ok)
		assert.Equal(t, "cloudjson", out.Lexicon())
		assert.Equal(t, "QueueUrl", out.Attr())
	})

	t.Run("evaluates intrinsic functions", func(t *testing.T) {
		root := t.TempDir()
		writeUnit(t, root, "main.lex.hcl", `
resource "assets" "AWS::S3::Bucket" {
  lexicon = "cloudjson"
}

resource "reader" "AWS::IAM::Role" {
  lexicon = "cloudjson"
  properties = {
    Resource = sub("${Arn}/objects/*", { Arn = attr.assets.Arn })
  }
}
`)

		loader := NewLoader(entity.NewArena(), newRegistry(t))
		result, err := discovery.Discover(loader, root)
		require.NoError(t, err)
		require.Empty(t, result.Errors)

		reader, _ := result.Namespace.Entity("reader")
		sub, ok := reader.Properties()["Resource"].(cloudjson.Sub)
		require.True(t, ok)
		assert.Equal(t, "${Arn}/objects/*", sub.Template)
		require.Contains(t, sub.Variables, "Arn")
	})

	t.Run("a broken unit fails alone", func(t *testing.T) {
		root := t.TempDir()
		writeUnit(t, root, "good.lex.hcl", `
resource "assets" "AWS::S3::Bucket" {
  lexicon = "cloudjson"
}
`)
		writeUnit(t, root, "broken.lex.hcl", `resource "oops" {`)

		loader := NewLoader(entity.NewArena(), newRegistry(t))
		result, err := discovery.Discover(loader, root)
		require.NoError(t, err)
		require.Len(t, result.Errors, 1)
		var le *entity.LoadError
		require.ErrorAs(t, result.Errors[0], &le)
		assert.Equal(t, filepath.Join(root, "broken.lex.hcl"), le.Unit)
		assert.Equal(t, []string{"assets"}, result.Namespace.Names())
	})

	t.Run("unknown lexicon fails the declaring unit", func(t *testing.T) {
		root := t.TempDir()
		writeUnit(t, root, "main.lex.hcl", `
resource "assets" "AWS::S3::Bucket" {
  lexicon = "nope"
}
`)

		loader := NewLoader(entity.NewArena(), newRegistry(t))
		result, err := discovery.Discover(loader, root)
		require.NoError(t, err)
		require.Len(t, result.Errors, 1)
		assert.ErrorContains(t, result.Errors[0], "nope")
	})

	t.Run("unknown type tag fails the declaring unit", func(t *testing.T) {
		root := t.TempDir()
		writeUnit(t, root, "main.lex.hcl", `
resource "thing" "AWS::Not::Real" {
  lexicon = "cloudjson"
}
`)

		loader := NewLoader(entity.NewArena(), newRegistry(t))
		result, err := discovery.Discover(loader, root)
		require.NoError(t, err)
		require.Len(t, result.Errors, 1)
		assert.ErrorContains(t, result.Errors[0], "AWS::Not::Real")
	})
}
