package buildcache_test

import (
	"path/filepath"
	"testing"

	"github.com/funvibe/sasquach/internal/buildcache"
	"github.com/funvibe/sasquach/internal/codegen"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/pipeline"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/nalgeon/be"
)

func TestCache_PutGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "build.db")
	c, err := buildcache.Open(path)
	be.Err(t, err, nil)
	defer c.Close()

	key := buildcache.ModuleKey("", "module app/Main", nil)
	_, ok, err := c.Get(key)
	be.Err(t, err, nil)
	be.Equal(t, ok, false)

	arts := []codegen.Artifact{
		{Name: "app/Main", Bytes: []byte{0xCA, 0xFE, 0xBA, 0xBE}},
		{Name: "app/Main$Point", Bytes: []byte{1, 2, 3}},
	}
	be.Err(t, c.Put(key, "app/Main", arts), nil)

	got, ok, err := c.Get(key)
	be.Err(t, err, nil)
	be.Equal(t, ok, true)
	be.Equal(t, got, arts)

	n, err := c.Len()
	be.Err(t, err, nil)
	be.Equal(t, n, 1)
}

func TestCache_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.db")
	key := buildcache.ModuleKey("", "src", nil)

	c, err := buildcache.Open(path)
	be.Err(t, err, nil)
	be.Err(t, c.Put(key, "M", []codegen.Artifact{{Name: "M", Bytes: []byte{1}}}), nil)
	be.Err(t, c.Close(), nil)

	c, err = buildcache.Open(path)
	be.Err(t, err, nil)
	defer c.Close()
	_, ok, err := c.Get(key)
	be.Err(t, err, nil)
	be.Equal(t, ok, true)
}

func TestCache_Prune(t *testing.T) {
	c, err := buildcache.Open(":memory:")
	be.Err(t, err, nil)
	defer c.Close()

	old := buildcache.ModuleKey("", "v1", nil)
	cur := buildcache.ModuleKey("", "v2", nil)
	be.Err(t, c.Put(old, "M", nil), nil)
	be.Err(t, c.Put(cur, "M", nil), nil)
	be.Err(t, c.Put(buildcache.ModuleKey("", "other", nil), "N", nil), nil)

	n, err := c.Prune("M", cur)
	be.Err(t, err, nil)
	be.Equal(t, n, int64(1))
	_, ok, _ := c.Get(old)
	be.Equal(t, ok, false)
	_, ok, _ = c.Get(cur)
	be.Equal(t, ok, true)
}

func TestModuleKey(t *testing.T) {
	a := buildcache.Digest{1}
	b := buildcache.Digest{2}
	k := buildcache.ModuleKey("", "src", []buildcache.Digest{a, b})
	be.Equal(t, k, buildcache.ModuleKey("", "src", []buildcache.Digest{b, a}))
	be.True(t, k != buildcache.ModuleKey("", "src", []buildcache.Digest{a}))
	be.True(t, k != buildcache.ModuleKey("jdk", "src", []buildcache.Digest{a, b}))
	be.True(t, buildcache.ModuleKey("", "ab", nil) != buildcache.ModuleKey("a", "b", nil))
}

// digestOf elaborates src on its own and returns its interface digest.
func digestOf(t *testing.T, src string) buildcache.Digest {
	t.Helper()
	jdk, err := foreign.LoadJDK()
	be.Err(t, err, nil)
	ids := &symbols.IDGen{}
	procs := pipeline.Frontend(symbols.NewPrelude(ids), ids, jdk)
	ctx := pipeline.New(procs...).Run(pipeline.NewPipelineContext("geo.sasq", src))
	be.Equal(t, ctx.Diagnostics.HasErrors(), false)
	d, err := buildcache.InterfaceDigest(ctx.ModuleName(), ctx.Resolver.Scope(), nil)
	be.Err(t, err, nil)
	return d
}

func TestInterfaceDigest(t *testing.T) {
	base := `module app/Geo
pub struct P { x: Int, y: Int }
pub fn area(r: Double): Double = r * r
fn helper(): Int = 1
`
	d := digestOf(t, base)
	be.Equal(t, d, digestOf(t, base))

	// Private changes and body changes are invisible to importers.
	be.Equal(t, d, digestOf(t, `module app/Geo
pub struct P { x: Int, y: Int }
pub fn area(r: Double): Double = r * r * 2.0
fn helper(): Int = 2
fn other(): Int = 3
`))

	// Exported shapes are not.
	be.True(t, d != digestOf(t, `module app/Geo
pub struct P { x: Int, y: Long }
pub fn area(r: Double): Double = r * r
fn helper(): Int = 1
`))
	be.True(t, d != digestOf(t, `module app/Geo
pub struct P { x: Int, y: Int }
pub fn area(r: Float): Double = 1.0
fn helper(): Int = 1
`))
}

func TestInterfaceDigest_LabelsAndAliases(t *testing.T) {
	base := `module app/Geo
pub type Pair[A] = (A, A)
pub fn scale(x: Double, by f: Double): Double = x * f
`
	d := digestOf(t, base)
	be.Equal(t, d, digestOf(t, base))
	be.True(t, d != digestOf(t, `module app/Geo
pub type Pair[A] = (A, A)
pub fn scale(x: Double, times f: Double): Double = x * f
`))
	be.True(t, d != digestOf(t, `module app/Geo
pub type Pair[A] = (A, A, A)
pub fn scale(x: Double, by f: Double): Double = x * f
`))
	be.True(t, d != digestOf(t, `module app/Geo
pub type Pair[A] = (A, Int)
pub fn scale(x: Double, by f: Double): Double = x * f
`))
}
