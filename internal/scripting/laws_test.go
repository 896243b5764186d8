package scripting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/fiefdom/internal/scripting"
)

const corvee = `
engine.law{
	id = "corvee",
	name = "Corvee",
	description = "Labour duty makes gathering harder.",
	cost = function(action, stamina)
		if action == "CHOP_WOOD" or action == "MINE_STONE" then
			return stamina + 2
		end
		return stamina
	end,
}
`

func newBook(t *testing.T) (*scripting.LawBook, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	b := scripting.NewLawBook(0, zap.New(core))
	t.Cleanup(b.Close)
	return b, logs
}

func TestLawBook_RegisterAndAdjust(t *testing.T) {
	b, _ := newBook(t)
	require.NoError(t, b.LoadString("corvee.lua", corvee))

	assert.True(t, b.Has("corvee"))
	laws := b.Laws()
	require.Len(t, laws, 1)
	assert.Equal(t, "Corvee", laws[0].Name)
	assert.Equal(t, "Labour duty makes gathering harder.", laws[0].Description)

	got, err := b.AdjustStamina("corvee", "CHOP_WOOD", 8)
	require.NoError(t, err)
	assert.Equal(t, 10, got)

	got, err = b.AdjustStamina("corvee", "FISH", 6)
	require.NoError(t, err)
	assert.Equal(t, 6, got)
}

func TestLawBook_UnknownLawUnchanged(t *testing.T) {
	b, _ := newBook(t)
	got, err := b.AdjustStamina("nope", "CHOP_WOOD", 8)
	require.NoError(t, err)
	assert.Equal(t, 8, got)
}

func TestLawBook_RuntimeErrorLoggedNotPropagated(t *testing.T) {
	b, logs := newBook(t)
	require.NoError(t, b.LoadString("bad.lua", `engine.law{ id = "bad", cost = function(a, s) error("boom") end }`))
	got, err := b.AdjustStamina("bad", "FISH", 6)
	require.NoError(t, err)
	assert.Equal(t, 6, got)
	assert.Equal(t, 1, logs.FilterMessage("scripting: law runtime error").Len())
}

func TestLawBook_NonNumberUnchanged(t *testing.T) {
	b, logs := newBook(t)
	require.NoError(t, b.LoadString("str.lua", `engine.law{ id = "s", cost = function(a, s) return "x" end }`))
	got, err := b.AdjustStamina("s", "FISH", 6)
	require.NoError(t, err)
	assert.Equal(t, 6, got)
	assert.Equal(t, 1, logs.FilterMessage("scripting: law cost returned non-number").Len())
}

func TestLawBook_RoundsUpAndFloorsAtZero(t *testing.T) {
	b, _ := newBook(t)
	require.NoError(t, b.LoadString("x.lua", `
		engine.law{ id = "half", cost = function(a, s) return s / 2 end }
		engine.law{ id = "free", cost = function(a, s) return -5 end }
	`))
	got, _ := b.AdjustStamina("half", "FISH", 5)
	assert.Equal(t, 3, got)
	got, _ = b.AdjustStamina("free", "FISH", 5)
	assert.Equal(t, 0, got)
}

func TestLawBook_RunawayCostIsBounded(t *testing.T) {
	core, _ := observer.New(zap.DebugLevel)
	b := scripting.NewLawBook(100, zap.New(core))
	defer b.Close()
	require.NoError(t, b.LoadString("loop.lua", `engine.law{ id = "loop", cost = function(a, s) while true do end end }`))
	got, err := b.AdjustStamina("loop", "FISH", 6)
	require.NoError(t, err)
	assert.Equal(t, 6, got)

	// a later call gets a fresh budget
	require.NoError(t, b.LoadString("ok.lua", `engine.law{ id = "ok", cost = function(a, s) return s + 1 end }`))
	got, _ = b.AdjustStamina("ok", "FISH", 6)
	assert.Equal(t, 7, got)
}

func TestLawBook_InvalidDefinitions(t *testing.T) {
	b, _ := newBook(t)
	assert.Error(t, b.LoadString("noid.lua", `engine.law{ name = "x" }`))
	assert.Error(t, b.LoadString("badcost.lua", `engine.law{ id = "x", cost = 3 }`))
	assert.Error(t, b.LoadString("syntax.lua", `engine.law{`))
	assert.False(t, b.Has("x"))
}

func TestLawBook_LoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(corvee), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`engine.law{ id = "tithe" }`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644))

	b, _ := newBook(t)
	require.NoError(t, b.LoadDir(dir))
	ids := []string{}
	for _, l := range b.Laws() {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"corvee", "tithe"}, ids)

	got, err := b.AdjustStamina("tithe", "FISH", 6)
	require.NoError(t, err)
	assert.Equal(t, 6, got)
}

func TestLawBook_LoadDirMissing(t *testing.T) {
	b, _ := newBook(t)
	assert.Error(t, b.LoadDir("/nonexistent/laws"))
}

func TestLawBook_ShippedLaws(t *testing.T) {
	b, _ := newBook(t)
	require.NoError(t, b.LoadDir(filepath.Join("..", "..", "content", "laws")))
	assert.NotEmpty(t, b.Laws())
}

// Property: law results are never negative.
func TestProperty_AdjustNeverNegative(t *testing.T) {
	b := scripting.NewLawBook(0, nil)
	defer b.Close()
	require.NoError(t, b.LoadString("delta.lua", `engine.law{ id = "delta", cost = function(a, s) return s - 7 end }`))
	rapid.Check(t, func(t *rapid.T) {
		st := rapid.IntRange(0, 200).Draw(t, "stamina")
		got, err := b.AdjustStamina("delta", "FISH", st)
		if err != nil {
			t.Fatal(err)
		}
		if got < 0 {
			t.Fatalf("negative stamina %d", got)
		}
	})
}
