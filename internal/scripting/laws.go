package scripting

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrInvalidLaw is returned when a script registers a malformed law.
var ErrInvalidLaw = errors.New("invalid law definition")

// Law describes one enactable law.
type Law struct {
	ID          string
	Name        string
	Description string
}

type lawEntry struct {
	Law
	cost *lua.LFunction
}

// LawBook owns one sandboxed VM holding every loaded law script.
//
// Scripts register laws with:
//
//	engine.law{ id = "corvee", name = "Corvée", cost = function(action, stamina) return stamina + 1 end }
//
// LawBook is safe for concurrent use; calls into the VM are serialized.
type LawBook struct {
	mu        sync.Mutex
	L         *lua.LState
	laws      map[string]*lawEntry
	instLimit int
	logger    *zap.Logger
}

// NewLawBook creates an empty LawBook.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: A nil logger is replaced by a no-op logger.
func NewLawBook(instLimit int, logger *zap.Logger) *LawBook {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &LawBook{
		L:         NewSandboxedState(),
		laws:      make(map[string]*lawEntry),
		instLimit: instLimit,
		logger:    logger,
	}
	b.registerModules()
	return b
}

// Close releases the VM.
func (b *LawBook) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.L.Close()
}

// LoadDir executes every *.lua file in dir in lexicographic order.
//
// Postcondition: Returns an error naming the first file that fails to load.
func (b *LawBook) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading law dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("scripting: reading %q: %w", path, err)
		}
		if err := b.LoadString(path, string(src)); err != nil {
			return err
		}
	}
	return nil
}

// LoadString executes one law script. name is used in error messages only.
func (b *LawBook) LoadString(name, src string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	done := WithBudget(b.L, b.instLimit)
	defer done()
	if err := b.L.DoString(src); err != nil {
		return fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	return nil
}

// Laws returns every registered law ordered by ID.
func (b *LawBook) Laws() []Law {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Law, 0, len(b.laws))
	for _, e := range b.laws {
		out = append(out, e.Law)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Has reports whether a law with id is registered.
func (b *LawBook) Has(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.laws[id]
	return ok
}

// AdjustStamina calls the law's cost function with (action, stamina).
// Unknown laws, laws without a cost function, runtime errors and non-numeric
// results leave stamina unchanged; errors are logged at Warn and never
// propagated. Results are rounded up and floored at 0.
func (b *LawBook) AdjustStamina(law, kind string, stamina int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.laws[law]
	if !ok || e.cost == nil {
		return stamina, nil
	}

	done := WithBudget(b.L, b.instLimit)
	defer done()
	if err := b.L.CallByParam(lua.P{
		Fn:      e.cost,
		NRet:    1,
		Protect: true,
	}, lua.LString(kind), lua.LNumber(stamina)); err != nil {
		b.logger.Warn("scripting: law runtime error",
			zap.String("law", law),
			zap.String("action", kind),
			zap.Error(err),
		)
		return stamina, nil
	}

	ret := b.L.Get(-1)
	b.L.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		b.logger.Warn("scripting: law cost returned non-number",
			zap.String("law", law),
			zap.String("type", ret.Type().String()),
		)
		return stamina, nil
	}
	adj := int(math.Ceil(float64(n)))
	if adj < 0 {
		adj = 0
	}
	return adj, nil
}
