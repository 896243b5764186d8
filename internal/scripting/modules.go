package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerModules installs the engine table: engine.law registers a law and
// engine.log writes an info line.
func (b *LawBook) registerModules() {
	engine := b.L.NewTable()
	b.L.SetField(engine, "law", b.L.NewFunction(b.luaLaw))
	b.L.SetField(engine, "log", b.L.NewFunction(b.luaLog))
	b.L.SetGlobal("engine", engine)
}

func (b *LawBook) luaLaw(L *lua.LState) int {
	def := L.CheckTable(1)
	id, ok := L.GetField(def, "id").(lua.LString)
	if !ok || id == "" {
		L.RaiseError("%s: id must be a non-empty string", ErrInvalidLaw)
		return 0
	}
	e := &lawEntry{Law: Law{ID: string(id), Name: string(id)}}
	if name, ok := L.GetField(def, "name").(lua.LString); ok && name != "" {
		e.Name = string(name)
	}
	if desc, ok := L.GetField(def, "description").(lua.LString); ok {
		e.Description = string(desc)
	}
	switch fn := L.GetField(def, "cost").(type) {
	case *lua.LFunction:
		e.cost = fn
	case *lua.LNilType:
	default:
		L.RaiseError("%s: %s cost must be a function", ErrInvalidLaw, id)
		return 0
	}
	// called with b.mu held by LoadString
	b.laws[e.ID] = e
	return 0
}

func (b *LawBook) luaLog(L *lua.LState) int {
	b.logger.Info("scripting: law log", zap.String("msg", L.CheckString(1)))
	return 0
}
