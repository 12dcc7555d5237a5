// Package tagscript runs an optional Lua tag script as an extra tag layer.
//
// The script defines a global process_tags(tags, poi) function. It receives
// the tags computed so far and a read-only view of the record and returns the
// tag table to continue with. Returning nil keeps the tags unchanged.
package tagscript

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wegman-software/poimatch-go/internal/logger"
	"github.com/wegman-software/poimatch-go/internal/poi"
	"github.com/wegman-software/poimatch-go/internal/tagger"
)

// LayerName is the name of the script layer in phase reports
const LayerName = "tag script"

// Runtime manages the Lua interpreter
type Runtime struct {
	L           *lua.LState
	mu          sync.Mutex
	processTags lua.LValue
}

// NewRuntime creates a Lua state with the poimatch API registered
func NewRuntime() *Runtime {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	r := &Runtime{L: L}
	r.registerAPI()
	return r
}

// Close releases Lua resources
func (r *Runtime) Close() {
	r.L.Close()
}

func (r *Runtime) registerAPI() {
	poimatch := r.L.NewTable()
	poimatch.RawSetString("version", lua.LString("1.0.0"))
	r.L.SetGlobal("poimatch", poimatch)

	RegisterTransforms(r.L)

	r.L.SetGlobal("print", r.L.NewFunction(r.luaPrint))
}

// LoadFile loads and executes a Lua tag script
func (r *Runtime) LoadFile(path string) error {
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to load Lua file: %w", err)
	}
	r.processTags = r.L.GetGlobal("process_tags")
	return nil
}

// LoadString loads and executes Lua code from a string
func (r *Runtime) LoadString(code string) error {
	if err := r.L.DoString(code); err != nil {
		return fmt.Errorf("failed to load Lua code: %w", err)
	}
	r.processTags = r.L.GetGlobal("process_tags")
	return nil
}

// HasProcessTags returns true if process_tags is defined
func (r *Runtime) HasProcessTags() bool {
	return r.processTags != nil && r.processTags.Type() == lua.LTFunction
}

// ProcessTags calls process_tags with a copy of tags and the record
func (r *Runtime) ProcessTags(tags tagger.Tags, rec *poi.Record) (tagger.Tags, error) {
	if !r.HasProcessTags() {
		return tags, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.L.CallByParam(lua.P{
		Fn:      r.processTags,
		NRet:    1,
		Protect: true,
	}, tagsToLua(r.L, tags), recordToLua(r.L, rec)); err != nil {
		return nil, fmt.Errorf("lua callback error: %w", err)
	}

	ret := r.L.Get(-1)
	r.L.Pop(1)

	switch v := ret.(type) {
	case *lua.LNilType:
		return tags, nil
	case *lua.LTable:
		return tableToTags(v)
	default:
		return nil, fmt.Errorf("process_tags returned %s, want table", ret.Type())
	}
}

// Layer wraps the script as a tag layer
func (r *Runtime) Layer() tagger.Layer {
	return tagger.Layer{
		Name: LayerName,
		Apply: func(tags tagger.Tags, in *tagger.Input) (tagger.Tags, error) {
			return r.ProcessTags(tags, in.Record)
		},
	}
}

func tagsToLua(L *lua.LState, tags tagger.Tags) *lua.LTable {
	tbl := L.NewTable()
	for k, v := range tags {
		tbl.RawSetString(k, lua.LString(v))
	}
	return tbl
}

// recordToLua exposes the record fields a script may branch on
func recordToLua(L *lua.LState, rec *poi.Record) *lua.LTable {
	tbl := L.NewTable()
	if rec == nil {
		return tbl
	}

	tbl.RawSetString("code", lua.LString(rec.Code))
	tbl.RawSetString("name", lua.LString(rec.Name))
	tbl.RawSetString("branch", lua.LString(rec.Branch))
	tbl.RawSetString("city", lua.LString(rec.City))
	tbl.RawSetString("postcode", lua.LString(rec.Postcode))
	tbl.RawSetString("street", lua.LString(rec.Street))
	tbl.RawSetString("housenumber", lua.LString(rec.HouseNumber))
	tbl.RawSetString("url_base", lua.LString(rec.URLBase))
	tbl.RawSetString("website", lua.LString(rec.Website))
	tbl.RawSetString("phone", lua.LString(rec.Phone))
	tbl.RawSetString("email", lua.LString(rec.Email))
	tbl.RawSetString("description", lua.LString(rec.Description))
	tbl.RawSetString("lat", lua.LNumber(rec.Lat))
	tbl.RawSetString("lon", lua.LNumber(rec.Lon))
	tbl.RawSetString("new", lua.LBool(rec.New))

	if f := rec.Feature(); f != nil {
		tbl.RawSetString("osm_id", lua.LNumber(f.ID))
		tbl.RawSetString("osm_type", lua.LString(f.Kind))
		tbl.RawSetString("live", tagsToLua(L, tagger.Tags(f.Tags)))
	}
	return tbl
}

// tableToTags converts the returned table; non-string keys are rejected
func tableToTags(tbl *lua.LTable) (tagger.Tags, error) {
	out := tagger.Tags{}
	var err error
	tbl.ForEach(func(key, value lua.LValue) {
		if err != nil {
			return
		}
		k, ok := key.(lua.LString)
		if !ok {
			err = fmt.Errorf("tag key %s is not a string", key.String())
			return
		}
		switch v := value.(type) {
		case lua.LString:
			out[string(k)] = string(v)
		case lua.LNumber:
			out[string(k)] = formatNumber(float64(v))
		case lua.LBool:
			if v {
				out[string(k)] = "yes"
			} else {
				out[string(k)] = "no"
			}
		default:
			err = fmt.Errorf("tag %q has unsupported value type %s", string(k), value.Type())
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// luaPrint routes print output to the debug log
func (r *Runtime) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	var parts []string
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	logger.Get().Debug("Lua print", zap.String("msg", strings.Join(parts, "\t")))
	return 0
}
