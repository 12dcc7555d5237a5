package tagscript

import (
	"regexp"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/wegman-software/poimatch-go/internal/tagger"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	phoneJunkRegex  = regexp.MustCompile(`[^0-9+]`)
)

// helpers are available to scripts as globals and under poimatch.transforms
var helpers = map[string]lua.LGFunction{
	"trim":            luaTrim,
	"lower":           luaLower,
	"clean_spaces":    luaCleanSpaces,
	"parse_bool":      luaParseBool,
	"yes_no":          luaYesNo,
	"clean_phone":     luaCleanPhone,
	"resolve_website": luaResolveWebsite,
	"source_host":     luaSourceHost,
}

// RegisterTransforms installs the tag helpers into L
func RegisterTransforms(L *lua.LState) {
	transforms := L.NewTable()
	for name, fn := range helpers {
		f := L.NewFunction(fn)
		L.SetField(transforms, name, f)
		L.SetGlobal(name, f)
	}

	poimatch, ok := L.GetGlobal("poimatch").(*lua.LTable)
	if !ok {
		poimatch = L.NewTable()
		L.SetGlobal("poimatch", poimatch)
	}
	L.SetField(poimatch, "transforms", transforms)
}

func luaTrim(L *lua.LState) int {
	L.Push(lua.LString(strings.TrimSpace(L.CheckString(1))))
	return 1
}

func luaLower(L *lua.LState) int {
	L.Push(lua.LString(strings.ToLower(L.CheckString(1))))
	return 1
}

// luaCleanSpaces collapses runs of whitespace in addresses and names
func luaCleanSpaces(L *lua.LState) int {
	s := L.CheckString(1)
	L.Push(lua.LString(strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))))
	return 1
}

// luaParseBool reads provider flags; anything but an explicit no is true
func luaParseBool(L *lua.LState) int {
	switch strings.ToLower(strings.TrimSpace(L.CheckString(1))) {
	case "no", "false", "0", "off", "nem", "":
		L.Push(lua.LFalse)
	default:
		L.Push(lua.LTrue)
	}
	return 1
}

// luaYesNo renders a truthy value the way amenity flags are tagged
func luaYesNo(L *lua.LState) int {
	if lua.LVAsBool(L.Get(1)) {
		L.Push(lua.LString("yes"))
	} else {
		L.Push(lua.LString("no"))
	}
	return 1
}

// luaCleanPhone keeps digits and plus signs of each ';'-separated number
func luaCleanPhone(L *lua.LState) int {
	var parts []string
	for _, p := range strings.Split(L.CheckString(1), ";") {
		if p = phoneJunkRegex.ReplaceAllString(p, ""); p != "" {
			parts = append(parts, p)
		}
	}
	L.Push(lua.LString(strings.Join(parts, ";")))
	return 1
}

// luaResolveWebsite(base, site) returns the website the engine would write,
// or nil and an error message
func luaResolveWebsite(L *lua.LState) int {
	site, err := tagger.ResolveWebsite(L.CheckString(1), L.OptString(2, ""))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(site))
	return 1
}

// luaSourceHost returns the host used in source:<host>:date, nil when unknown
func luaSourceHost(L *lua.LState) int {
	host, err := tagger.SourceHost(L.CheckString(1))
	if err != nil || host == "" {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(host))
	return 1
}
