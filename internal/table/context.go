/*
Copyright 2025 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package table holds the deduplicating pools that back the compact lookup
// tables written by the emitters.
package table

import (
	"strings"

	"goarrg.com/rhi/vkgen/internal/util"
)

type IndexRange struct {
	First uint32
	Count uint32
}

type ListKind uint32

const (
	ListAlias ListKind = iota
	ListCapability
	ListExtension
	ListOperand
	listKindCount
)

func (k ListKind) String() string {
	switch k {
	case ListAlias:
		return "alias"
	case ListCapability:
		return "capability"
	case ListExtension:
		return "extension"
	case ListOperand:
		return "operand"
	}
	util.Abort("Unknown list kind: %d", uint32(k))
	return ""
}

type rangePool struct {
	entries []string
	ranges  map[string]IndexRange
}

// Context is owned by a single emitter run and must not be copied.
type Context struct {
	util.NoCopy

	strings  strings.Builder
	interned map[string]IndexRange
	pools    [listKindCount]rangePool
}

func NewContext() *Context {
	c := &Context{}
	c.Init()
	return c
}

func (c *Context) init() {
	c.InitLazy()
	if c.interned == nil {
		c.interned = map[string]IndexRange{}
		for i := range c.pools {
			c.pools[i].ranges = map[string]IndexRange{}
		}
	}
}

// AddString interns s. Every string is followed by a NUL in the buffer, the
// returned count excludes it.
func (c *Context) AddString(s string) IndexRange {
	c.init()

	if r, ok := c.interned[s]; ok {
		return r
	}
	r := IndexRange{First: uint32(c.strings.Len()), Count: uint32(len(s))}
	c.strings.WriteString(s)
	c.strings.WriteByte(0)
	c.interned[s] = r
	return r
}

// AddStringList appends one entry per element of list into the kind's pool
// and returns the range covering them. Alias entries are also interned as
// strings so their names can be looked up from the string buffer.
func (c *Context) AddStringList(kind ListKind, list []string) IndexRange {
	c.init()

	if len(list) == 0 {
		return IndexRange{}
	}
	if kind >= listKindCount {
		util.Abort("Unknown list kind: %d", uint32(kind))
	}
	if kind == ListAlias {
		for _, s := range list {
			c.AddString(s)
		}
	}

	pool := &c.pools[kind]
	key := strings.Join(list, "\x00")
	if r, ok := pool.ranges[key]; ok {
		return r
	}
	r := IndexRange{First: uint32(len(pool.entries)), Count: uint32(len(list))}
	pool.entries = append(pool.entries, list...)
	pool.ranges[key] = r
	return r
}

// StringBuffer returns the concatenated NUL separated string pool.
func (c *Context) StringBuffer() string {
	c.init()
	return c.strings.String()
}

func (c *Context) String(r IndexRange) string {
	c.init()
	buf := c.strings.String()
	if uint64(r.First)+uint64(r.Count) > uint64(len(buf)) {
		util.Abort("String range out of bounds: %+v", r)
	}
	return buf[r.First : r.First+r.Count]
}

func (c *Context) Entries(kind ListKind) []string {
	c.init()
	return append([]string(nil), c.pools[kind].entries...)
}

func (c *Context) List(kind ListKind, r IndexRange) []string {
	c.init()
	e := c.pools[kind].entries
	if uint64(r.First)+uint64(r.Count) > uint64(len(e)) {
		util.Abort("%s range out of bounds: %+v", kind, r)
	}
	return append([]string(nil), e[r.First:r.First+r.Count]...)
}
