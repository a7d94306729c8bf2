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

// Package registry loads a Vulkan style XML API registry into a linked,
// read-only object model.
package registry

import (
	"goarrg.com/gmath"
	"goarrg.com/rhi/vkgen/internal/container"
)

// Kind tags the entity categories held by an API.
type Kind uint32

const (
	KindNone Kind = iota
	KindHandle
	KindStruct
	KindUnion
	KindEnum
	KindBitmask
	KindFlags
	KindBaseType
	KindDefine
	KindFuncPointer
	KindCommand
	KindConstant
	KindEnumField
	KindFlag
	KindExternal
	KindInclude
)

func (k Kind) String() string {
	switch k {
	case KindHandle:
		return "handle"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindEnum:
		return "enum"
	case KindBitmask:
		return "bitmask"
	case KindFlags:
		return "flags"
	case KindBaseType:
		return "basetype"
	case KindDefine:
		return "define"
	case KindFuncPointer:
		return "funcpointer"
	case KindCommand:
		return "command"
	case KindConstant:
		return "constant"
	case KindEnumField:
		return "enum field"
	case KindFlag:
		return "flag"
	case KindExternal:
		return "external"
	case KindInclude:
		return "include"
	default:
		return "none"
	}
}

type ExternSync uint32

const (
	ExternSyncNone ExternSync = iota
	ExternSyncAlways
	ExternSyncMaybe
	ExternSyncSubtype
	ExternSyncSubtypeMaybe
)

func (e ExternSync) String() string {
	switch e {
	case ExternSyncAlways:
		return "ALWAYS"
	case ExternSyncMaybe:
		return "MAYBE"
	case ExternSyncSubtype:
		return "SUBTYPE"
	case ExternSyncSubtypeMaybe:
		return "SUBTYPE_MAYBE"
	default:
		return "NONE"
	}
}

func (e ExternSync) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Origin records which feature or extensions introduced an entity.
// Version is nil for entities that only come from extensions.
type Origin struct {
	Version    *Version
	Extensions []*Extension
}

func (o *Origin) addExtension(e *Extension) {
	if e == nil {
		return
	}
	for _, have := range o.Extensions {
		if have == e {
			return
		}
	}
	o.Extensions = append(o.Extensions, e)
}

// Protect returns the preprocessor guard of the introducing extension when
// the entity does not come from a core version.
func (o *Origin) Protect() string {
	if o.Version != nil || len(o.Extensions) == 0 {
		return ""
	}
	return o.Extensions[0].Protect
}

type Version struct {
	Name       string // VK_VERSION_1_2
	NameString string // "VK_VERSION_1_2"
	NameAPI    string // VK_API_VERSION_1_2
	Number     string // 1.2
	Major      uint32
	Minor      uint32
	APIs       []string

	Interface
}

type Extension struct {
	Name             string
	NameString       string // value of the _EXTENSION_NAME enum, quoted
	NameMacro        string
	SpecVersion      string
	SpecVersionMacro string
	Number           uint32
	Type             string
	Instance         bool
	Device           bool
	Vendor           string
	Author           string
	Platform         string
	Protect          string
	Provisional      bool
	Ratified         bool
	PromotedTo       string
	DeprecatedBy     string
	ObsoletedBy      string
	SpecialUse       []string
	Supported        []string
	Depends          *Expr

	PromotedToVersion   *Version
	PromotedToExtension *Extension
	DeprecatedByVersion *Version

	Interface
}

// Interface is the reverse lookup of everything a version or extension
// requires. Filled by the link pass.
type Interface struct {
	Requires []*Require

	Handles      []*Handle
	Commands     []*Command
	Structs      []*Struct
	Enums        []*Enum
	Bitmasks     []*Bitmask
	Flags        []*Flags
	Constants    []*Constant
	FuncPointers []*FuncPointer
	EnumFields   map[string][]*EnumField
	FlagBits     map[string][]*Flag
}

// Require is one applied <require> block kept in declaration order.
type Require struct {
	Comment  string
	Depends  *Expr
	Types    []string
	Commands []string
	Enums    []string
	Features []RequireFeature
}

type RequireFeature struct {
	Struct string
	Name   string
}

type Handle struct {
	Name         string
	Aliases      []string
	Type         string
	ParentName   string
	Parent       *Handle
	Instance     bool
	Device       bool
	Dispatchable bool

	Origin
}

// Decl is the part of a parameter or member declaration shared by both.
type Decl struct {
	Name            string
	Type            string
	FullType        string
	Const           bool
	Pointer         bool
	PointerDepth    int
	FixedSizeArray  []string
	Length          string
	AltLength       string
	NullTerminated  bool
	Optional        bool
	OptionalPointer bool
	ExternSync      ExternSync
	ExternSyncPath  string
	NoAutoValidity  bool
	LimitType       string
	BitFieldWidth   int
	CDeclaration    string
	APIs            []string

	// Resolved by the link pass.
	TypeKind   Kind
	Struct     *Struct
	Enum       *Enum
	Bitmask    *Bitmask
	Flags      *Flags
	Handle     *Handle
	LengthDecl *Decl
}

func (d *Decl) IsString() bool {
	return d.Type == "char" && d.PointerDepth == 1 && d.NullTerminated
}

func (d *Decl) IsStringArray() bool {
	return d.Type == "char" && d.PointerDepth == 2
}

func (d *Decl) IsPNext() bool {
	return d.Name == "pNext" && d.Type == "void" && d.PointerDepth == 1
}

type Param struct {
	Decl
}

type Member struct {
	Decl
	Values     string
	Selector   string
	Selection  []string
	Deprecated string
}

type Struct struct {
	Name           string
	Aliases        []string
	Members        []*Member
	Union          bool
	ReturnedOnly   bool
	SType          string
	AllowDuplicate bool
	Extends        []string
	ExtendedBy     []string
	Comment        string
	Deprecate      *Deprecate

	// Depth of the by-value dependency subdag, used for ordering.
	Depth int

	Origin
}

func (s *Struct) Member(name string) *Member {
	for _, m := range s.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

type Command struct {
	Name               string
	Aliases            []string
	ReturnType         string
	Params             []*Param
	Instance           bool
	Device             bool
	Tasks              []string
	Queues             []string
	AllowNoQueues      bool
	SuccessCodes       []string
	ErrorCodes         []string
	Primary            bool
	Secondary          bool
	RenderPass         string
	VideoCoding        string
	ImplicitExternSync []string
	Deprecate          *Deprecate
	CPrototype         string
	CFuncPointer       string

	Origin
}

type Enum struct {
	Name         string
	Aliases      []string
	BitWidth     int
	ReturnedOnly bool
	Fields       []*EnumField
	Comment      string

	Origin
}

func (e *Enum) Field(name string) *EnumField {
	for _, f := range e.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

type EnumField struct {
	Name     string
	Aliases  []string
	Alias    string // set on alias entries, names the canonical field
	Negative bool
	Value    int64
	ValueStr string
	Comment  string
	Protect  string
	Required bool

	Origin
}

type Bitmask struct {
	Name         string // FlagBits type
	FlagName     string // Flags typedef
	Aliases      []string
	BitWidth     int
	ReturnedOnly bool
	Flags        []*Flag
	Comment      string

	Origin
}

func (b *Bitmask) Flag(name string) *Flag {
	for _, f := range b.Flags {
		if f.Name == name {
			return f
		}
	}
	return nil
}

type Flag struct {
	Name     string
	Aliases  []string
	Alias    string
	Value    uint64
	ValueStr string
	MultiBit bool
	Zero     bool
	Comment  string
	Protect  string
	Required bool

	// Set on flags defined in the bitmask's own <enums> block.
	inherited bool

	Origin
}

// Flags is the VkFooFlags typedef. Bitmask is nil for reserved flags.
type Flags struct {
	Name        string
	Aliases     []string
	BaseType    string
	BitmaskName string
	Bitmask     *Bitmask

	Origin
}

type Constant struct {
	Name     string
	Aliases  []string
	Type     string
	Value    string
	ValueInt int64
	IsInt    bool
	Comment  string

	Origin
}

type Define struct {
	Name     string
	Body     string
	Requires string

	Origin
}

type BaseType struct {
	Name string
	Type string
	Body string

	Origin
}

type FuncPointer struct {
	Name       string
	ReturnType string
	Params     []*Param
	Requires   string
	Body       string

	Origin
}

type Deprecate struct {
	Link         string
	VersionName  string
	Version      *Version
	Replacements []*Extension
}

type Format struct {
	Name             string
	ClassName        string
	BlockSize        uint32
	TexelsPerBlock   uint32
	BlockExtent      gmath.Extent3u32
	Packed           uint32
	Chroma           string
	Compressed       string
	Components       []*FormatComponent
	Planes           []*FormatPlane
	SpirvImageFormat string

	Origin
}

type FormatComponent struct {
	Type          string // R G B A D S
	Bits          uint32
	Compressed    bool
	NumericFormat string
	PlaneIndex    int
}

type FormatPlane struct {
	Index         int
	WidthDivisor  uint32
	HeightDivisor uint32
	Compatible    string
}

type SyncSupport struct {
	Queues []string
	Stages []string
	Max    bool
}

type SyncEquivalent struct {
	Stages   []string
	Accesses []string
	Max      bool
}

type SyncStage struct {
	Name       string
	Support    *SyncSupport
	Equivalent *SyncEquivalent
}

type SyncAccess struct {
	Name       string
	Support    *SyncSupport
	Equivalent *SyncEquivalent
}

type SyncPipelineStage struct {
	Order  string
	Before string
	After  string
	Value  string
}

type SyncPipeline struct {
	Name    string
	Depends *Expr
	Stages  []*SyncPipelineStage
}

type SpirvEnables struct {
	Version   string
	Extension string
	Struct    string
	Feature   string
	Requires  string
	Alias     string
	Property  string
	Member    string
	Value     string
}

type Spirv struct {
	Name       string
	Extension  bool
	Capability bool
	Enables    []*SpirvEnables
}

type VideoProfileValue struct {
	Name  string
	Value string
}

type VideoProfileMember struct {
	Name   string
	Values []*VideoProfileValue
}

type VideoProfiles struct {
	Struct  string
	Members []*VideoProfileMember
}

type VideoRequiredCapabilities struct {
	Struct string
	Member string
	Value  string
}

type VideoFormat struct {
	Name         string
	Usage        string
	RequiredCaps []*VideoRequiredCapabilities
	Properties   []string
}

type VideoCodec struct {
	Name         string
	Value        string
	Extend       string
	Profiles     []*VideoProfiles
	Capabilities []string
	Formats      []*VideoFormat
}

type VideoStdHeader struct {
	Name        string
	HeaderFile  string
	Version     string
	VersionName string
	Depends     []string
	Types       []string
	Enums       []string
}

type VideoStd struct {
	Headers   []*VideoStdHeader
	Enums     *container.OrderedMap[string, *Enum]
	Structs   *container.OrderedMap[string, *Struct]
	Constants *container.OrderedMap[string, *Constant]
}

// Alias records an alternate name and where it was introduced.
type Alias struct {
	Name   string
	Target string
	Kind   Kind

	Origin
}

type Platform struct {
	Name    string
	Protect string
}

type Tag struct {
	Name    string
	Author  string
	Contact string
}

// API is the linked model of one registry for one target API. It is not
// modified after Load returns, except by LoadMergedVideoStd.
type API struct {
	Name          string
	Source        string
	HeaderVersion uint32

	Platforms map[string]*Platform
	Tags      map[string]*Tag

	Versions     *container.OrderedMap[string, *Version]
	Extensions   *container.OrderedMap[string, *Extension]
	Handles      *container.OrderedMap[string, *Handle]
	Commands     *container.OrderedMap[string, *Command]
	Structs      *container.OrderedMap[string, *Struct]
	Enums        *container.OrderedMap[string, *Enum]
	Bitmasks     *container.OrderedMap[string, *Bitmask]
	Flags        *container.OrderedMap[string, *Flags]
	Constants    *container.OrderedMap[string, *Constant]
	Defines      *container.OrderedMap[string, *Define]
	BaseTypes    *container.OrderedMap[string, *BaseType]
	FuncPointers *container.OrderedMap[string, *FuncPointer]
	Aliases      *container.OrderedMap[string, *Alias]
	// TypeOrder lists every materialized non alias type in registry
	// declaration order, across categories.
	TypeOrder []string

	Formats           []*Format
	SyncStages        []*SyncStage
	SyncAccesses      []*SyncAccess
	SyncPipelines     []*SyncPipeline
	SpirvExtensions   []*Spirv
	SpirvCapabilities []*Spirv
	VideoCodecs       []*VideoCodec
	VideoStd          *VideoStd

	// Extensions present in the registry but not supported by this API.
	Unsupported []string

	// alias name to canonical name, fully collapsed.
	aliases map[string]string
}

func newAPI(name string) *API {
	return &API{
		Name:         name,
		Platforms:    map[string]*Platform{},
		Tags:         map[string]*Tag{},
		Versions:     container.NewOrderedMap[string, *Version](),
		Extensions:   container.NewOrderedMap[string, *Extension](),
		Handles:      container.NewOrderedMap[string, *Handle](),
		Commands:     container.NewOrderedMap[string, *Command](),
		Structs:      container.NewOrderedMap[string, *Struct](),
		Enums:        container.NewOrderedMap[string, *Enum](),
		Bitmasks:     container.NewOrderedMap[string, *Bitmask](),
		Flags:        container.NewOrderedMap[string, *Flags](),
		Constants:    container.NewOrderedMap[string, *Constant](),
		Defines:      container.NewOrderedMap[string, *Define](),
		BaseTypes:    container.NewOrderedMap[string, *BaseType](),
		FuncPointers: container.NewOrderedMap[string, *FuncPointer](),
		Aliases:      container.NewOrderedMap[string, *Alias](),
		aliases:      map[string]string{},
	}
}

// Lookup resolves any type, command or constant name, following aliases.
func (api *API) Lookup(name string) (Kind, any) {
	name = api.Dealias(name)
	if v, ok := api.Handles.Get(name); ok {
		return KindHandle, v
	}
	if v, ok := api.Structs.Get(name); ok {
		if v.Union {
			return KindUnion, v
		}
		return KindStruct, v
	}
	if v, ok := api.Enums.Get(name); ok {
		return KindEnum, v
	}
	if v, ok := api.Bitmasks.Get(name); ok {
		return KindBitmask, v
	}
	if v, ok := api.Flags.Get(name); ok {
		return KindFlags, v
	}
	if v, ok := api.BaseTypes.Get(name); ok {
		return KindBaseType, v
	}
	if v, ok := api.FuncPointers.Get(name); ok {
		return KindFuncPointer, v
	}
	if v, ok := api.Defines.Get(name); ok {
		return KindDefine, v
	}
	if v, ok := api.Commands.Get(name); ok {
		return KindCommand, v
	}
	if v, ok := api.Constants.Get(name); ok {
		return KindConstant, v
	}
	return KindNone, nil
}
