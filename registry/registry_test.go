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

package registry

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"goarrg.com/gmath"
	"goarrg.com/rhi/vkgen/internal/fail"
)

func loadTestAPI(t *testing.T, opts LoadOptions) *API {
	t.Helper()
	api, err := Load("testdata/vk.xml", opts)
	if err != nil {
		t.Fatal(err)
	}
	return api
}

func names[T any](list []T, name func(T) string) []string {
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = name(v)
	}
	return out
}

func TestLoad(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{})

	if got := api.Versions.Keys(); !slices.Equal(got, []string{"VK_VERSION_1_0", "VK_VERSION_1_1"}) {
		t.Errorf("Expected vulkan versions only, got %v", got)
	}
	if api.Extensions.Has("VK_NV_disabled") || !slices.Contains(api.Unsupported, "VK_NV_disabled") {
		t.Errorf("Expected VK_NV_disabled to be unsupported")
	}
	if api.HeaderVersion != 280 {
		t.Errorf("Expected header version 280, got %d", api.HeaderVersion)
	}

	v, _ := api.Versions.Get("VK_VERSION_1_1")
	if v.Major != 1 || v.Minor != 1 || v.NameAPI != "VK_API_VERSION_1_1" || v.NameString != `"VK_VERSION_1_1"` {
		t.Errorf("Unexpected version %+v", v)
	}

	e, ok := api.Extensions.Get("VK_EXT_sample")
	if !ok {
		t.Fatal("Missing VK_EXT_sample")
	}
	if e.NameString != `"VK_EXT_sample"` || e.NameMacro != "VK_EXT_SAMPLE_EXTENSION_NAME" || e.SpecVersion != "2" {
		t.Errorf("Unexpected extension strings %q %q %q", e.NameString, e.NameMacro, e.SpecVersion)
	}
	if !e.Device || e.Instance || e.Vendor != "EXT" || !slices.Equal(e.SpecialUse, []string{"devtools"}) {
		t.Errorf("Unexpected extension attributes %+v", e)
	}

	w, _ := api.Extensions.Get("VK_KHR_sample_win32")
	if w.Protect != "VK_USE_PLATFORM_WIN32_KHR" || !w.Instance {
		t.Errorf("Expected win32 guard on an instance extension, got %q %v", w.Protect, w.Instance)
	}
	if w.Depends.String() != "VK_KHR_surface" {
		t.Errorf("Unexpected depends %q", w.Depends)
	}
	if s, _ := api.Structs.Get("VkWin32SampleCreateInfoKHR"); s == nil || s.Protect() != "VK_USE_PLATFORM_WIN32_KHR" {
		t.Errorf("Expected VkWin32SampleCreateInfoKHR behind the win32 guard")
	}
	if s, _ := api.Extensions.Get("VK_KHR_surface"); !s.Ratified {
		t.Errorf("Expected VK_KHR_surface to be ratified")
	}

	if api.Constants.Has("VK_LOD_CLAMP_NONE") {
		t.Errorf("Expected VK_LOD_CLAMP_NONE to be removed")
	}
	if c, _ := api.Constants.Get("VK_MAX_EXTENSION_NAME_SIZE"); c == nil || !c.IsInt || c.ValueInt != 256 || c.Type != "uint32_t" {
		t.Errorf("Unexpected VK_MAX_EXTENSION_NAME_SIZE %+v", c)
	}
	if c, _ := api.Constants.Get("VK_WHOLE_SIZE"); c == nil || c.IsInt || c.Value != "(~0ULL)" {
		t.Errorf("Unexpected VK_WHOLE_SIZE %+v", c)
	}
	if api.Commands.Has("vkNeverEXT") {
		t.Errorf("Expected vkNeverEXT to be skipped, its require block depends on a disabled extension")
	}
	if !api.Commands.Has("vkBarSurfaceEXT") {
		t.Errorf("Expected vkBarSurfaceEXT from a satisfied require block")
	}
	if api.Structs.Has("VkSCOnlyInfo") {
		t.Errorf("Expected vulkansc only struct to be filtered")
	}
}

func TestEnumValues(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{})

	tests := []struct {
		enum, field string
		value       int64
	}{
		{"VkFilter", "VK_FILTER_LINEAR", 1},
		{"VkFilter", "VK_FILTER_CUBIC_IMG", 1000015000},
		{"VkFilter", "VK_FILTER_CUBIC_EXT", 1000015000},
		{"VkResult", "VK_ERROR_INITIALIZATION_FAILED", -3},
		{"VkResult", "VK_ERROR_SAMPLE_FAILED_EXT", -1000599000},
		{"VkStructureType", "VK_STRUCTURE_TYPE_SAMPLE_SHADER_INFO_EXT", 1000599000},
		{"VkStructureType", "VK_STRUCTURE_TYPE_WIN32_SAMPLE_CREATE_INFO_KHR", 1000601000},
		{"VkFormat", "VK_FORMAT_G8_B8_R8_3PLANE_420_UNORM", 1000156002},
	}
	for _, test := range tests {
		t.Run(test.field, func(t *testing.T) {
			e, ok := api.Enums.Get(test.enum)
			if !ok {
				t.Fatalf("Missing enum %q", test.enum)
			}
			f := e.Field(test.field)
			if f == nil {
				t.Fatalf("Missing field %q", test.field)
			}
			if f.Value != test.value || f.Negative != (test.value < 0) {
				t.Errorf("Expected %d, got %d (negative %v)", test.value, f.Value, f.Negative)
			}
		})
	}

	{
		e, _ := api.Enums.Get("VkResult")
		f := e.Field("VK_ERROR_SAMPLE_FAILED_EXT")
		if len(f.Extensions) != 1 || f.Extensions[0].Name != "VK_EXT_sample" {
			t.Errorf("Expected VK_EXT_sample origin, got %v", names(f.Extensions, func(e *Extension) string { return e.Name }))
		}
		if f.Version != nil {
			t.Errorf("Expected no version on an extension value")
		}
	}

	// a name may only ever carry one value
	for _, e := range api.Enums.Values() {
		seen := map[string]int64{}
		for _, f := range e.Fields {
			if v, ok := seen[f.Name]; ok && v != f.Value {
				t.Errorf("%s: %q has values %d and %d", e.Name, f.Name, v, f.Value)
			}
			seen[f.Name] = f.Value
		}
	}
}

func TestAliases(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{})

	tests := []struct {
		alias, canonical string
	}{
		{"VK_FILTER_CUBIC_EXT", "VK_FILTER_CUBIC_IMG"},
		{"VK_FRAMEBUFFER_CREATE_IMAGELESS_BIT_KHR", "VK_FRAMEBUFFER_CREATE_IMAGELESS_BIT"},
		{"VkSampleShaderInfoKHR", "VkSampleShaderInfoEXT"},
		{"VkSampleShaderInfoARM", "VkSampleShaderInfoEXT"},
		{"vkFooKHR", "vkFoo"},
		{"VK_MAX_EXTENSION_NAME_SIZE_KHR", "VK_MAX_EXTENSION_NAME_SIZE"},
		{"VkDevice", "VkDevice"},
	}
	for _, test := range tests {
		if got := api.Dealias(test.alias); got != test.canonical {
			t.Errorf("Dealias(%q): expected %q, got %q", test.alias, test.canonical, got)
		}
		if got := api.Dealias(test.alias); api.IsAlias(got) {
			t.Errorf("Dealias(%q) returned the alias %q", test.alias, got)
		}
	}
	for _, a := range api.Aliases.Values() {
		if api.IsAlias(a.Target) {
			t.Errorf("Alias %q targets the alias %q", a.Name, a.Target)
		}
	}

	{
		e, _ := api.Enums.Get("VkFilter")
		c := e.Field("VK_FILTER_CUBIC_IMG")
		a := e.Field("VK_FILTER_CUBIC_EXT")
		if !slices.Equal(c.Aliases, []string{"VK_FILTER_CUBIC_EXT"}) {
			t.Errorf("Expected alias list on the canonical field, got %v", c.Aliases)
		}
		if a.Alias != c.Name || a.ValueStr != c.ValueStr {
			t.Errorf("Expected alias field to mirror %q, got %+v", c.Name, a)
		}
		if a.Extensions[0].Name != "VK_EXT_filter_cubic" {
			t.Errorf("Expected alias field to keep its own extension, got %q", a.Extensions[0].Name)
		}
	}
	{
		s, _ := api.Structs.Get("VkSampleShaderInfoEXT")
		if !slices.Equal(s.Aliases, []string{"VkSampleShaderInfoKHR", "VkSampleShaderInfoARM"}) {
			t.Errorf("Unexpected struct aliases %v", s.Aliases)
		}
		if kind, v := api.Lookup("VkSampleShaderInfoARM"); kind != KindStruct || v.(*Struct) != s {
			t.Errorf("Expected Lookup to reach the canonical struct, got %v", kind)
		}
	}
	{
		c, _ := api.Commands.Get("vkFoo")
		if !slices.Equal(c.Aliases, []string{"vkFooKHR"}) {
			t.Errorf("Unexpected command aliases %v", c.Aliases)
		}
	}
}

func TestHandles(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{})

	tests := []struct {
		name         string
		device       bool
		dispatchable bool
	}{
		{"VkInstance", false, true},
		{"VkPhysicalDevice", false, true},
		{"VkSurfaceKHR", false, false},
		{"VkDevice", true, true},
		{"VkQueue", true, true},
		{"VkCommandBuffer", true, true},
		{"VkShaderModule", true, false},
	}
	for _, test := range tests {
		h, ok := api.Handles.Get(test.name)
		if !ok {
			t.Errorf("Missing handle %q", test.name)
			continue
		}
		if h.Device != test.device || h.Dispatchable != test.dispatchable {
			t.Errorf("%s: expected device %v dispatchable %v, got %v %v", test.name, test.device, test.dispatchable, h.Device, h.Dispatchable)
		}
	}
	for _, h := range api.Handles.Values() {
		if h.Instance == h.Device {
			t.Errorf("%s: instance and device are both %v", h.Name, h.Instance)
		}
	}
	if h, _ := api.Handles.Get("VkCommandBuffer"); h.Parent == nil || h.Parent.Name != "VkCommandPool" {
		t.Errorf("Expected VkCommandPool parent")
	}
}

func TestCommands(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{})

	instance := []string{
		"vkCreateInstance", "vkDestroyInstance", "vkEnumeratePhysicalDevices",
		"vkEnumerateInstanceExtensionProperties", "vkGetInstanceProcAddr",
		"vkGetPhysicalDeviceImageFormatProperties", "vkEnumerateInstanceVersion",
		"vkDestroySurfaceKHR", "vkCreateWin32SampleKHR",
	}
	for _, c := range api.Commands.Values() {
		if c.Instance == c.Device {
			t.Errorf("%s: instance and device are both %v", c.Name, c.Instance)
		}
		if want := slices.Contains(instance, c.Name); c.Instance != want {
			t.Errorf("%s: expected instance %v", c.Name, want)
		}
	}

	foo, _ := api.Commands.Get("vkFoo")
	if foo.CPrototype != "VKAPI_ATTR void VKAPI_CALL vkFoo(VkDevice device);" {
		t.Errorf("Unexpected prototype %q", foo.CPrototype)
	}
	if foo.CFuncPointer != "typedef void (VKAPI_PTR *PFN_vkFoo)(VkDevice device);" {
		t.Errorf("Unexpected function pointer %q", foo.CFuncPointer)
	}

	ver, _ := api.Commands.Get("vkEnumerateInstanceVersion")
	if ver.Version == nil || ver.Version.Name != "VK_VERSION_1_1" {
		t.Errorf("Expected vkEnumerateInstanceVersion to come from 1.1")
	}

	draw, _ := api.Commands.Get("vkCmdDraw")
	if !draw.Primary || !draw.Secondary || draw.RenderPass != "inside" || !slices.Equal(draw.Queues, []string{"VK_QUEUE_GRAPHICS_BIT"}) {
		t.Errorf("Unexpected vkCmdDraw attributes %+v", draw)
	}
	if draw.Params[0].ExternSync != ExternSyncAlways {
		t.Errorf("Expected commandBuffer to be externally synchronized")
	}

	create, _ := api.Commands.Get("vkCreateInstance")
	if !slices.Equal(create.ErrorCodes, []string{"VK_ERROR_OUT_OF_HOST_MEMORY", "VK_ERROR_INITIALIZATION_FAILED"}) {
		t.Errorf("Unexpected error codes %v", create.ErrorCodes)
	}
	if p := create.Params[0]; p.Struct == nil || p.Struct.Name != "VkInstanceCreateInfo" || !p.Const || !p.Pointer {
		t.Errorf("Expected pCreateInfo to resolve to VkInstanceCreateInfo, got %+v", p.Decl)
	}

	enum, _ := api.Commands.Get("vkEnumeratePhysicalDevices")
	if p := enum.Params[2]; p.LengthDecl == nil || p.LengthDecl.Name != "pPhysicalDeviceCount" {
		t.Errorf("Expected pPhysicalDevices to be counted by pPhysicalDeviceCount")
	}
	if p := enum.Params[1]; p.Optional || !p.OptionalPointer {
		t.Errorf("Expected pPhysicalDeviceCount to have an optional pointee only")
	}

	bar, _ := api.Commands.Get("vkBar")
	if bar.Deprecate == nil || len(bar.Deprecate.Replacements) != 1 || bar.Deprecate.Replacements[0].Name != "VK_KHR_sample" {
		t.Errorf("Expected vkBar to be deprecated by VK_KHR_sample")
	} else if bar.Deprecate.Link != "deprecation-sample" {
		t.Errorf("Unexpected deprecation link %q", bar.Deprecate.Link)
	}

	if fp, ok := api.FuncPointers.Get("PFN_vkInternalFreeNotification"); !ok {
		t.Errorf("Missing PFN_vkInternalFreeNotification")
	} else if got := names(fp.Params, func(p *Param) string { return p.CDeclaration }); !slices.Equal(got, []string{"void* pUserData", "size_t size"}) {
		t.Errorf("Unexpected funcpointer params %v", got)
	}
	if fp, _ := api.FuncPointers.Get("PFN_vkVoidFunction"); fp == nil || len(fp.Params) != 0 || fp.ReturnType != "void" {
		t.Errorf("Unexpected PFN_vkVoidFunction %+v", fp)
	}
}

func TestStructs(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{})
	order := api.Structs.Keys()
	before := func(a, b string) {
		t.Helper()
		ia, ib := slices.Index(order, a), slices.Index(order, b)
		if ia < 0 || ib < 0 || ia > ib {
			t.Errorf("Expected %s (%d) before %s (%d)", a, ia, b, ib)
		}
	}
	before("VkExtent3D", "VkImageFormatProperties")
	before("VkShaderModuleCreateInfo", "VkSampleShaderInfoEXT")
	before("VkBaseOutStructure", "VkApplicationInfo")

	for _, s := range api.Structs.Values() {
		for _, m := range s.Members {
			if m.Struct != nil && !m.Pointer && m.Struct.Depth >= s.Depth {
				t.Errorf("%s embeds %s at depth %d >= %d", s.Name, m.Struct.Name, m.Struct.Depth, s.Depth)
			}
			if m.LengthDecl != nil && s.Member(m.LengthDecl.Name) == nil {
				t.Errorf("%s.%s counted by missing sibling %q", s.Name, m.Name, m.LengthDecl.Name)
			}
		}
	}

	shader, _ := api.Structs.Get("VkShaderModuleCreateInfo")
	if shader.SType != "VK_STRUCTURE_TYPE_SHADER_MODULE_CREATE_INFO" {
		t.Errorf("Unexpected sType %q", shader.SType)
	}
	if !slices.Equal(shader.ExtendedBy, []string{"VkSampleShaderInfoEXT"}) {
		t.Errorf("Unexpected extended by %v", shader.ExtendedBy)
	}
	if m := shader.Member("pCode"); m.Length != "codeSize / 4" || m.LengthDecl == nil || m.LengthDecl.Name != "codeSize" {
		t.Errorf("Expected pCode to be counted by codeSize, got %q", m.Length)
	}
	if m := shader.Member("pNext"); !m.IsPNext() || !m.Optional {
		t.Errorf("Expected optional pNext")
	}

	ici, _ := api.Structs.Get("VkInstanceCreateInfo")
	if m := ici.Member("ppEnabledLayerNames"); !m.IsStringArray() || !m.NullTerminated || m.Length != "enabledLayerCount" || m.FullType != "const char* const*" {
		t.Errorf("Unexpected ppEnabledLayerNames %+v", m.Decl)
	}
	if m := ici.Member("pApplicationInfo"); m.Struct == nil || m.TypeKind != KindStruct {
		t.Errorf("Expected pApplicationInfo to resolve to a struct")
	}

	app, _ := api.Structs.Get("VkApplicationInfo")
	if m := app.Member("pApplicationName"); !m.IsString() || !m.NullTerminated {
		t.Errorf("Expected pApplicationName to be a string")
	}

	props, _ := api.Structs.Get("VkExtensionProperties")
	if m := props.Member("extensionName"); !slices.Equal(m.FixedSizeArray, []string{"VK_MAX_EXTENSION_NAME_SIZE"}) || m.CDeclaration != "char extensionName[VK_MAX_EXTENSION_NAME_SIZE]" {
		t.Errorf("Unexpected fixed array %+v", m.Decl)
	}

	bits, _ := api.Structs.Get("VkSampleBitfieldEXT")
	if m := bits.Member("index"); m.BitFieldWidth != 24 || m.CDeclaration != "uint32_t index:24" {
		t.Errorf("Unexpected bit-field %+v", m.Decl)
	}

	if u, _ := api.Structs.Get("VkClearColorValue"); u == nil || !u.Union {
		t.Errorf("Expected VkClearColorValue to be a union")
	}

	returned := map[string]bool{
		"VkImageFormatProperties":      true,
		"VkExtent3D":                   true,
		"VkExtensionProperties":        true,
		"VkSampleBitfieldEXT":          true,
		"VkShaderModuleCreateInfo":     false,
		"VkSampleShaderInfoEXT":        false,
		"VkApplicationInfo":            false,
		"VkDescriptorSetLayoutBinding": false,
	}
	for name, want := range returned {
		s, _ := api.Structs.Get(name)
		if s.ReturnedOnly != want {
			t.Errorf("%s: expected returned only %v", name, want)
		}
	}
	if e, _ := api.Enums.Get("VkFormat"); e.ReturnedOnly {
		t.Errorf("Expected VkFormat to be an input")
	}
	if b, _ := api.Bitmasks.Get("VkSampleFlagBits2EXT"); b.ReturnedOnly {
		t.Errorf("Expected VkSampleFlagBits2EXT to be an input through an extending struct")
	}
}

func TestBitmasks(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{})

	b, ok := api.Bitmasks.Get("VkSampleFlagBits2EXT")
	if !ok {
		t.Fatal("Missing VkSampleFlagBits2EXT")
	}
	if b.BitWidth != 64 || b.FlagName != "VkSampleFlags2EXT" {
		t.Errorf("Unexpected bitmask %+v", b)
	}
	if f := b.Flag("VK_SAMPLE_2_WIDE_BIT_EXT"); f.Value != 1<<33 || f.MultiBit {
		t.Errorf("Unexpected wide bit %+v", f)
	}
	if f := b.Flag("VK_SAMPLE_2_NONE_EXT"); !f.Zero {
		t.Errorf("Expected zero flag")
	}
	for _, f := range b.Flags {
		if len(f.Extensions) != 1 || f.Extensions[0].Name != "VK_EXT_sample" {
			t.Errorf("%s: expected membership of VK_EXT_sample", f.Name)
		}
	}

	stages, _ := api.Bitmasks.Get("VkShaderStageFlagBits")
	if f := stages.Flag("VK_SHADER_STAGE_ALL"); !f.MultiBit || f.Value != 0x7FFFFFFF {
		t.Errorf("Unexpected VK_SHADER_STAGE_ALL %+v", f)
	}
	if f := stages.Flag("VK_SHADER_STAGE_FRAGMENT_BIT"); f.ValueStr != "0x00000010" {
		t.Errorf("Unexpected bitpos value string %q", f.ValueStr)
	}
	if len(stages.Extensions) != 0 {
		t.Errorf("Expected core flags to stay core")
	}

	fb, _ := api.Bitmasks.Get("VkFramebufferCreateFlagBits")
	if f := fb.Flag("VK_FRAMEBUFFER_CREATE_IMAGELESS_BIT"); f == nil || f.Extensions[0].Name != "VK_KHR_imageless_framebuffer" {
		t.Errorf("Expected IMAGELESS from VK_KHR_imageless_framebuffer")
	}
	if f := fb.Flag("VK_FRAMEBUFFER_CREATE_IMAGELESS_BIT_KHR"); f == nil || f.Value != 1 || f.Alias != "VK_FRAMEBUFFER_CREATE_IMAGELESS_BIT" {
		t.Errorf("Unexpected IMAGELESS alias %+v", f)
	}
	if f, _ := api.Flags.Get("VkFramebufferCreateFlags"); f.Bitmask != fb {
		t.Errorf("Expected VkFramebufferCreateFlags to link to its bits")
	}
	if f, _ := api.Flags.Get("VkInstanceCreateFlags"); f.Bitmask != nil || f.BaseType != "VkFlags" {
		t.Errorf("Unexpected VkInstanceCreateFlags %+v", f)
	}

	for _, b := range api.Bitmasks.Values() {
		if b.BitWidth != 32 {
			continue
		}
		for _, f := range b.Flags {
			if f.Value > 0xFFFFFFFF {
				t.Errorf("%s: %s does not fit 32 bits", b.Name, f.Name)
			}
		}
	}
}

func TestInterfaces(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{})

	e, _ := api.Extensions.Get("VK_EXT_sample")
	if got := names(e.Commands, func(c *Command) string { return c.Name }); !slices.Equal(got, []string{"vkFoo", "vkBar", "vkBarSurfaceEXT"}) {
		t.Errorf("Unexpected commands %v", got)
	}
	if got := names(e.Structs, func(s *Struct) string { return s.Name }); !slices.Equal(got, []string{"VkSampleBitfieldEXT", "VkSampleShaderInfoEXT"}) {
		t.Errorf("Unexpected structs %v", got)
	}
	if got := names(e.EnumFields["VkResult"], func(f *EnumField) string { return f.Name }); !slices.Equal(got, []string{"VK_ERROR_SAMPLE_FAILED_EXT"}) {
		t.Errorf("Unexpected VkResult fields %v", got)
	}
	if got := len(e.FlagBits["VkSampleFlagBits2EXT"]); got != 3 {
		t.Errorf("Expected 3 flag bits, got %d", got)
	}
	if len(e.Requires) != 2 {
		t.Errorf("Expected 2 satisfied require blocks, got %d", len(e.Requires))
	}

	v, _ := api.Versions.Get("VK_VERSION_1_1")
	if got := names(v.Commands, func(c *Command) string { return c.Name }); !slices.Equal(got, []string{"vkEnumerateInstanceVersion"}) {
		t.Errorf("Unexpected 1.1 commands %v", got)
	}

	for _, x := range api.Extensions.Values() {
		for _, c := range x.Commands {
			if got, _ := api.Commands.Get(c.Name); got != c {
				t.Errorf("%s: command %q is not in the global map", x.Name, c.Name)
			}
		}
		for _, s := range x.Structs {
			if got, _ := api.Structs.Get(s.Name); got != s {
				t.Errorf("%s: struct %q is not in the global map", x.Name, s.Name)
			}
		}
	}

	k, _ := api.Extensions.Get("VK_KHR_sample")
	if k.Depends.String() != "VK_EXT_sample+(VK_KHR_surface,VK_VERSION_1_1)" {
		t.Errorf("Unexpected depends %q", k.Depends)
	}
}

func TestFormats(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{})
	formats := map[string]*Format{}
	for _, f := range api.Formats {
		formats[f.Name] = f
	}
	if len(formats) != 5 {
		t.Errorf("Expected formats outside of VkFormat to be dropped, got %d", len(formats))
	}

	ds := formats["VK_FORMAT_D24_UNORM_S8_UINT"]
	if ds.DepthSize() != 24 || ds.StencilSize() != 8 || !ds.IsDepthAndStencil() {
		t.Errorf("Unexpected D24S8 sizes %d %d", ds.DepthSize(), ds.StencilSize())
	}
	if ds.DepthNumericalType() != "UNORM" || ds.StencilNumericalType() != "UINT" {
		t.Errorf("Unexpected D24S8 numeric types")
	}
	if s := formats["VK_FORMAT_S8_UINT"]; s.HasDepth() || !s.IsStencilOnly() {
		t.Errorf("Expected S8 to be stencil only")
	}

	bc := formats["VK_FORMAT_BC1_RGB_UNORM_BLOCK"]
	if bc.BlockExtent != (gmath.Extent3u32{X: 4, Y: 4, Z: 1}) || !bc.IsCompressed() || bc.TexelsPerBlock != 16 {
		t.Errorf("Unexpected BC1 %+v", bc)
	}
	if !bc.Component("R").Compressed {
		t.Errorf("Expected compressed component bits")
	}

	rgba := formats["VK_FORMAT_R8G8B8A8_UNORM"]
	if rgba.BlockExtent != (gmath.Extent3u32{X: 1, Y: 1, Z: 1}) || rgba.SpirvImageFormat != "Rgba8" || !rgba.AllComponentBits(8) {
		t.Errorf("Unexpected RGBA8 %+v", rgba)
	}

	yuv := formats["VK_FORMAT_G8_B8_R8_3PLANE_420_UNORM"]
	if yuv.PlaneCount() != 3 || !yuv.IsMultiplane() || !yuv.IsXChromaSubsampled() || !yuv.IsYChromaSubsampled() {
		t.Errorf("Unexpected 3-plane format %+v", yuv)
	}
	if p := yuv.Plane(1); p.WidthDivisor != 2 || p.Compatible != "VK_FORMAT_R8_UNORM" {
		t.Errorf("Unexpected plane %+v", p)
	}
	if yuv.Version == nil || yuv.Version.Name != "VK_VERSION_1_1" {
		t.Errorf("Expected the 3-plane format to come from 1.1")
	}
}

func TestSyncSpirvVideo(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{})

	for _, s := range api.SyncStages {
		if s.Name == "VK_PIPELINE_STAGE_2_ALL_COMMANDS_BIT" && !s.Equivalent.Max {
			t.Errorf("Expected ALL_COMMANDS to be equivalent to every stage")
		}
	}
	wantMax := map[string]bool{
		"VK_ACCESS_2_SHADER_READ_BIT":     true,
		"VK_ACCESS_2_UNIFORM_READ_BIT":    true,
		"VK_ACCESS_2_SAMPLE_READ_BIT_EXT": false,
	}
	for _, a := range api.SyncAccesses {
		if a.Support.Max != wantMax[a.Name] {
			t.Errorf("%s: expected max %v", a.Name, wantMax[a.Name])
		}
	}
	if len(api.SyncPipelines) != 1 || len(api.SyncPipelines[0].Stages) != 2 || api.SyncPipelines[0].Stages[1].Order != "None" {
		t.Errorf("Unexpected sync pipelines")
	}

	enabled := map[string]bool{}
	for _, s := range append(slices.Clone(api.SpirvExtensions), api.SpirvCapabilities...) {
		enabled[s.Name] = s.Enabled(api)
	}
	want := map[string]bool{"SPV_KHR_variable_pointers": true, "SPV_NV_never": false, "Shader": true, "SampleRateShading": true}
	if fmt.Sprint(enabled) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, enabled)
	}

	var h264 *VideoCodec
	for _, c := range api.VideoCodecs {
		if c.Name == "H.264 Decode" {
			h264 = c
		}
	}
	if h264 == nil {
		t.Fatal("Missing H.264 Decode")
	}
	if !slices.Equal(h264.Capabilities, []string{"VkVideoDecodeCapabilitiesKHR", "VkVideoDecodeH264CapabilitiesKHR"}) {
		t.Errorf("Unexpected capabilities %v", h264.Capabilities)
	}
	if len(h264.Formats) != 1 || h264.Formats[0].Usage != "VK_IMAGE_USAGE_VIDEO_DECODE_DST_BIT_KHR" || len(h264.Formats[0].RequiredCaps) != 1 {
		t.Errorf("Expected the output format to merge with its base")
	}
	if len(h264.Profiles) != 1 || h264.Profiles[0].Members[0].Values[0].Name != "progressive" {
		t.Errorf("Unexpected profiles")
	}
	if base := api.VideoCodecs[0]; len(base.Formats[0].RequiredCaps) != 0 {
		t.Errorf("Expected the base codec to be left alone")
	}
}

func TestVariant(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{API: "vulkansc"})

	if got := api.Versions.Keys(); !slices.Equal(got, []string{"VK_VERSION_1_0", "VKSC_VERSION_1_0"}) {
		t.Errorf("Unexpected versions %v", got)
	}
	if got := api.Extensions.Keys(); !slices.Equal(got, []string{"VK_KHR_surface"}) {
		t.Errorf("Unexpected extensions %v", got)
	}
	if !api.Structs.Has("VkSCOnlyInfo") {
		t.Errorf("Expected VkSCOnlyInfo")
	}
	if !api.Constants.Has("VK_LOD_CLAMP_NONE") {
		t.Errorf("Expected the 1.1 removal not to apply")
	}
}

func TestTags(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{DisabledTags: []string{"IMG", "EXT"}})
	for _, name := range []string{"VK_IMG_filter_cubic", "VK_EXT_filter_cubic", "VK_EXT_sample"} {
		if api.Extensions.Has(name) {
			t.Errorf("Expected %q to be filtered", name)
		}
	}
	if e, _ := api.Enums.Get("VkFilter"); e.Field("VK_FILTER_CUBIC_IMG") != nil {
		t.Errorf("Expected filtered enum values to be absent")
	}
	if !api.Structs.Has("VkSampleShaderInfoEXT") || !api.Commands.Has("vkFoo") {
		t.Errorf("Expected alias targets to be pulled in by VK_KHR_sample")
	}

	_, err := Load("testdata/vk.xml", LoadOptions{EnabledTags: []string{"KHR", "EXT"}})
	if !fail.Is(err, fail.KindSemantic) {
		t.Errorf("Expected an unresolved alias error, got %v", err)
	}
}

const testRegistry = `<registry>
<types>
	<type requires="vk_platform" name="uint32_t"/>
	<type name="VkFilter" category="enum"/>
	%s
</types>
<enums name="VkFilter" type="enum"><enum value="0" name="VK_FILTER_NEAREST"/></enums>
<commands>%s</commands>
<feature api="vulkan" name="VK_VERSION_1_0" number="1.0"><require><type name="VkFilter"/>%s</require></feature>
<extensions>%s</extensions>
</registry>`

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		kind fail.Kind
	}{
		{"malformed", "<registry><types></registry>", fail.KindInput},
		{"no registry", "<foo/>", fail.KindInput},
		{
			"conflicting enum",
			fmt.Sprintf(testRegistry, "", "", "", `
				<extension name="VK_EXT_a" number="1" type="device" supported="vulkan"><require><enum offset="0" extends="VkFilter" name="VK_FILTER_X"/></require></extension>
				<extension name="VK_EXT_b" number="2" type="device" supported="vulkan"><require><enum offset="0" extends="VkFilter" name="VK_FILTER_X"/></require></extension>`),
			fail.KindSemantic,
		},
		{
			"alias cycle",
			fmt.Sprintf(testRegistry, `<type category="struct" name="VkA" alias="VkB"/><type category="struct" name="VkB" alias="VkA"/>`, "", `<type name="VkA"/>`, ""),
			fail.KindSemantic,
		},
		{
			"missing proto name",
			fmt.Sprintf(testRegistry, "", `<command><proto><type>void</type></proto></command>`, "", ""),
			fail.KindSemantic,
		},
		{
			"struct contains itself",
			fmt.Sprintf(testRegistry, `<type category="struct" name="VkLoop"><member><type>VkLoop</type> <name>self</name></member></type>`, "", `<type name="VkLoop"/>`, ""),
			fail.KindSemantic,
		},
		{
			"unknown extension type",
			fmt.Sprintf(testRegistry, "", "", "", `<extension name="VK_EXT_a" number="1" type="queue" supported="vulkan"/>`),
			fail.KindSemantic,
		},
		{
			"no feature",
			`<registry><types><type requires="vk_platform" name="uint32_t"/></types></registry>`,
			fail.KindInput,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := LoadReader(strings.NewReader(test.xml), test.name, LoadOptions{})
			if err == nil {
				t.Fatal("Expected an error")
			}
			if got := fail.KindOf(err); got != test.kind {
				t.Errorf("Expected %v, got %v: %v", test.kind, got, err)
			}
		})
	}

	if _, err := Load("testdata/missing.xml", LoadOptions{}); !fail.Is(err, fail.KindInput) {
		t.Errorf("Expected an input error for a missing file, got %v", err)
	}
}

func TestRemoveDepends(t *testing.T) {
	xml := fmt.Sprintf(testRegistry, "", "", "", `
		<extension name="VK_EXT_a" number="1" type="device" supported="vulkan">
			<require>
				<enum offset="0" extends="VkFilter" name="VK_FILTER_X"/>
				<enum offset="1" extends="VkFilter" name="VK_FILTER_Y"/>
				<enum offset="2" extends="VkFilter" name="VK_FILTER_Z"/>
			</require>
			<remove depends="VK_EXT_missing"><enum name="VK_FILTER_X"/></remove>
			<remove depends="VK_VERSION_1_0"><enum name="VK_FILTER_Y"/><enum name="VK_FILTER_Z" api="vulkansc"/></remove>
		</extension>`)
	api, err := LoadReader(strings.NewReader(xml), "remove", LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	e, _ := api.Enums.Get("VkFilter")
	if e.Field("VK_FILTER_X") == nil {
		t.Errorf("Expected VK_FILTER_X to survive a remove block with unmet dependencies")
	}
	if e.Field("VK_FILTER_Y") != nil {
		t.Errorf("Expected VK_FILTER_Y to be removed")
	}
	if e.Field("VK_FILTER_Z") == nil {
		t.Errorf("Expected VK_FILTER_Z to survive a remove for another api")
	}
}

const highBitRegistry = `<registry>
<types>
	<type requires="vk_platform" name="uint64_t"/>
	<type category="basetype">typedef <type>uint64_t</type> <name>VkFlags64</name>;</type>
	<type name="VkTopFlagBits" category="enum"/>
	<type bitvalues="VkTopFlagBits" category="bitmask">typedef <type>VkFlags64</type> <name>VkTopFlags</name>;</type>
</types>
<enums name="VkTopFlagBits" type="bitmask" bitwidth="%s">
	<enum bitpos="0" name="VK_TOP_LOW_BIT"/>
	<enum bitpos="63" name="VK_TOP_HIGH_BIT"/>
</enums>
<feature api="vulkan" name="VK_VERSION_1_0" number="1.0"><require><type name="VkTopFlags"/></require></feature>
</registry>`

func TestBitmaskHighBit(t *testing.T) {
	api, err := LoadReader(strings.NewReader(fmt.Sprintf(highBitRegistry, "64")), "high", LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	b, ok := api.Bitmasks.Get("VkTopFlagBits")
	if !ok {
		t.Fatal("Missing VkTopFlagBits")
	}
	f := b.Flag("VK_TOP_HIGH_BIT")
	if f == nil || f.Value != 1<<63 || f.MultiBit || f.Zero {
		t.Fatalf("Expected bit 63, got %+v", f)
	}
	if f.ValueStr != "0x8000000000000000" {
		t.Errorf("Expected 0x8000000000000000, got %q", f.ValueStr)
	}

	_, err = LoadReader(strings.NewReader(fmt.Sprintf(highBitRegistry, "32")), "narrow", LoadOptions{})
	if !fail.Is(err, fail.KindSemantic) {
		t.Errorf("Expected bit 63 to be rejected in a 32-bit bitmask, got %v", err)
	}
}

func TestDuplicateEnum(t *testing.T) {
	xml := fmt.Sprintf(testRegistry, "", "", "", `
		<extension name="VK_EXT_a" number="1" type="device" supported="vulkan"><require><enum offset="0" extends="VkFilter" name="VK_FILTER_X"/></require></extension>
		<extension name="VK_EXT_b" number="2" type="device" supported="vulkan"><require><enum extnumber="1" offset="0" extends="VkFilter" name="VK_FILTER_X"/></require></extension>`)
	api, err := LoadReader(strings.NewReader(xml), "duplicate", LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	e, _ := api.Enums.Get("VkFilter")
	if len(e.Fields) != 2 {
		t.Fatalf("Expected the duplicate to be merged, got %d fields", len(e.Fields))
	}
	f := e.Field("VK_FILTER_X")
	if f.Value != 1000000000 || len(f.Extensions) != 2 {
		t.Errorf("Unexpected merged field %+v", f)
	}
}

func TestVideoStd(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{})
	if err := api.LoadMergedVideoStd("testdata/video.xml"); err != nil {
		t.Fatal(err)
	}
	std := api.VideoStd

	if got := names(std.Headers, func(h *VideoStdHeader) string { return h.HeaderFile }); !slices.Equal(got, []string{
		"vk_video/vulkan_video_codecs_common.h",
		"vk_video/vulkan_video_codec_h264std.h",
		"vk_video/vulkan_video_codec_h264std_decode.h",
	}) {
		t.Errorf("Unexpected headers %v", got)
	}
	if h := std.Headers[1]; !slices.Equal(h.Depends, []string{"vk_video/vulkan_video_codecs_common.h"}) {
		t.Errorf("Unexpected depends %v", h.Depends)
	}
	if h := std.Headers[2]; h.VersionName != "VK_STD_VULKAN_VIDEO_CODEC_H264_DECODE_SPEC_VERSION" || h.Version != "VK_MAKE_VIDEO_STD_VERSION(1, 0, 0)" {
		t.Errorf("Unexpected version %q %q", h.VersionName, h.Version)
	}
	order := std.Structs.Keys()
	if slices.Index(order, "StdVideoH264SpsFlags") > slices.Index(order, "StdVideoH264SequenceParameterSet") {
		t.Errorf("Expected flags before the SPS, got %v", order)
	}
	sps, _ := std.Structs.Get("StdVideoH264SequenceParameterSet")
	if m := sps.Member("chroma_format_idc"); m.Enum == nil {
		t.Errorf("Expected the chroma format member to resolve to its enum")
	}
	if c, _ := std.Constants.Get("STD_VIDEO_H264_MAX_NUM_LIST_REF"); c == nil || c.Value != "32" {
		t.Errorf("Missing STD_VIDEO_H264_MAX_NUM_LIST_REF")
	}
	if e, _ := std.Enums.Get("StdVideoH264ChromaFormatIdc"); e == nil || e.Field("STD_VIDEO_H264_CHROMA_FORMAT_IDC_INVALID").Value != 0x7FFFFFFF {
		t.Errorf("Unexpected chroma format enum")
	}
	if f, _ := std.Structs.Get("StdVideoH264SpsFlags"); f.Members[0].BitFieldWidth != 1 {
		t.Errorf("Expected bit-field flags")
	}
}

func TestExtensionsOf(t *testing.T) {
	api := loadTestAPI(t, LoadOptions{})
	tests := map[string][]string{
		"vkFoo":                 {"VK_EXT_sample"},
		"vkFooKHR":              {"VK_EXT_sample"},
		"VkSampleShaderInfoKHR": {"VK_EXT_sample"},
		"VkSurfaceKHR":          {"VK_KHR_surface"},
		"VkDevice":              {},
		"VkNothing":             {},
	}
	for name, want := range tests {
		got := names(api.ExtensionsOf(name), func(e *Extension) string { return e.Name })
		if !slices.Equal(got, want) {
			t.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}
}
