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

package emit

import (
	"strings"

	"goarrg.com/rhi/vkgen/registry"
)

type dispatchEntry struct {
	name    string
	command *registry.Command
	protect string
}

// dispatchEntries lists every command and command alias of the model,
// canonical commands first, split by dispatch level.
func (g *generator) dispatchEntries() ([]dispatchEntry, []dispatchEntry) {
	var instance, device []dispatchEntry
	add := func(name string, c *registry.Command, protect string) {
		e := dispatchEntry{name: name, command: c, protect: protect}
		if c.Instance {
			instance = append(instance, e)
		} else {
			device = append(device, e)
		}
	}
	for _, c := range g.api.Commands.Values() {
		add(c.Name, c, c.Protect())
	}
	for _, a := range g.api.Aliases.Values() {
		if a.Kind != registry.KindCommand {
			continue
		}
		if c, ok := g.api.Commands.Get(a.Target); ok {
			add(a.Name, c, a.Protect())
		}
	}
	return instance, device
}

func (g *generator) genDispatchTable() error {
	instance, device := g.dispatchEntries()

	g.printf("%s\n", Preamble)
	g.printf("// Generated by vkgen from %s\n\n", g.source())
	g.printf("#pragma once\n\n")
	g.printf("#include <vulkan/vulkan.h>\n\n")
	g.printf("#include <string.h>\n\n")
	g.printf("typedef PFN_vkVoidFunction (VKAPI_PTR *PFN_GetPhysicalDeviceProcAddr)(VkInstance instance, const char* pName);\n")

	table := func(kind string, entries []dispatchEntry, extra string) {
		g.printf("\n// %s function pointer dispatch table\n", kind)
		g.printf("typedef struct Vku%sDispatchTable_ {\n", kind)
		if extra != "" {
			g.printf("    %s\n", extra)
		}
		for _, e := range entries {
			guarded := g.ifdef(e.protect)
			g.printf("    PFN_%s %s;\n", e.name, strings.TrimPrefix(e.name, "vk"))
			g.endif(guarded)
		}
		g.printf("} Vku%sDispatchTable;\n", kind)
	}
	table("Instance", instance, "PFN_GetPhysicalDeviceProcAddr GetPhysicalDeviceProcAddr;")
	table("Device", device, "")

	load := func(entries []dispatchEntry, handle, proc, skip string) {
		for _, e := range entries {
			if e.name == skip {
				continue
			}
			guarded := g.ifdef(e.protect)
			g.printf("    table->%s = (PFN_%s)%s(%s, \"%s\");\n", strings.TrimPrefix(e.name, "vk"), e.name, proc, handle, e.name)
			g.endif(guarded)
		}
	}

	g.printf("\n// Init the device dispatch table, the loader must already be initialized for device\n")
	g.printf("static inline void vkuInitDeviceDispatchTable(VkDevice device, VkuDeviceDispatchTable *table, PFN_vkGetDeviceProcAddr gdpa) {\n")
	g.printf("    memset(table, 0, sizeof(*table));\n")
	g.printf("    table->GetDeviceProcAddr = gdpa;\n")
	load(device, "device", "gdpa", "vkGetDeviceProcAddr")
	g.printf("}\n")

	g.printf("\n// Init the instance dispatch table, gipa must be able to resolve global commands\n")
	g.printf("static inline void vkuInitInstanceDispatchTable(VkInstance instance, VkuInstanceDispatchTable *table, PFN_vkGetInstanceProcAddr gipa) {\n")
	g.printf("    memset(table, 0, sizeof(*table));\n")
	g.printf("    table->GetInstanceProcAddr = gipa;\n")
	g.printf("    table->GetPhysicalDeviceProcAddr = (PFN_GetPhysicalDeviceProcAddr)gipa(instance, \"vk_layerGetPhysicalDeviceProcAddr\");\n")
	load(instance, "instance", "gipa", "vkGetInstanceProcAddr")
	g.printf("}\n")
	return nil
}
