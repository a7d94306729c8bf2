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
	"github.com/antchfx/xmlquery"
	"goarrg.com/rhi/vkgen/internal/fail"
)

const (
	syncAllCommands = "VK_PIPELINE_STAGE_2_ALL_COMMANDS_BIT"
	syncMemoryRead  = "VK_ACCESS_2_MEMORY_READ_BIT"
	syncMemoryWrite = "VK_ACCESS_2_MEMORY_WRITE_BIT"
)

func parseSyncSupport(n *xmlquery.Node) *SyncSupport {
	s := xmlquery.FindOne(n, "syncsupport")
	if s == nil {
		return nil
	}
	return &SyncSupport{
		Queues: splitList(s.SelectAttr("queues")),
		Stages: splitList(s.SelectAttr("stage")),
	}
}

func parseSyncEquivalent(n *xmlquery.Node) *SyncEquivalent {
	e := xmlquery.FindOne(n, "syncequivalent")
	if e == nil {
		return nil
	}
	return &SyncEquivalent{
		Stages:   splitList(e.SelectAttr("stage")),
		Accesses: splitList(e.SelectAttr("access")),
	}
}

func (l *loader) parseSync(root *xmlquery.Node) error {
	for _, n := range xmlquery.Find(root, "sync/syncstage") {
		if !l.admits(n) {
			continue
		}
		l.api.SyncStages = append(l.api.SyncStages, &SyncStage{
			Name:       n.SelectAttr("name"),
			Support:    parseSyncSupport(n),
			Equivalent: parseSyncEquivalent(n),
		})
	}
	for _, n := range xmlquery.Find(root, "sync/syncaccess") {
		if !l.admits(n) {
			continue
		}
		l.api.SyncAccesses = append(l.api.SyncAccesses, &SyncAccess{
			Name:       n.SelectAttr("name"),
			Support:    parseSyncSupport(n),
			Equivalent: parseSyncEquivalent(n),
		})
	}
	for _, n := range xmlquery.Find(root, "sync/syncpipeline") {
		if !l.admits(n) {
			continue
		}
		depends, err := ParseExpr(n.SelectAttr("depends"))
		if err != nil {
			return fail.Wrapf(fail.KindSemantic, err, "%q: syncpipeline %q", l.src, n.SelectAttr("name"))
		}
		p := &SyncPipeline{Name: n.SelectAttr("name"), Depends: depends}
		for _, s := range elements(n, "syncpipelinestage") {
			p.Stages = append(p.Stages, &SyncPipelineStage{
				Order:  s.SelectAttr("order"),
				Before: s.SelectAttr("before"),
				After:  s.SelectAttr("after"),
				Value:  collapseSpace(s.InnerText()),
			})
		}
		l.api.SyncPipelines = append(l.api.SyncPipelines, p)
	}
	return nil
}

func covers(list []string, all map[string]bool) bool {
	if len(all) == 0 {
		return false
	}
	have := map[string]bool{}
	for _, s := range list {
		have[s] = true
	}
	for s := range all {
		if !have[s] {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// linkSync sets the Max sentinel on support and equivalence sets that name
// everything.
func linkSync(api *API) {
	stages := map[string]bool{}
	for _, s := range api.SyncStages {
		if s.Name != syncAllCommands {
			stages[s.Name] = true
		}
	}
	accesses := map[string]bool{}
	for _, a := range api.SyncAccesses {
		if a.Name != syncMemoryRead && a.Name != syncMemoryWrite {
			accesses[a.Name] = true
		}
	}

	support := func(s *SyncSupport) {
		if s != nil {
			s.Max = contains(s.Stages, syncAllCommands) || covers(s.Stages, stages)
		}
	}
	equivalent := func(e *SyncEquivalent) {
		if e != nil {
			e.Max = covers(e.Stages, stages) || covers(e.Accesses, accesses)
		}
	}
	for _, s := range api.SyncStages {
		support(s.Support)
		equivalent(s.Equivalent)
	}
	for _, a := range api.SyncAccesses {
		support(a.Support)
		equivalent(a.Equivalent)
	}
}
