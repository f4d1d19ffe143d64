/*
Copyright 2019 The MayaData Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package hooks provides the status computers that decide what the
// status of a DailyTask should be. A status computer is a pure
// function without any error path. It must not perform I/O.
package hooks

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	v1 "openebs.io/dailytask/apis/dailytask/v1"
)

// StatusFunc computes the desired status of the given DailyTask as
// observed at the given time
type StatusFunc func(task *v1.DailyTask, now time.Time) v1.DailyTaskStatus

// DefaultInlineHook is the name of the status computer that is used
// when nothing else is configured
const DefaultInlineHook = "default"

type inlineHookRegistry struct {
	sync.RWMutex
	statusFuncs map[string]StatusFunc
}

var inlineHookRegistryInstance = &inlineHookRegistry{
	statusFuncs: map[string]StatusFunc{
		DefaultInlineHook: DefaultStatus,
	},
}

// AddToInlineRegistry will add function name and corresponding
// status function to inline hook registry
func AddToInlineRegistry(funcName string, fn StatusFunc) {
	inlineHookRegistryInstance.Lock()
	defer inlineHookRegistryInstance.Unlock()
	inlineHookRegistryInstance.statusFuncs[funcName] = fn
}

// Inline returns the registered status function with the given name
func Inline(funcName string) (StatusFunc, error) {
	if funcName == "" {
		return nil, errors.Errorf("Inline hook function name can't be empty")
	}
	inlineHookRegistryInstance.RLock()
	defer inlineHookRegistryInstance.RUnlock()
	fn := inlineHookRegistryInstance.statusFuncs[funcName]
	if fn == nil {
		return nil, errors.Errorf(
			"Inline hook function not found for %s: Registered %v",
			funcName,
			keys(inlineHookRegistryInstance.statusFuncs),
		)
	}
	return fn, nil
}

func keys(m map[string]StatusFunc) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
