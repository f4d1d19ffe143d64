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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/json"

	"openebs.io/dailytask/hooks"
	k8s "openebs.io/dailytask/third_party/kubernetes"
)

const (
	// APIVersion of the controller config document
	APIVersion = "dailytask.openebs.io/v1alpha1"

	// Kind of the controller config document
	Kind = "ControllerConfig"
)

// Defaults of the controller config
const (
	DefaultNamespace    = "default"
	DefaultWorkers      = 5
	DefaultWatchTimeout = 30 * time.Minute
	DefaultRetryDelay   = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// StatusHook selects the function that computes the status. At
// most one of its fields may be set.
type StatusHook struct {
	// Inline is the name of a registered inline hook
	Inline string `json:"inline,omitempty"`

	// Jsonnet is a jsonnet snippet that evaluates to the day info
	Jsonnet string `json:"jsonnet,omitempty"`
}

// ControllerConfig tunes the DailyTask controller
type ControllerConfig struct {
	metav1.TypeMeta `json:",inline"`

	// Namespace to be watched
	Namespace string `json:"namespace,omitempty"`

	// Workers that write status in parallel
	Workers int `json:"workers,omitempty"`

	// Maximum lifetime of one watch session
	WatchTimeout *metav1.Duration `json:"watchTimeout,omitempty"`

	// Wait time after a list or watch failure
	RetryDelay *metav1.Duration `json:"retryDelay,omitempty"`

	// Time allowed for an in flight write during shutdown
	WriteTimeout *metav1.Duration `json:"writeTimeout,omitempty"`

	StatusHook *StatusHook `json:"statusHook,omitempty"`
}

// Default returns a controller config with all defaults set
func Default() *ControllerConfig {
	c := &ControllerConfig{}
	c.SetDefaults()
	return c
}

// SetDefaults fills the fields that are not set
func (c *ControllerConfig) SetDefaults() {
	c.APIVersion = APIVersion
	c.Kind = Kind
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.WatchTimeout == nil {
		c.WatchTimeout = &metav1.Duration{Duration: DefaultWatchTimeout}
	}
	if c.RetryDelay == nil {
		c.RetryDelay = &metav1.Duration{Duration: DefaultRetryDelay}
	}
	if c.WriteTimeout == nil {
		c.WriteTimeout = &metav1.Duration{Duration: DefaultWriteTimeout}
	}
	if c.StatusHook == nil ||
		(c.StatusHook.Inline == "" && c.StatusHook.Jsonnet == "") {
		c.StatusHook = &StatusHook{Inline: hooks.DefaultInlineHook}
	}
}

// Validate verifies a defaulted config
func (c *ControllerConfig) Validate() error {
	if c.Workers < 1 {
		return errors.Errorf("Invalid config: Workers must be positive: Got %d", c.Workers)
	}
	durations := map[string]*metav1.Duration{
		"watchTimeout": c.WatchTimeout,
		"retryDelay":   c.RetryDelay,
		"writeTimeout": c.WriteTimeout,
	}
	for name, d := range durations {
		if d == nil || d.Duration <= 0 {
			return errors.Errorf("Invalid config: %s must be positive: Got %v", name, d)
		}
	}
	if c.StatusHook != nil && c.StatusHook.Inline != "" && c.StatusHook.Jsonnet != "" {
		return errors.Errorf("Invalid config: StatusHook can have either inline or jsonnet")
	}
	return nil
}

// StatusFunc returns the status function selected by this config
func (c *ControllerConfig) StatusFunc() (hooks.StatusFunc, error) {
	if c.StatusHook == nil || c.StatusHook.Jsonnet == "" {
		name := hooks.DefaultInlineHook
		if c.StatusHook != nil && c.StatusHook.Inline != "" {
			name = c.StatusHook.Inline
		}
		return hooks.Inline(name)
	}
	j, err := hooks.NewJsonnetStatus(
		c.StatusHook.Jsonnet, hooks.WithJsonnetFallback(hooks.DefaultStatus),
	)
	if err != nil {
		return nil, err
	}
	return j.Compute, nil
}

// Config is the path to the controller config. The path is either
// a file or a directory of yaml or json files.
type Config struct {
	Path string
}

// New returns a new instance of config
func New(path string) *Config {
	return &Config{path}
}

// Load loads the one ControllerConfig document found at the path.
// Documents of other kinds are skipped. The returned config is
// defaulted & validated.
func (c *Config) Load() (*ControllerConfig, error) {
	glog.V(4).Infof("Will load controller config from path %s", c.Path)

	files, err := c.files()
	if err != nil {
		return nil, err
	}

	var found []unstructured.Unstructured
	for _, file := range files {
		glog.V(4).Infof("Will load controller config %s", file)

		contents, readFileErr := os.ReadFile(file)
		if readFileErr != nil {
			return nil, errors.Wrapf(
				readFileErr, "Failed to read controller config %s", file,
			)
		}
		ul, loadErr := k8s.YAMLToUnstructuredSlice(contents)
		if loadErr != nil {
			return nil, errors.Wrapf(loadErr, "Failed to load controller config %s", file)
		}
		for _, u := range ul {
			if u.GetKind() != Kind {
				glog.V(4).Infof(
					"Will skip %s in %s: Not a %s", u.GetKind(), file, Kind,
				)
				continue
			}
			found = append(found, u)
		}
	}

	if len(found) == 0 {
		return nil, errors.Errorf("No %s found at %s", Kind, c.Path)
	}
	if len(found) > 1 {
		return nil, errors.Errorf(
			"Found %d %s documents at %s: Want 1", len(found), Kind, c.Path,
		)
	}

	raw, err := found[0].MarshalJSON()
	if err != nil {
		return nil, err
	}
	config := &ControllerConfig{}
	if err := json.Unmarshal(raw, config); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode %s at %s", Kind, c.Path)
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", c.Path)
	}

	glog.V(4).Infof("Controller config loaded successfully from path %s", c.Path)
	return config, nil
}

// files returns the yaml & json files at the path
func (c *Config) files() ([]string, error) {
	info, err := os.Stat(c.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load controller config")
	}
	if !info.IsDir() {
		return []string{c.Path}, nil
	}

	entries, err := os.ReadDir(c.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load controller config")
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			glog.V(4).Infof(
				"Will skip controller config %s at path %s: Not a file", name, c.Path,
			)
			continue
		}
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".json") {
			glog.V(4).Infof(
				"Will skip controller config %s at path %s: Not yaml or json", name, c.Path,
			)
			// we support either proper yaml or json file only
			continue
		}
		files = append(files, filepath.Join(c.Path, name))
	}
	return files, nil
}
