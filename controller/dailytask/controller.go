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

// Package dailytask reconciles the status of DailyTask custom
// resources. A single loop lists the resources, reconciles each of
// them & then watches for changes till the stream ends. Changes are
// reconciled by the workers of a Dispatcher.
package dailytask

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"

	v1 "openebs.io/dailytask/apis/dailytask/v1"
)

const (
	// DefaultNamespace is watched when no namespace is configured
	DefaultNamespace = "default"

	defaultWatchTimeout = 30 * time.Minute
	defaultRetryDelay   = 5 * time.Second
)

// Controller drives the List & Watch loop of DailyTask resources
// in one namespace
type Controller struct {
	Namespace  string
	Client     Client
	Dispatcher *Dispatcher

	// Maximum lifetime of a single watch session
	WatchTimeout time.Duration

	// Wait time after a list or watch failure
	RetryDelay time.Duration
}

// ControllerOption is a typed function that helps in building up
// the Controller instance
type ControllerOption func(*Controller)

// WithWatchTimeout sets the maximum lifetime of a watch session
func WithWatchTimeout(timeout time.Duration) ControllerOption {
	return func(c *Controller) {
		c.WatchTimeout = timeout
	}
}

// WithRetryDelay sets the wait time after list or watch failures
func WithRetryDelay(delay time.Duration) ControllerOption {
	return func(c *Controller) {
		c.RetryDelay = delay
	}
}

// NewController returns a new instance of Controller
func NewController(
	namespace string, client Client, dispatcher *Dispatcher, opts ...ControllerOption,
) *Controller {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	c := &Controller{
		Namespace:    namespace,
		Client:       client,
		Dispatcher:   dispatcher,
		WatchTimeout: defaultWatchTimeout,
		RetryDelay:   defaultRetryDelay,
	}
	for _, o := range opts {
		o(c)
	}
	if c.WatchTimeout <= 0 {
		c.WatchTimeout = defaultWatchTimeout
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.Dispatcher.Namespace == "" {
		c.Dispatcher.Namespace = namespace
	}
	return c
}

// String implements Stringer interface
func (c *Controller) String() string {
	return fmt.Sprintf("%sController %q", v1.Kind, c.Namespace)
}

// Run reconciles DailyTasks till the given context is done. It
// always returns nil since cancellation is the only way out.
//
// Every cycle starts with a resync followed by a watch from the
// resulting token. A failed resync or watch is retried after
// RetryDelay while a watch that ended normally is followed by a
// resync right away.
func (c *Controller) Run(ctx context.Context) error {
	defer utilruntime.HandleCrash()

	glog.Infof("Starting %s", c)
	defer glog.Infof("Stopped %s", c)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Dispatcher.Run(ctx)
	}()
	// in flight writes are waited for before returning
	defer wg.Wait()

	// token is written here & by the watch stage only
	var token string
	for {
		if ctx.Err() != nil {
			return nil
		}
		err := c.cycle(ctx, &token)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			continue
		}
		glog.Errorf("%s: Will retry in %s: %v", c, c.RetryDelay, err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.RetryDelay):
		}
	}
}

// cycle runs one resync followed by one watch
func (c *Controller) cycle(ctx context.Context, token *string) error {
	newToken, err := c.resync(ctx, *token)
	if err != nil {
		return err
	}
	*token = newToken
	if ctx.Err() != nil {
		return nil
	}
	return c.watch(ctx, token)
}
