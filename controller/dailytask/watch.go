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

package dailytask

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/watch"

	"openebs.io/dailytask/dynamic/codec"
	"openebs.io/dailytask/metrics"
)

// watch streams changes since the given token & hands over every
// added or modified DailyTask to the dispatcher. The token is
// advanced before the event is dispatched.
//
// It returns nil when the stream closes, when the session lasted
// for WatchTimeout or when the context is done. A stream that can't
// be opened or that delivers an error results in WatchError.
func (c *Controller) watch(ctx context.Context, token *string) error {
	w, err := c.Client.Watch(ctx, c.Namespace, *token)
	if err != nil {
		return &WatchError{Namespace: c.Namespace, ResourceVersion: *token, Err: err}
	}
	if w == nil {
		return &WatchError{
			Namespace:       c.Namespace,
			ResourceVersion: *token,
			Err:             errNilWatch,
		}
	}
	defer w.Stop()

	glog.Infof("%s: Watch started: Resource version %q: Timeout %s", c, *token, c.WatchTimeout)
	started := time.Now()

	timer := time.NewTimer(c.WatchTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			glog.Infof("%s: Watch cancelled: Resource version %q", c, *token)
			return nil
		case <-timer.C:
			glog.Infof(
				"%s: Watch timed out after %s: Will resync: Resource version %q",
				c, time.Since(started).Round(time.Second), *token,
			)
			return nil
		case event, ok := <-w.ResultChan():
			if !ok {
				glog.Infof("%s: Watch closed: Will resync: Resource version %q", c, *token)
				return nil
			}
			if err := c.handleEvent(event, token); err != nil {
				return err
			}
		}
	}
}

// handleEvent advances the token & dispatches the event. Only an
// error event returns an error.
func (c *Controller) handleEvent(event watch.Event, token *string) error {
	metrics.RecordWatchEvent(string(event.Type))

	if event.Type == watch.Error {
		err := apierrors.FromObject(event.Object)
		return &WatchError{Namespace: c.Namespace, ResourceVersion: *token, Err: err}
	}

	envelope, err := codec.EnvelopeOf(event.Object)
	if err != nil {
		metrics.RecordDecodeError()
		glog.Warningf("%s: Skipping: %v", c, &DecodeError{
			EventType: event.Type,
			Object:    "<unknown>",
			Err:       err,
		})
		return nil
	}
	if envelope.ResourceVersion != "" && envelope.ResourceVersion != *token {
		*token = envelope.ResourceVersion
	}
	glog.Infof("%s: Received %s event for %s", c, event.Type, envelope)

	switch event.Type {
	case watch.Added, watch.Modified:
		task, err := codec.FromObject(event.Object)
		if err != nil {
			metrics.RecordDecodeError()
			glog.Warningf("%s: Skipping: %v", c, &DecodeError{
				EventType: event.Type,
				Object:    envelope.String(),
				Err:       err,
			})
			return nil
		}
		c.Dispatcher.Enqueue(task)
	case watch.Deleted, watch.Bookmark:
		// nothing to reconcile
	default:
		glog.Warningf("%s: Ignoring unsupported event type %q", c, event.Type)
	}
	return nil
}

var (
	errNilList  = errors.New("Nil list")
	errNilWatch = errors.New("Nil watch")
)
