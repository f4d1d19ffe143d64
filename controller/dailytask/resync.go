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

	"github.com/golang/glog"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	v1 "openebs.io/dailytask/apis/dailytask/v1"
	"openebs.io/dailytask/dynamic/codec"
	"openebs.io/dailytask/metrics"
)

// resync lists all the DailyTasks of the namespace & reconciles
// each of them before returning. It returns the resource version
// of the list which is the version token to watch from.
func (c *Controller) resync(ctx context.Context, token string) (string, error) {
	glog.Infof("%s: Resync started: Resource version %q", c, token)

	list, err := c.list(ctx, token)
	if err != nil {
		metrics.RecordResync(metrics.ResultError)
		return token, err
	}

	newToken := list.GetResourceVersion()
	if newToken == "" {
		// keep the last known token rather than watching from now
		newToken = token
	}

	var reconciled, skipped int
	for i := range list.Items {
		if ctx.Err() != nil {
			glog.Infof("%s: Resync cancelled after %d items", c, reconciled)
			return newToken, nil
		}
		task, err := c.decodeListItem(&list.Items[i])
		if err != nil {
			skipped++
			metrics.RecordDecodeError()
			glog.Warningf("%s: Skipping: %v", c, err)
			continue
		}
		c.Dispatcher.Reconcile(ctx, task)
		reconciled++
	}

	metrics.RecordResync(metrics.ResultSuccess)
	glog.Infof(
		"%s: Resync completed: Reconciled %d: Skipped %d: Resource version %q",
		c, reconciled, skipped, newToken,
	)
	return newToken, nil
}

// list lists since the given token. An expired token falls back to
// an unparameterized list.
func (c *Controller) list(
	ctx context.Context, token string,
) (*unstructured.UnstructuredList, error) {
	list, err := c.Client.List(ctx, c.Namespace, token)
	if err != nil && token != "" &&
		(apierrors.IsResourceExpired(err) || apierrors.IsGone(err)) {
		glog.Warningf(
			"%s: Resource version %q expired: Will list from latest: %v", c, token, err,
		)
		list, err = c.Client.List(ctx, c.Namespace, "")
		token = ""
	}
	if err != nil {
		return nil, &ListError{Namespace: c.Namespace, ResourceVersion: token, Err: err}
	}
	if list == nil {
		return nil, &ListError{
			Namespace:       c.Namespace,
			ResourceVersion: token,
			Err:             errNilList,
		}
	}
	return list, nil
}

func (c *Controller) decodeListItem(u *unstructured.Unstructured) (*v1.DailyTask, error) {
	task, err := codec.FromUnstructured(u)
	if err != nil {
		envelope, _ := codec.EnvelopeOf(u)
		return nil, &DecodeError{Object: envelope.String(), Err: err}
	}
	return task, nil
}
