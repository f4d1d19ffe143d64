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

// Package crd installs the DailyTask CustomResourceDefinition
package crd

import (
	"context"
	_ "embed"
	"time"

	"github.com/ghodss/yaml"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextensionsclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

//go:embed dailytask.yaml
var manifest []byte

// interval between checks for the Established condition
var pollInterval = 500 * time.Millisecond

// Definition returns the DailyTask CustomResourceDefinition
func Definition() (*apiextensionsv1.CustomResourceDefinition, error) {
	crd := &apiextensionsv1.CustomResourceDefinition{}
	err := yaml.Unmarshal(manifest, crd)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode CRD manifest")
	}
	return crd, nil
}

// IsEstablished returns true if the given CRD can be served
func IsEstablished(crd *apiextensionsv1.CustomResourceDefinition) bool {
	for _, cond := range crd.Status.Conditions {
		if cond.Type == apiextensionsv1.Established &&
			cond.Status == apiextensionsv1.ConditionTrue {
			return true
		}
	}
	return false
}

// Install creates the DailyTask CRD unless it exists & waits till
// it gets established
func Install(
	ctx context.Context, client apiextensionsclientset.Interface, timeout time.Duration,
) error {
	crd, err := Definition()
	if err != nil {
		return err
	}
	crds := client.ApiextensionsV1().CustomResourceDefinitions()

	_, err = crds.Create(ctx, crd, metav1.CreateOptions{})
	switch {
	case err == nil:
		glog.Infof("Created CRD %s", crd.Name)
	case apierrors.IsAlreadyExists(err):
		glog.Infof("CRD %s exists: Skipping create", crd.Name)
	default:
		return errors.Wrapf(err, "Failed to create CRD %s", crd.Name)
	}

	err = wait.PollUntilContextTimeout(ctx, pollInterval, timeout, true,
		func(ctx context.Context) (bool, error) {
			got, err := crds.Get(ctx, crd.Name, metav1.GetOptions{})
			if apierrors.IsNotFound(err) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			return IsEstablished(got), nil
		},
	)
	if err != nil {
		return errors.Wrapf(err, "CRD %s is not established", crd.Name)
	}
	glog.Infof("CRD %s is established", crd.Name)
	return nil
}
