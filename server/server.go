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

package server

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	apiextensionsclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	typedcorev1 "k8s.io/client-go/kubernetes/typed/core/v1"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/record"

	v1 "openebs.io/dailytask/apis/dailytask/v1"
	"openebs.io/dailytask/config"
	"openebs.io/dailytask/controller/dailytask"
	"openebs.io/dailytask/crd"
	dynamicclientset "openebs.io/dailytask/dynamic/clientset"
	dynamicdiscovery "openebs.io/dailytask/dynamic/discovery"

	_ "k8s.io/client-go/plugin/pkg/client/auth/oidc"
)

// Component is the source of the events recorded by this server
const Component = "dailytask-controller"

// Server runs the DailyTask controller
type Server struct {
	// Kubernetes config required to make API calls
	Config *rest.Config

	// Tunables of the controller
	ControllerConfig *config.ControllerConfig

	// Install the DailyTask CRD before starting the controller
	InstallCRD bool

	// How often to check if the DailyTask API is served
	DiscoveryInterval time.Duration

	// Time to wait for the DailyTask API to be served
	StartupTimeout time.Duration
}

// String implements Stringer interface
func (s *Server) String() string {
	return "DailyTaskServer"
}

// Start builds the clients & runs the controller till the given
// context is done
func (s *Server) Start(ctx context.Context) error {
	if s.Config == nil {
		return errors.Errorf("%s: Start server failed: Nil kubernetes config", s)
	}
	kubeClient, err := kubernetes.NewForConfig(s.Config)
	if err != nil {
		return errors.Wrapf(err, "%s: Start server failed: Can't create clientset", s)
	}
	dynamicClient, err := dynamic.NewForConfig(s.Config)
	if err != nil {
		return errors.Wrapf(err, "%s: Start server failed: Can't create dynamic client", s)
	}
	var crdClient apiextensionsclientset.Interface
	if s.InstallCRD {
		crdClient, err = apiextensionsclientset.NewForConfig(s.Config)
		if err != nil {
			return errors.Wrapf(err, "%s: Start server failed: Can't create CRD clientset", s)
		}
	}
	return s.run(ctx, kubeClient, crdClient, dynamicClient)
}

// run runs the controller on top of the given clients
func (s *Server) run(
	ctx context.Context,
	kubeClient kubernetes.Interface,
	crdClient apiextensionsclientset.Interface,
	dynamicClient dynamic.Interface,
) error {
	cfg := s.ControllerConfig
	if cfg == nil {
		cfg = config.Default()
	}

	statusFn, err := cfg.StatusFunc()
	if err != nil {
		return errors.Wrapf(err, "%s: Start server failed", s)
	}

	timeout := s.StartupTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	interval := s.DiscoveryInterval
	if interval <= 0 {
		interval = time.Second
	}
	if s.InstallCRD {
		if err := crd.Install(ctx, crdClient, timeout); err != nil {
			return errors.Wrapf(err, "%s: Start server failed", s)
		}
	}
	apiResource, err := dynamicdiscovery.WaitFor(
		ctx, kubeClient.Discovery(), v1.GroupVersionResource(), interval, timeout,
	)
	if err != nil {
		return errors.Wrapf(err, "%s: Start server failed", s)
	}
	if !apiResource.HasSubresource(v1.StatusSubresource) {
		glog.Warningf(
			"%s: %s has no %s subresource: Status will be written via fallback patch",
			s, v1.Resource, v1.StatusSubresource,
		)
	}

	broadcaster := record.NewBroadcaster()
	broadcaster.StartLogging(glog.Infof)
	broadcaster.StartRecordingToSink(&typedcorev1.EventSinkImpl{
		Interface: kubeClient.CoreV1().Events(cfg.Namespace),
	})
	defer broadcaster.Shutdown()
	recorder := broadcaster.NewRecorder(scheme.Scheme, corev1.EventSource{Component: Component})

	resourceClient := dynamicclientset.NewForDynamic(dynamicClient).
		Resource(v1.GroupVersionResource())
	client := dailytask.NewClient(resourceClient)

	dispatcher := dailytask.NewDispatcher(
		statusFn,
		&dailytask.StatusWriter{Client: client, Recorder: recorder},
		dailytask.WithWorkers(cfg.Workers),
		dailytask.WithWriteTimeout(cfg.WriteTimeout.Duration),
		dailytask.WithNamespace(cfg.Namespace),
	)
	controller := dailytask.NewController(
		cfg.Namespace,
		client,
		dispatcher,
		dailytask.WithWatchTimeout(cfg.WatchTimeout.Duration),
		dailytask.WithRetryDelay(cfg.RetryDelay.Duration),
	)

	glog.Infof(
		"%s: Starting %s: Workers %d: Watch timeout %s: Retry delay %s",
		s, controller, cfg.Workers, cfg.WatchTimeout.Duration, cfg.RetryDelay.Duration,
	)
	return controller.Run(ctx)
}
