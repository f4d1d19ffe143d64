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

package start

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"github.com/golang/glog"
	"go.opencensus.io/stats/view"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"

	"openebs.io/dailytask/config"
	"openebs.io/dailytask/metrics"
	"openebs.io/dailytask/server"
)

var (
	debugAddr = flag.String(
		"debug-addr",
		":9999",
		"The address to bind the debug http endpoints",
	)
	kubeAPIServerURL = flag.String(
		"kube-apiserver-url",
		"",
		`Kubernetes api server url (same format as used by kubectl).
		If not specified, uses in-cluster config`,
	)
	clientConfigPath = flag.String(
		"client-config-path",
		"",
		`Path to kubeconfig file (same format as used by kubectl).
		If not specified, uses in-cluster config`,
	)
	clientGoQPS = flag.Float64(
		"client-go-qps",
		5,
		"Number of queries per second client-go is allowed to make (default 5)",
	)
	clientGoBurst = flag.Int(
		"client-go-burst",
		10,
		"Allowed burst queries for client-go (default 10)",
	)
	controllerConfigPath = flag.String(
		"controller-config-path",
		"",
		`Path to a controller config file or a directory of config files.
		If not specified, uses defaults`,
	)
	namespace = flag.String(
		"namespace",
		config.DefaultNamespace,
		"Namespace whose DailyTasks are reconciled. Overrides the controller config",
	)
	workerCount = flag.Int(
		"workers-count",
		config.DefaultWorkers,
		"How many workers write status in parallel. Overrides the controller config",
	)
	installCRD = flag.Bool(
		"install-crd",
		false,
		"When true the DailyTask CRD is installed before starting the controller",
	)
)

// Start starts this binary & blocks till it receives SIGINT or
// SIGTERM
func Start() {
	flag.Parse()
	bridgeKlogFlags()

	glog.Infof("Debug http server address: %v", *debugAddr)

	cfg, err := controllerConfig()
	if err != nil {
		glog.Fatal(err)
	}
	glog.Infof(
		"Controller config: Namespace %q: Workers %d: Watch timeout %s",
		cfg.Namespace, cfg.Workers, cfg.WatchTimeout.Duration,
	)

	var kubeConfig *rest.Config
	if *clientConfigPath != "" {
		glog.Infof("Using kubeconfig %s", *clientConfigPath)
		kubeConfig, err = clientcmd.BuildConfigFromFlags("", *clientConfigPath)
	} else if *kubeAPIServerURL != "" {
		glog.Infof("Using kubernetes api server url %s", *kubeAPIServerURL)
		kubeConfig, err = clientcmd.BuildConfigFromFlags(*kubeAPIServerURL, "")
	} else {
		glog.Info("Using in-cluster kubeconfig")
		kubeConfig, err = rest.InClusterConfig()
	}
	if err != nil {
		glog.Fatal(err)
	}
	kubeConfig.QPS = float32(*clientGoQPS)
	kubeConfig.Burst = *clientGoBurst

	if err := metrics.Register(); err != nil {
		glog.Fatalf("Can't register metric views: %v", err)
	}
	exporter, err := prometheus.NewExporter(prometheus.Options{})
	if err != nil {
		glog.Fatalf("Can't create prometheus exporter: %v", err)
	}
	view.RegisterExporter(exporter)

	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter)
	httpServer := &http.Server{
		Addr:    *debugAddr,
		Handler: mux,
	}
	go func() {
		glog.Errorf(
			"Error serving metrics endpoint: %v",
			httpServer.ListenAndServe(),
		)
	}()

	// On SIGINT or SIGTERM, stop the controller gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &server.Server{
		Config:           kubeConfig,
		ControllerConfig: cfg,
		InstallCRD:       *installCRD,
		StartupTimeout:   time.Minute,
	}
	if err := srv.Start(ctx); err != nil {
		glog.Fatal(err)
	}
	glog.Infof("Shutting down %s", srv)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
	glog.Flush()
}

// controllerConfig loads the controller config & applies the flags
// that were set explicitly
func controllerConfig() (*config.ControllerConfig, error) {
	cfg := config.Default()
	if *controllerConfigPath != "" {
		loaded, err := config.New(*controllerConfigPath).Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "namespace":
			cfg.Namespace = *namespace
		case "workers-count":
			cfg.Workers = *workerCount
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bridgeKlogFlags applies the glog flags to klog which is used by
// client-go
func bridgeKlogFlags() {
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)

	flag.CommandLine.VisitAll(func(f1 *flag.Flag) {
		f2 := klogFlags.Lookup(f1.Name)
		if f2 != nil {
			value := f1.Value.String()
			f2.Value.Set(value)
		}
	})
}
