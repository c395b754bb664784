/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package source

import (
	"context"
	"log/slog"
	"sync"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"

	"github.com/spacebird-dev/externalip-manager/pkg/apis/v1alpha1"
	"github.com/spacebird-dev/externalip-manager/pkg/errors"
	"github.com/spacebird-dev/externalip-manager/pkg/k8s/events"
)

// Registry caches compiled ClusterExternalIPSources between refreshes.
// Invalid sources are reported via warning Events on the custom resource
// and left out of the cache; they never abort a refresh.
type Registry struct {
	client dynamic.Interface
	events *events.Recorder

	mu      sync.RWMutex
	sources map[string]*Source
	invalid map[string]*InvalidSource
}

// InvalidSource records a ClusterExternalIPSource that exists in the
// cluster but failed to compile, along with the compile error.
type InvalidSource struct {
	Object *unstructured.Unstructured
	Err    error
}

// NewRegistry creates an empty source registry reading CRs through the
// given dynamic client.
func NewRegistry(client dynamic.Interface, rec *events.Recorder) *Registry {
	return &Registry{
		client:  client,
		events:  rec,
		sources: make(map[string]*Source),
		invalid: make(map[string]*InvalidSource),
	}
}

// Refresh lists all ClusterExternalIPSources and recompiles the cache.
func (r *Registry) Refresh(ctx context.Context) error {
	list, err := r.client.Resource(v1alpha1.GroupVersionResource).List(ctx, metav1.ListOptions{})
	if err != nil {
		return errors.Wrap(errors.ErrCodeKube, "unable to list ClusterExternalIPSources", err)
	}

	compiled := make(map[string]*Source, len(list.Items))
	broken := make(map[string]*InvalidSource)
	for i := range list.Items {
		obj := &list.Items[i]
		src, err := v1alpha1.FromUnstructured(obj)
		if err == nil {
			var compileErr error
			var s *Source
			if s, compileErr = Compile(src); compileErr == nil {
				compiled[s.Name()] = s
				continue
			}
			err = compileErr
		}

		slog.WarnContext(ctx, "failed to compile ClusterExternalIPSource",
			"name", obj.GetName(),
			"error", err)
		broken[obj.GetName()] = &InvalidSource{Object: obj, Err: err}
		r.events.Warning(ctx, obj,
			events.ReasonInvalidIPSource,
			events.ActionParsingSource,
			"Invalid ClusterExternalIPSource: "+err.Error())
	}

	r.mu.Lock()
	r.sources = compiled
	r.invalid = broken
	r.mu.Unlock()
	return nil
}

// Get returns the compiled source with the given name, if present.
func (r *Registry) Get(name string) (*Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	return s, ok
}

// Invalid returns the compile failure for the named source, if the
// source exists in the cluster but could not be compiled.
func (r *Registry) Invalid(name string) (*InvalidSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invalid[name]
	return inv, ok
}

// Len returns the number of compiled sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}
