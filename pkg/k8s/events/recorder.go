/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package events

import (
	"context"
	"log/slog"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/events"
)

// Event reasons and actions emitted by the manager. These form part of the
// operator's observable API; kubectl users filter on them.
const (
	ReasonInvalidIPSource    = "InvalidIPSource"
	ReasonFailingSource      = "failingExternalIPSource"
	ReasonFailingValidation  = "failingSourceValidation"
	ReasonFailingQuery       = "failingExternalIPQuery"
	ReasonInvalidExternalIPs = "invalidExternalIPAddresses"
	ReasonExternalIPsUpdated = "externalIPsUpdated"

	ActionResolvingExternalIP = "resolvingExternalIP"
	ActionValidatingSource    = "clusterExternalIPSourceValidation"
	ActionParsingSource       = "ParsingClusterExternalIPSource"
)

// Recorder publishes Kubernetes Events for objects the manager acts on.
// Publication failures are logged, never propagated: a broken event sink
// must not break reconciliation.
type Recorder struct {
	rec events.EventRecorder
}

// NewRecorder creates a Recorder publishing through the cluster's
// events.k8s.io API. The returned shutdown func flushes and stops the
// broadcaster.
func NewRecorder(client kubernetes.Interface, controller string) (*Recorder, func()) {
	broadcaster := events.NewBroadcaster(&events.EventSinkImpl{
		Interface: client.EventsV1(),
	})
	stopCh := make(chan struct{})
	broadcaster.StartRecordingToSink(stopCh)
	rec := broadcaster.NewRecorder(scheme.Scheme, controller)
	return &Recorder{rec: rec}, func() {
		close(stopCh)
		broadcaster.Shutdown()
	}
}

// NewRecorderWithSink wraps an existing EventRecorder; used by tests with
// events.NewFakeRecorder.
func NewRecorderWithSink(rec events.EventRecorder) *Recorder {
	return &Recorder{rec: rec}
}

// Warning publishes a warning Event on the given object.
func (r *Recorder) Warning(ctx context.Context, regarding runtime.Object, reason, action, note string) {
	r.publish(ctx, regarding, corev1.EventTypeWarning, reason, action, note)
}

// Normal publishes a normal Event on the given object.
func (r *Recorder) Normal(ctx context.Context, regarding runtime.Object, reason, action, note string) {
	r.publish(ctx, regarding, corev1.EventTypeNormal, reason, action, note)
}

func (r *Recorder) publish(ctx context.Context, regarding runtime.Object, eventType, reason, action, note string) {
	if r == nil || r.rec == nil {
		return
	}
	defer func() {
		// The recorder panics on objects it cannot build a reference for.
		if p := recover(); p != nil {
			slog.WarnContext(ctx, "failed to publish event",
				"reason", reason,
				"action", action,
				"panic", p)
		}
	}()
	r.rec.Eventf(regarding, nil, eventType, reason, action, "%s", note)
}
