/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package manager

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"
	k8sevents "k8s.io/client-go/tools/events"

	"github.com/spacebird-dev/externalip-manager/pkg/apis/v1alpha1"
	"github.com/spacebird-dev/externalip-manager/pkg/k8s/events"
)

func testService(name string, source string, externalIPs ...string) *corev1.Service {
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "default",
		},
		Spec: corev1.ServiceSpec{ExternalIPs: externalIPs},
	}
	if source != "" {
		svc.Annotations = map[string]string{AnnotationClusterSource: source}
	}
	return svc
}

func testSource(t *testing.T, name string, addrs ...string) runtime.Object {
	t.Helper()
	obj, err := v1alpha1.ToUnstructured(&v1alpha1.ClusterExternalIPSource{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec: v1alpha1.ClusterExternalIPSourceSpec{
			IPv4: &v1alpha1.SolversConfig{
				Solvers: []v1alpha1.SolverConfig{
					{Static: &v1alpha1.StaticConfig{Addresses: addrs}},
				},
			},
		},
	})
	require.NoError(t, err)
	return obj
}

func newTestManager(t *testing.T, cfg Config, svcs []runtime.Object, sources []runtime.Object) (*Manager, *fake.Clientset, *k8sevents.FakeRecorder) {
	t.Helper()
	typed := fake.NewClientset(svcs...)
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(
		runtime.NewScheme(),
		map[schema.GroupVersionResource]string{
			v1alpha1.GroupVersionResource: v1alpha1.Kind + "List",
		},
		sources...,
	)
	sink := k8sevents.NewFakeRecorder(16)
	return New(cfg, typed, dyn, events.NewRecorderWithSink(sink)), typed, sink
}

func drainEvents(sink *k8sevents.FakeRecorder) []string {
	var out []string
	for {
		select {
		case ev := <-sink.Events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventWithReason(evs []string, reason string) bool {
	for _, ev := range evs {
		if strings.Contains(ev, reason) {
			return true
		}
	}
	return false
}

func TestReconcileUpdatesAnnotatedService(t *testing.T) {
	m, typed, sink := newTestManager(t, Config{},
		[]runtime.Object{testService("web", "public")},
		[]runtime.Object{testSource(t, "public", "192.0.2.1")},
	)

	require.NoError(t, m.Reconcile(t.Context()))

	svc, err := typed.CoreV1().Services("default").Get(t.Context(), "web", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.1"}, svc.Spec.ExternalIPs)
	assert.True(t, eventWithReason(drainEvents(sink), events.ReasonExternalIPsUpdated))
}

func TestReconcileReplacesStaleAddresses(t *testing.T) {
	m, typed, _ := newTestManager(t, Config{},
		[]runtime.Object{testService("web", "public", "198.51.100.7")},
		[]runtime.Object{testSource(t, "public", "192.0.2.1")},
	)

	require.NoError(t, m.Reconcile(t.Context()))

	svc, err := typed.CoreV1().Services("default").Get(t.Context(), "web", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.1"}, svc.Spec.ExternalIPs)
}

func TestReconcileSkipsUpToDateService(t *testing.T) {
	m, typed, sink := newTestManager(t, Config{},
		[]runtime.Object{testService("web", "public", "192.0.2.1")},
		[]runtime.Object{testSource(t, "public", "192.0.2.1")},
	)

	require.NoError(t, m.Reconcile(t.Context()))

	for _, action := range typed.Actions() {
		assert.NotEqual(t, "patch", action.GetVerb())
	}
	assert.False(t, eventWithReason(drainEvents(sink), events.ReasonExternalIPsUpdated))
}

func TestReconcileIgnoresUnannotatedServices(t *testing.T) {
	m, typed, _ := newTestManager(t, Config{},
		[]runtime.Object{testService("plain", "")},
		[]runtime.Object{testSource(t, "public", "192.0.2.1")},
	)

	require.NoError(t, m.Reconcile(t.Context()))

	svc, err := typed.CoreV1().Services("default").Get(t.Context(), "plain", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Empty(t, svc.Spec.ExternalIPs)
}

func TestReconcileDryRunLeavesServiceUntouched(t *testing.T) {
	m, typed, sink := newTestManager(t, Config{DryRun: true},
		[]runtime.Object{testService("web", "public")},
		[]runtime.Object{testSource(t, "public", "192.0.2.1")},
	)

	require.NoError(t, m.Reconcile(t.Context()))

	svc, err := typed.CoreV1().Services("default").Get(t.Context(), "web", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Empty(t, svc.Spec.ExternalIPs)
	assert.False(t, eventWithReason(drainEvents(sink), events.ReasonExternalIPsUpdated))
}

func TestReconcileMissingSource(t *testing.T) {
	m, _, sink := newTestManager(t, Config{},
		[]runtime.Object{testService("web", "gone")},
		nil,
	)

	err := m.Reconcile(t.Context())
	require.Error(t, err)
	assert.True(t, eventWithReason(drainEvents(sink), events.ReasonFailingSource))
}

func TestReconcileInvalidSource(t *testing.T) {
	invalid, convErr := v1alpha1.ToUnstructured(&v1alpha1.ClusterExternalIPSource{
		ObjectMeta: metav1.ObjectMeta{Name: "broken"},
	})
	require.NoError(t, convErr)

	m, typed, sink := newTestManager(t, Config{},
		[]runtime.Object{testService("web", "broken")},
		[]runtime.Object{invalid},
	)

	err := m.Reconcile(t.Context())
	require.Error(t, err)

	evs := drainEvents(sink)
	assert.True(t, eventWithReason(evs, events.ReasonInvalidIPSource))
	assert.True(t, eventWithReason(evs, events.ReasonFailingValidation))

	svc, err := typed.CoreV1().Services("default").Get(t.Context(), "web", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Empty(t, svc.Spec.ExternalIPs)
}

func TestReconcileInvalidCurrentExternalIPs(t *testing.T) {
	m, _, sink := newTestManager(t, Config{},
		[]runtime.Object{testService("web", "public", "not-an-address")},
		[]runtime.Object{testSource(t, "public", "192.0.2.1")},
	)

	err := m.Reconcile(t.Context())
	require.Error(t, err)
	assert.True(t, eventWithReason(drainEvents(sink), events.ReasonInvalidExternalIPs))
}

func TestReconcileQueryFailure(t *testing.T) {
	// The source only yields IPv6 addresses from an IPv4 solver list,
	// so the query finds nothing.
	m, _, sink := newTestManager(t, Config{},
		[]runtime.Object{testService("web", "public")},
		[]runtime.Object{testSource(t, "public", "2001:db8::1")},
	)

	err := m.Reconcile(t.Context())
	require.Error(t, err)
	assert.True(t, eventWithReason(drainEvents(sink), events.ReasonFailingQuery))
}

func TestReconcileContinuesPastFailingServices(t *testing.T) {
	m, typed, _ := newTestManager(t, Config{},
		[]runtime.Object{
			testService("bad", "gone"),
			testService("good", "public"),
		},
		[]runtime.Object{testSource(t, "public", "192.0.2.1")},
	)

	err := m.Reconcile(t.Context())
	require.Error(t, err)

	svc, getErr := typed.CoreV1().Services("default").Get(t.Context(), "good", metav1.GetOptions{})
	require.NoError(t, getErr)
	assert.Equal(t, []string{"192.0.2.1"}, svc.Spec.ExternalIPs)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	m, _, _ := newTestManager(t, Config{}, nil, nil)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
