/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/tools/events"
)

func testService() *corev1.Service {
	return &corev1.Service{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
	}
}

// Reasons and actions are wire values: kubectl field selectors and
// alerting rules match on them, so their exact casing is load-bearing.
func TestEventWireValues(t *testing.T) {
	assert.Equal(t, "InvalidIPSource", ReasonInvalidIPSource)
	assert.Equal(t, "failingExternalIPSource", ReasonFailingSource)
	assert.Equal(t, "failingSourceValidation", ReasonFailingValidation)
	assert.Equal(t, "failingExternalIPQuery", ReasonFailingQuery)
	assert.Equal(t, "invalidExternalIPAddresses", ReasonInvalidExternalIPs)
	assert.Equal(t, "externalIPsUpdated", ReasonExternalIPsUpdated)

	assert.Equal(t, "resolvingExternalIP", ActionResolvingExternalIP)
	assert.Equal(t, "clusterExternalIPSourceValidation", ActionValidatingSource)
	assert.Equal(t, "ParsingClusterExternalIPSource", ActionParsingSource)
}

func TestWarningPublishes(t *testing.T) {
	fake := events.NewFakeRecorder(10)
	rec := NewRecorderWithSink(fake)

	rec.Warning(t.Context(), testService(), ReasonFailingQuery, ActionResolvingExternalIP, "no addresses")

	select {
	case ev := <-fake.Events:
		assert.Contains(t, ev, "Warning")
		assert.Contains(t, ev, ReasonFailingQuery)
		assert.Contains(t, ev, "no addresses")
	default:
		require.Fail(t, "expected an event to be recorded")
	}
}

func TestNormalPublishes(t *testing.T) {
	fake := events.NewFakeRecorder(10)
	rec := NewRecorderWithSink(fake)

	rec.Normal(t.Context(), testService(), ReasonExternalIPsUpdated, ActionResolvingExternalIP, "updated")

	select {
	case ev := <-fake.Events:
		assert.Contains(t, ev, "Normal")
		assert.Contains(t, ev, ReasonExternalIPsUpdated)
	default:
		require.Fail(t, "expected an event to be recorded")
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.Warning(t.Context(), testService(), ReasonFailingQuery, ActionResolvingExternalIP, "x")
	})
}
