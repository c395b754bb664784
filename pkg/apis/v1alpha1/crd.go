/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package v1alpha1

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

// crdManifest is the hand-maintained CRD manifest for this API version.
// It must stay in sync with the types in this package.
//
//go:embed crd.yaml
var crdManifest []byte

// CRDManifest returns the CustomResourceDefinition manifest for
// ClusterExternalIPSource as YAML.
func CRDManifest() []byte {
	out := make([]byte, len(crdManifest))
	copy(out, crdManifest)
	return out
}

// CRDManifestName is the file name the exporter writes the manifest under.
const CRDManifestName = "v1alpha1-ClusterExternalIPSource.yaml"

// ValidateCRDManifest parses the embedded manifest to guard against
// corruption; used by tests and the export command.
func ValidateCRDManifest() error {
	var doc map[string]any
	if err := yaml.Unmarshal(crdManifest, &doc); err != nil {
		return fmt.Errorf("embedded CRD manifest is not valid YAML: %w", err)
	}
	if doc["kind"] != "CustomResourceDefinition" {
		return fmt.Errorf("embedded CRD manifest has kind %v, want CustomResourceDefinition", doc["kind"])
	}
	return nil
}

// FromUnstructured converts a dynamic-client object into a typed
// ClusterExternalIPSource.
func FromUnstructured(obj *unstructured.Unstructured) (*ClusterExternalIPSource, error) {
	var src ClusterExternalIPSource
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, &src); err != nil {
		return nil, fmt.Errorf("failed to convert %s %q: %w", Kind, obj.GetName(), err)
	}
	return &src, nil
}

// ToUnstructured converts a typed ClusterExternalIPSource into the
// unstructured form the dynamic client operates on. Mostly used by tests.
func ToUnstructured(src *ClusterExternalIPSource) (*unstructured.Unstructured, error) {
	src.APIVersion = Group + "/" + Version
	src.Kind = Kind
	obj, err := runtime.DefaultUnstructuredConverter.ToUnstructured(src)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s %q: %w", Kind, src.Name, err)
	}
	return &unstructured.Unstructured{Object: obj}, nil
}
