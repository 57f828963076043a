package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const defaultProject = "default"

// PipelineRef addresses a pipeline on the cluster.
type PipelineRef struct {
	Project string
	Name    string
}

func (r PipelineRef) String() string {
	return r.Project + "/" + r.Name
}

// PipelineDocument is a parsed pipeline definition. Only transform.image
// is ever mutated; every other field round-trips untouched. JSON numbers
// are kept as json.Number so re-serialization preserves them exactly.
type PipelineDocument struct {
	root map[string]any
}

// ParsePipelineDocument parses a JSON pipeline definition.
func ParsePipelineDocument(data []byte) (*PipelineDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("parse pipeline spec JSON: %w", err)
	}
	return &PipelineDocument{root: root}, nil
}

// ParsePipelineDocumentYAML parses a YAML pipeline definition. Pachyderm
// tooling accepts YAML specs; the upsert always submits JSON.
func ParsePipelineDocumentYAML(data []byte) (*PipelineDocument, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse pipeline spec YAML: %w", err)
	}
	if root == nil {
		return nil, errors.New("parse pipeline spec YAML: empty document")
	}
	return &PipelineDocument{root: root}, nil
}

// Ref extracts the pipeline name and project. The project defaults to
// "default" when absent, matching cluster behavior.
func (d *PipelineDocument) Ref() (PipelineRef, error) {
	pipeline, ok := d.root["pipeline"].(map[string]any)
	if !ok {
		return PipelineRef{}, errors.New("pipeline spec has no pipeline object")
	}
	name, _ := pipeline["name"].(string)
	if name == "" {
		return PipelineRef{}, errors.New("pipeline spec has no pipeline.name")
	}
	ref := PipelineRef{Project: defaultProject, Name: name}
	if project, ok := pipeline["project"].(map[string]any); ok {
		if projectName, _ := project["name"].(string); projectName != "" {
			ref.Project = projectName
		}
	}
	return ref, nil
}

// HasTransform reports whether the document carries a transform object
// for SetTransformImage to rewrite.
func (d *PipelineDocument) HasTransform() bool {
	_, ok := d.root["transform"].(map[string]any)
	return ok
}

// TransformImage returns the current transform.image value, or "" when
// unset.
func (d *PipelineDocument) TransformImage() string {
	transform, ok := d.root["transform"].(map[string]any)
	if !ok {
		return ""
	}
	image, _ := transform["image"].(string)
	return image
}

// SetTransformImage overwrites transform.image. Setting the same value
// twice yields the same serialized document. A spec without a transform
// object is rejected rather than silently grown one.
func (d *PipelineDocument) SetTransformImage(image string) error {
	transform, ok := d.root["transform"].(map[string]any)
	if !ok {
		return errors.New("pipeline spec has no transform object")
	}
	transform["image"] = image
	return nil
}

// EncodeJSON serializes the document for the upsert call.
func (d *PipelineDocument) EncodeJSON() ([]byte, error) {
	data, err := json.Marshal(d.root)
	if err != nil {
		return nil, fmt.Errorf("encode pipeline spec: %w", err)
	}
	return data, nil
}
