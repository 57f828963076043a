package domain

import (
	"bytes"
	"testing"
)

const sampleSpec = `{
	"pipeline": {"name": "edges", "project": {"name": "video"}},
	"description": "edge detection",
	"transform": {"image": "old/edges:1", "cmd": ["python3", "/edges.py"]},
	"input": {"pfs": {"repo": "images", "glob": "/*"}},
	"parallelism_spec": {"constant": 4},
	"resource_limits": {"memory": "256M", "cpu": 0.5}
}`

func TestParsePipelineDocument_Ref(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    PipelineRef
		wantErr bool
	}{
		{
			name: "name and project",
			spec: sampleSpec,
			want: PipelineRef{Project: "video", Name: "edges"},
		},
		{
			name: "project defaults when absent",
			spec: `{"pipeline": {"name": "edges"}, "transform": {}}`,
			want: PipelineRef{Project: "default", Name: "edges"},
		},
		{
			name:    "missing pipeline object",
			spec:    `{"transform": {}}`,
			wantErr: true,
		},
		{
			name:    "missing name",
			spec:    `{"pipeline": {"project": {"name": "video"}}, "transform": {}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParsePipelineDocument([]byte(tt.spec))
			if err != nil {
				t.Fatalf("ParsePipelineDocument() error = %v", err)
			}
			ref, err := doc.Ref()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Ref() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && ref != tt.want {
				t.Errorf("Ref() = %+v, want %+v", ref, tt.want)
			}
		})
	}
}

func TestPipelineDocument_SetTransformImage(t *testing.T) {
	doc, err := ParsePipelineDocument([]byte(sampleSpec))
	if err != nil {
		t.Fatalf("ParsePipelineDocument() error = %v", err)
	}

	if err := doc.SetTransformImage("new/edges:abc123"); err != nil {
		t.Fatalf("SetTransformImage() error = %v", err)
	}
	if got := doc.TransformImage(); got != "new/edges:abc123" {
		t.Errorf("TransformImage() = %q, want %q", got, "new/edges:abc123")
	}

	out, err := doc.EncodeJSON()
	if err != nil {
		t.Fatalf("EncodeJSON() error = %v", err)
	}

	// Everything outside transform.image survives the round trip.
	for _, want := range []string{
		`"description":"edge detection"`,
		`"cmd":["python3","/edges.py"]`,
		`"glob":"/*"`,
		`"constant":4`,
		`"cpu":0.5`,
	} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("EncodeJSON() output missing %s:\n%s", want, out)
		}
	}
	if bytes.Contains(out, []byte("old/edges:1")) {
		t.Errorf("EncodeJSON() still references the old image:\n%s", out)
	}
}

func TestPipelineDocument_SetTransformImageIdempotent(t *testing.T) {
	doc, err := ParsePipelineDocument([]byte(sampleSpec))
	if err != nil {
		t.Fatalf("ParsePipelineDocument() error = %v", err)
	}

	if err := doc.SetTransformImage("new/edges:abc123"); err != nil {
		t.Fatalf("SetTransformImage() error = %v", err)
	}
	first, err := doc.EncodeJSON()
	if err != nil {
		t.Fatalf("EncodeJSON() error = %v", err)
	}

	if err := doc.SetTransformImage("new/edges:abc123"); err != nil {
		t.Fatalf("SetTransformImage() second apply error = %v", err)
	}
	second, err := doc.EncodeJSON()
	if err != nil {
		t.Fatalf("EncodeJSON() error = %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("applying the same image twice changed the document:\n%s\nvs\n%s", first, second)
	}
}

func TestPipelineDocument_MissingTransform(t *testing.T) {
	doc, err := ParsePipelineDocument([]byte(`{"pipeline": {"name": "edges"}}`))
	if err != nil {
		t.Fatalf("ParsePipelineDocument() error = %v", err)
	}
	if doc.HasTransform() {
		t.Error("HasTransform() = true for a spec without transform")
	}
	if err := doc.SetTransformImage("x:y"); err == nil {
		t.Error("SetTransformImage() expected error for missing transform")
	}
}

func TestParsePipelineDocumentYAML(t *testing.T) {
	spec := []byte(`
pipeline:
  name: edges
  project:
    name: video
transform:
  image: old/edges:1
  cmd: [python3, /edges.py]
input:
  pfs:
    repo: images
    glob: "/*"
`)
	doc, err := ParsePipelineDocumentYAML(spec)
	if err != nil {
		t.Fatalf("ParsePipelineDocumentYAML() error = %v", err)
	}

	ref, err := doc.Ref()
	if err != nil {
		t.Fatalf("Ref() error = %v", err)
	}
	if want := (PipelineRef{Project: "video", Name: "edges"}); ref != want {
		t.Errorf("Ref() = %+v, want %+v", ref, want)
	}

	if err := doc.SetTransformImage("new/edges:abc123"); err != nil {
		t.Fatalf("SetTransformImage() error = %v", err)
	}
	out, err := doc.EncodeJSON()
	if err != nil {
		t.Fatalf("EncodeJSON() error = %v", err)
	}
	for _, want := range []string{`"new/edges:abc123"`, `"repo":"images"`, `"cmd":["python3","/edges.py"]`} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("EncodeJSON() output missing %s:\n%s", want, out)
		}
	}
}

func TestParsePipelineDocument_Invalid(t *testing.T) {
	if _, err := ParsePipelineDocument([]byte("not json")); err == nil {
		t.Error("ParsePipelineDocument() expected error for invalid JSON")
	}
	if _, err := ParsePipelineDocumentYAML([]byte(": definitely: not: yaml: [")); err == nil {
		t.Error("ParsePipelineDocumentYAML() expected error for invalid YAML")
	}
}
