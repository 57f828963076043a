package api

// Config is the schema of the JSON trigger config file committed to the
// repository whose pipeline this tool manages. All paths are relative to
// the directory containing the config file itself.
type Config struct {
	// PipelineSpec is the path to the pipeline definition (JSON or YAML).
	PipelineSpec string `json:"pipeline_spec"`

	// Dockerfile is the path to the dockerfile used for the image build.
	Dockerfile string `json:"dockerfile"`

	// BuildDir is the docker build context directory.
	BuildDir string `json:"build_dir"`

	// ImageName is the registry image name, without a tag; the commit SHA
	// becomes the tag.
	ImageName string `json:"image_name"`

	// Policy optionally selects the rebuild decision policy: "strict"
	// (default) skips the build when nothing relevant changed, "lenient"
	// always builds and only warns. Overrides TRIGGER_POLICY when set.
	Policy string `json:"policy,omitempty"`
}
