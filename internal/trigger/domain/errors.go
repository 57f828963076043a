package domain

import (
	"errors"
	"fmt"
)

// The four failure kinds mirror the stages of a run: loading config,
// building the image, publishing it, and updating the remote pipeline.
// None are retried; each aborts the run.

// ConfigError indicates a bad or missing trigger config or pipeline spec.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: %s", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err as a ConfigError.
func NewConfigError(err error) *ConfigError { return &ConfigError{Err: err} }

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// BuildError indicates the container toolchain failed to build the image.
type BuildError struct {
	Image string
	Err   error
}

func (e *BuildError) Error() string { return fmt.Sprintf("build %s: %s", e.Image, e.Err) }
func (e *BuildError) Unwrap() error { return e.Err }

// NewBuildError wraps err as a BuildError for the given image reference.
func NewBuildError(image string, err error) *BuildError {
	return &BuildError{Image: image, Err: err}
}

// IsBuildError reports whether err is (or wraps) a BuildError.
func IsBuildError(err error) bool {
	var e *BuildError
	return errors.As(err, &e)
}

// PublishError indicates registry authentication or the image push failed.
type PublishError struct {
	Image string
	Err   error
}

func (e *PublishError) Error() string { return fmt.Sprintf("publish %s: %s", e.Image, e.Err) }
func (e *PublishError) Unwrap() error { return e.Err }

// NewPublishError wraps err as a PublishError for the given image reference.
func NewPublishError(image string, err error) *PublishError {
	return &PublishError{Image: image, Err: err}
}

// IsPublishError reports whether err is (or wraps) a PublishError.
func IsPublishError(err error) bool {
	var e *PublishError
	return errors.As(err, &e)
}

// UpdateError indicates the cluster was unreachable or rejected the
// pipeline upsert (the existence check counts as a cluster call too).
type UpdateError struct {
	Pipeline string
	Err      error
}

func (e *UpdateError) Error() string { return fmt.Sprintf("update %s: %s", e.Pipeline, e.Err) }
func (e *UpdateError) Unwrap() error { return e.Err }

// NewUpdateError wraps err as an UpdateError for the given pipeline.
func NewUpdateError(pipeline string, err error) *UpdateError {
	return &UpdateError{Pipeline: pipeline, Err: err}
}

// IsUpdateError reports whether err is (or wraps) an UpdateError.
func IsUpdateError(err error) bool {
	var e *UpdateError
	return errors.As(err, &e)
}
