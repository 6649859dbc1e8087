// Package config describes the validated, immutable set of containers a
// pipeline run builds or loads, plus the run's output-mode flags. It is
// the boundary between the CLI and the core: nothing here parses flags,
// it only validates and holds already-decided values.
package config

import (
	"errors"
	"fmt"

	"github.com/kenorb-dev/bloomline/filter"
)

// ErrInvalid is wrapped by every validation failure config.New returns.
var ErrInvalid = errors.New("config: invalid")

// ContainerSpec describes one container the pipeline will own: either a
// fresh in-memory container built from Construction, or a file-backed
// one at Path. A file-backed container is loaded from Path when that
// file exists (Construction is then ignored — the container file's own
// header is authoritative); otherwise it is built fresh from
// Construction. New validates Construction only for in-memory specs.
type ContainerSpec struct {
	Path         string
	Construction filter.ConstructionDetails
}

// IsFile reports whether this spec names a file-backed container.
func (s ContainerSpec) IsFile() bool {
	return s.Path != ""
}

// Config is the validated description of a pipeline run.
type Config struct {
	Containers []ContainerSpec
	WriteMode  bool
	Inverse    bool
	Silent     bool
	Debug      bool
}

// New validates containers and the run flags, returning a Config or an
// error wrapping ErrInvalid.
func New(containers []ContainerSpec, writeMode, inverse, silent, debug bool) (Config, error) {
	if len(containers) == 0 {
		return Config{}, fmt.Errorf("%w: at least one container is required", ErrInvalid)
	}

	for i, spec := range containers {
		if !spec.IsFile() {
			if err := spec.Construction.Validate(); err != nil {
				return Config{}, fmt.Errorf("%w: container %d: %v", ErrInvalid, i, err)
			}
		}
	}

	return Config{
		Containers: containers,
		WriteMode:  writeMode,
		Inverse:    inverse,
		Silent:     silent,
		Debug:      debug,
	}, nil
}
