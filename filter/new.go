package filter

// New builds a fresh, empty, memory-backed Container from cd,
// dispatching on cd.Kind. Callers that need a file-backed container
// instead go through filecodec, which reconstructs via
// LoadBloom/LoadXxh, or call NewWithSource directly for a fresh
// container that should be persisted at shutdown.
func New(path string, cd ConstructionDetails) (Container, error) {
	return NewWithSource(path, cd, SourceMemory)
}

// NewWithSource builds a fresh, empty Container from cd with the given
// provenance. A SourceFile container is not itself written to disk here
// — the caller (the pipeline, at shutdown) persists it via filecodec.
func NewWithSource(path string, cd ConstructionDetails, source Source) (Container, error) {
	if err := cd.Validate(); err != nil {
		return nil, err
	}

	switch cd.Kind {
	case KindBloomCapacityAndErrorRate:
		return newBloomByErrorRate(path, source, cd.Capacity, cd.ErrorRate), nil
	case KindBloomCapacityAndSize:
		return newBloomBySize(path, source, cd.Capacity, cd.SizeBytes), nil
	case KindXxhCapacityAndSize:
		return newXxhFilter(path, source, cd, 0), nil
	default:
		return nil, ErrUnknownKind
	}
}
