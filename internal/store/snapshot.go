package store

import "github.com/obycode/stackflow-sub001/internal/model"

// GetSnapshot returns a consistent read of every entity collection plus
// the schema version and a fresh UpdatedAt stamp, for the GET /status
// route and for restart-durability testing.
func (s *Store) GetSnapshot() (model.Snapshot, error) {
	pipes, err := s.ListObservedPipes()
	if err != nil {
		return model.Snapshot{}, err
	}
	closures, err := s.ListClosures()
	if err != nil {
		return model.Snapshot{}, err
	}
	sigStates, err := s.ListSignatureStates(0)
	if err != nil {
		return model.Snapshot{}, err
	}
	attempts, err := s.ListDisputeAttempts(0)
	if err != nil {
		return model.Snapshot{}, err
	}

	return model.Snapshot{
		Version:         currentSchemaVersion,
		UpdatedAt:       now(),
		ObservedPipes:   pipes,
		Closures:        closures,
		SignatureStates: sigStates,
		DisputeAttempts: attempts,
	}, nil
}
