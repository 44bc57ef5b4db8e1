// Package services implements the domain operations exposed to the host
// app. Each write follows the same shape: validate, commit the local
// transaction, then hand a mutation to the sync dispatcher. The local
// commit is authoritative; the dispatch never blocks and never fails the
// operation.
package services

import (
	"github.com/repstack/backend/internal/logging"
	syncpkg "github.com/repstack/backend/internal/sync"
)

// Dispatcher is the sync boundary the services depend on. Satisfied by
// *sync.Dispatcher; tests substitute a recorder.
type Dispatcher interface {
	Dispatch(m syncpkg.Mutation)
}

// dispatchMutation serializes a payload and hands it off. The local
// write has already committed by this point, so a marshal failure only
// skips the sync and is logged, never surfaced.
func dispatchMutation(d Dispatcher, code syncpkg.MutationCode, payload interface{}) {
	m, err := syncpkg.NewMutation(code, payload)
	if err != nil {
		logging.Error("Failed to build sync mutation", err,
			map[string]interface{}{"code": code})
		return
	}
	d.Dispatch(m)
}
