package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/nuno18084/Ampflux-sub000/pkg/schematic"
	"github.com/nuno18084/Ampflux-sub000/pkg/sim"
	"github.com/nuno18084/Ampflux-sub000/pkg/store"
)

// Load restores the session's graph and view. Sources are tried by
// explicit precedence: the local snapshot mirror wins if present (it is
// the freshest state and costs no round-trip); otherwise the latest remote
// version is fetched and parsed; otherwise the session starts from an
// empty graph.
//
// Load never fails hard. A remote fetch error or a malformed stored
// snapshot leaves the session editable on an empty graph and is returned
// for surfacing as a transient banner. Callers must not invoke Save while
// a Load for the same project is still in flight.
func (s *Session) Load(ctx context.Context) error {
	if snap, ok := s.mirror.Read(ctx, s.projectID); ok {
		s.restore(snap)
		s.logger.Debug("restored from local snapshot", "project", s.projectID,
			"components", s.graph.ComponentCount())
		return nil
	}

	if s.versions == nil {
		return nil
	}

	rec, err := s.versions.Latest(ctx, s.projectID)
	if errors.Is(err, store.ErrProjectNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Warn("remote load failed, starting empty", "project", s.projectID, "err", err)
		return fmt.Errorf("load project %s: %w", s.projectID, err)
	}

	snap, err := schematic.UnmarshalSnapshot([]byte(rec.Graph))
	if err != nil {
		// Malformed stored data is treated as absent: empty graph, no crash.
		s.logger.Warn("stored snapshot malformed, starting empty",
			"project", s.projectID, "version", rec.Number, "err", err)
		return nil
	}

	s.restore(snap)
	s.logger.Debug("restored from remote version", "project", s.projectID, "version", rec.Number)
	return nil
}

func (s *Session) restore(snap schematic.Snapshot) {
	s.graph.Restore(snap)
	s.view = snap.View
	s.resetTransient()
	s.selection = ""
}

// Saving reports whether a save is outstanding.
func (s *Session) Saving() bool {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	return s.saving
}

// Simulating reports whether a simulation is outstanding.
func (s *Session) Simulating() bool {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	return s.simulating
}

// Save serializes the current snapshot and appends it to the remote
// version store as a new version. The store call runs on its own
// goroutine; done (if non-nil) receives the result when it completes.
//
// A second Save while one is outstanding returns ErrSaveInFlight without
// dispatching anything. A failed save is not retried automatically - the
// local mirror still holds the edits and the user re-saves manually.
func (s *Session) Save(ctx context.Context, done func(store.VersionRecord, error)) error {
	if s.versions == nil {
		return ErrNoStore
	}
	if !s.perms.CanEdit {
		return ErrPermissionDenied
	}

	// Serialize on the event goroutine: the dispatched goroutine must
	// never touch the live graph.
	data, err := schematic.MarshalSnapshot(s.graph.TakeSnapshot(s.view))
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}

	s.busyMu.Lock()
	if s.saving {
		s.busyMu.Unlock()
		return ErrSaveInFlight
	}
	s.saving = true
	s.busyMu.Unlock()

	go func() {
		rec, err := s.versions.SaveVersion(ctx, s.projectID, string(data))

		s.busyMu.Lock()
		s.saving = false
		s.busyMu.Unlock()

		if err != nil {
			s.logger.Error("save failed", "project", s.projectID, "err", err)
		} else {
			s.logger.Info("saved version", "project", s.projectID, "version", rec.Number)
		}
		if done != nil {
			done(rec, err)
		}
	}()
	return nil
}

// Simulate sends the current snapshot to the simulation collaborator.
// Like Save it is busy-gated and asynchronous, with its own flag so a
// running simulation does not block saving. Viewing rights suffice:
// simulation mutates nothing.
func (s *Session) Simulate(ctx context.Context, done func(sim.Result, error)) error {
	if s.simulator == nil {
		return ErrNoSimulator
	}

	data, err := schematic.MarshalSnapshot(s.graph.TakeSnapshot(s.view))
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}

	s.busyMu.Lock()
	if s.simulating {
		s.busyMu.Unlock()
		return ErrSimulateInFlight
	}
	s.simulating = true
	s.busyMu.Unlock()

	go func() {
		result, err := s.simulator.Run(ctx, s.projectID, string(data))

		s.busyMu.Lock()
		s.simulating = false
		s.busyMu.Unlock()

		if err != nil {
			s.logger.Error("simulation failed", "project", s.projectID, "err", err)
		}
		if done != nil {
			done(result, err)
		}
	}()
	return nil
}
