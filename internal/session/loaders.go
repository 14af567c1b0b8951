package session

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/shared"
)

// Establish runs the initial device and playlist loads concurrently. Each loader reports its own failure;
// the first error is returned for logging.
func (s *Session) Establish(ctx context.Context) error {
	if !s.Alive() {
		return shared.ErrSessionClosed
	}

	var g errgroup.Group
	g.Go(func() error { return s.LoadDevices(ctx) })
	g.Go(func() error { return s.LoadPlaylists(ctx) })
	return g.Wait()
}

// LoadDevices replaces the device list with a fresh fetch and re-derives the current device.
//
// On failure the previous list is kept and a warning is sent to the notifier. Results arriving after a
// logout are dropped. When two loads overlap, whichever resolves last is applied.
func (s *Session) LoadDevices(ctx context.Context) error {
	gen, alive := s.Generation()
	if !alive {
		return shared.ErrSessionClosed
	}

	devices, err := s.remote.Devices(ctx)
	if err != nil {
		return s.loadFailed(ctx, gen, "Could not load devices", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive || s.generation != gen {
		s.logger.Debug("dropping device list from closed session")
		return nil
	}

	s.devices = slices.Clone(devices)
	s.currentDeviceID = deriveCurrentDevice(s.devices, s.userSelectedDevice)
	s.logger.Debug("devices loaded", "count", len(devices), "current", s.currentDeviceID)
	return nil
}

// LoadPlaylists replaces the playlist list with a fresh fetch. Failure handling matches [Session.LoadDevices].
//
// A selected playlist that is no longer listed stays selected; playback reports it missing if it is gone.
func (s *Session) LoadPlaylists(ctx context.Context) error {
	gen, alive := s.Generation()
	if !alive {
		return shared.ErrSessionClosed
	}

	playlists, err := s.remote.Playlists(ctx)
	if err != nil {
		return s.loadFailed(ctx, gen, "Could not load playlists", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive || s.generation != gen {
		s.logger.Debug("dropping playlists from closed session")
		return nil
	}

	s.playlists = slices.Clone(playlists)
	s.logger.Debug("playlists loaded", "count", len(playlists))
	return nil
}

func (s *Session) loadFailed(ctx context.Context, gen uint64, message string, err error) error {
	if cur, alive := s.Generation(); !alive || cur != gen {
		return nil
	}
	if s.HandleUnauthorized(ctx, err) {
		return err
	}
	s.notifier.Notify(Notification{Level: LevelWarn, Message: message, Err: err})
	return err
}

// SetCurrentDevice transfers playback to id and makes it the current device, then reloads the device list
// to pick up what the service now reports as active.
//
// On failure a warning is sent, the previous selection is kept and an error wrapping
// [shared.ErrDeviceTransfer] is returned.
func (s *Session) SetCurrentDevice(ctx context.Context, id string) error {
	s.mu.Lock()
	alive, gen := s.alive, s.generation
	known := slices.ContainsFunc(s.devices, func(d models.Device) bool { return d.ID != "" && d.ID == id })
	s.mu.Unlock()

	if !alive {
		return shared.ErrSessionClosed
	}
	if !known {
		err := fmt.Errorf("%w: %w: %s", shared.ErrDeviceTransfer, shared.ErrDeviceNotFound, id)
		s.notifier.Notify(Notification{Level: LevelWarn, Message: "Unknown device", Err: err})
		return err
	}

	if err := s.remote.TransferPlayback(ctx, id); err != nil {
		if cur, ok := s.Generation(); ok && cur == gen && !s.HandleUnauthorized(ctx, err) {
			s.notifier.Notify(Notification{Level: LevelWarn, Message: "Could not switch device", Err: err})
		}
		return fmt.Errorf("%w: %w", shared.ErrDeviceTransfer, err)
	}

	s.mu.Lock()
	if !s.alive || s.generation != gen {
		s.mu.Unlock()
		return shared.ErrSessionClosed
	}
	s.currentDeviceID = id
	s.userSelectedDevice = id
	s.mu.Unlock()

	// The transfer succeeded; a failed reload is already reported by the loader.
	_ = s.LoadDevices(ctx)
	return nil
}

// deriveCurrentDevice picks the device playback goes to: the user's choice while it is still listed,
// else the active device, else the first device. Devices without an id can't be targeted.
func deriveCurrentDevice(devices []models.Device, userSelected string) string {
	if userSelected != "" {
		for _, d := range devices {
			if d.ID == userSelected {
				return d.ID
			}
		}
	}
	for _, d := range devices {
		if d.IsActive && d.ID != "" {
			return d.ID
		}
	}
	for _, d := range devices {
		if d.ID != "" {
			return d.ID
		}
	}
	return ""
}
