package session

import "time"

// minTickDelay keeps the playback loop from spinning when the configured
// speed is very small.
const minTickDelay = 10 * time.Millisecond

// TogglePlay flips between paused and playing. Entering playback saves the
// configured substep granularity and forces full-resolution stepping; pausing
// restores it. Starting playback spawns the clock goroutine; pausing stops it
// on its next scheduling boundary.
func (s *Session) TogglePlay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing {
		s.pauseLocked()
		return
	}
	s.playing = true
	s.savedSubsteps = s.substeps
	s.substeps = 1
	s.stopPlay = make(chan struct{})
	go s.playLoop(s.stopPlay)
}

// Pause stops playback if it is running.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseLocked()
}

func (s *Session) pauseLocked() {
	if !s.playing {
		return
	}
	s.playing = false
	s.substeps = s.savedSubsteps
	if s.stopPlay != nil {
		close(s.stopPlay)
		s.stopPlay = nil
	}
}

// SetSpeed adjusts the playback delay, clamped to the configured bounds.
func (s *Session) SetSpeed(ms int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ms < s.minSpeedMS {
		ms = s.minSpeedMS
	}
	if ms > s.maxSpeedMS {
		ms = s.maxSpeedMS
	}
	s.speedMS = ms
}

// playLoop sleeps for the playback delay, then advances one bar, until it is
// stopped or the series runs out. Speed changes take effect on the next tick.
func (s *Session) playLoop(stop chan struct{}) {
	for {
		s.mu.Lock()
		delay := time.Duration(s.speedMS) * time.Millisecond
		s.mu.Unlock()
		if delay < minTickDelay {
			delay = minTickDelay
		}

		select {
		case <-stop:
			return
		case <-time.After(delay):
		}

		advanced := s.advanceOnce()

		s.mu.Lock()
		notify := s.notify
		s.mu.Unlock()
		if notify != nil {
			notify()
		}
		if !advanced {
			return
		}
	}
}

// advanceOnce moves the cursor one bar forward. At the last bar it pauses
// instead of advancing. Reports whether playback should continue.
func (s *Session) advanceOnce() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return false
	}
	if s.cursor < len(s.bars)-1 {
		s.cursor++
		return true
	}
	s.pauseLocked()
	return false
}
