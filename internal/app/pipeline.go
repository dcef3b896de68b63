package app

import (
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/chikitsa/internal/pose"
)

// runPipeline is the main coaching loop that processes frames from the
// camera. It manages the transitions between the idle and active frame
// rates and feeds detected skeletons to the active session.
//
// Pipeline logic:
//  1. Start at the idle frame rate (no session)
//  2. While a session is active, run at the active frame rate
//  3. Detect the pose in each frame and feed it to the session
//  4. Auto-finish the session when its exercise duration elapses
//  5. Without a session, only run cheap presence differencing
func (a *App) runPipeline(stopCh chan struct{}) {
	idleInterval := time.Second / time.Duration(a.config.IdleFPS)
	activeInterval := time.Second / time.Duration(a.config.ActiveFPS)

	activeMode := false

	ticker := time.NewTicker(idleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// Skip processing if coaching is disabled
			if !a.IsEnabled() {
				continue
			}

			hasSession := a.hasActiveSession()

			// Track the session state with the frame rate
			if hasSession && !activeMode {
				activeMode = true
				ticker.Reset(activeInterval)
			} else if !hasSession && activeMode {
				activeMode = false
				ticker.Reset(idleInterval)
			}

			frame, err := a.Camera().ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			if !hasSession {
				// Keep the presence baseline warm so session starts
				// are not judged against a stale frame.
				a.presence.Detect(frame)
				frame.Close()
				continue
			}

			skeleton, err := a.detectPose(frame)
			frame.Close()
			if err != nil {
				log.Printf("Error detecting pose: %v", err)
				continue
			}

			a.processFrame(skeleton)
		}
	}
}

// hasActiveSession reports whether a session is currently running.
func (a *App) hasActiveSession() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active != nil
}

// detectPose runs the pose detector on one frame.
func (a *App) detectPose(frame *gocv.Mat) (*pose.Skeleton, error) {
	a.mu.Lock()
	d := a.detector
	a.mu.Unlock()

	if d == nil {
		return nil, nil
	}
	return d.Detect(frame)
}

// processFrame feeds one detected skeleton to the active session and
// finishes the session when its exercise duration has elapsed.
func (a *App) processFrame(skeleton *pose.Skeleton) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess := a.active
	if sess == nil {
		return
	}

	now := time.Now()
	sess.Process(skeleton, now)

	rule := sess.Rule()
	if rule.Duration > 0 && now.Sub(sess.StartedAt()) >= rule.Duration {
		if _, err := a.finishLocked(now); err != nil {
			log.Printf("Error auto-finishing session: %v", err)
		}
	}
}
