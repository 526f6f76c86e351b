package transport

import (
	"context"
	"fmt"
	"sync"
)

// sessionHistory tracks one session's events plus the running content
// needed to turn operation events into patches when UsePatchMode is set.
type sessionHistory struct {
	events      []*HistoryEvent
	lastContent string
}

// MemoryHistoryService is an in-process HistoryService, the only backend
// carried over from the teacher's pluggable storage design (no
// out-of-process store is part of this module's scope). In full-content
// mode it keeps every snapshot's text verbatim; in patch mode it keeps,
// for each operation event, only the diff-match-patch patch from the
// previously recorded content (snapshot or operation) to that event's
// content, trading memory for CPU on reconstruction.
type MemoryHistoryService struct {
	mu           sync.RWMutex
	usePatchMode bool
	patches      *PatchManager
	sessions     map[string]*sessionHistory
}

// NewMemoryHistoryService creates a MemoryHistoryService. usePatchMode
// selects whether operation events are stored as diff-match-patch
// patches (true) or left untouched (false); snapshot events always keep
// their full content, since they are the reconstruction anchor.
func NewMemoryHistoryService(usePatchMode bool) *MemoryHistoryService {
	return &MemoryHistoryService{
		usePatchMode: usePatchMode,
		patches:      NewPatchManager(),
		sessions:     make(map[string]*sessionHistory),
	}
}

func (m *MemoryHistoryService) sessionFor(sessionID string) *sessionHistory {
	sh, ok := m.sessions[sessionID]
	if !ok {
		sh = &sessionHistory{}
		m.sessions[sessionID] = sh
	}
	return sh
}

// OnSnapshot records a full-content snapshot event.
func (m *MemoryHistoryService) OnSnapshot(event *HistoryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sh := m.sessionFor(event.SessionID)
	sh.events = append(sh.events, event)
	sh.lastContent = event.Content
	return nil
}

// OnOperation records an operation event. In patch mode, the patch
// between the session's last known content and the content after this
// operation is computed and stashed in the event's Metadata under
// "patch", rather than the caller's operation payload.
func (m *MemoryHistoryService) OnOperation(event *HistoryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sh := m.sessionFor(event.SessionID)

	if m.usePatchMode && event.Content != "" {
		diff := m.patches.ComputePatch(sh.lastContent, event.Content)
		if event.Metadata == nil {
			event.Metadata = make(map[string]interface{})
		}
		event.Metadata["patch"] = diff.Patch
		sh.lastContent = event.Content
	} else if event.Content != "" {
		sh.lastContent = event.Content
	}

	sh.events = append(sh.events, event)
	return nil
}

// GetSnapshot returns the recorded event for sessionID at versionID.
func (m *MemoryHistoryService) GetSnapshot(ctx context.Context, sessionID string, versionID int64) (*HistoryEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sh, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("history: unknown session %q", sessionID)
	}
	for _, e := range sh.events {
		if e.EventType == "snapshot" && e.VersionID == versionID {
			return e, nil
		}
	}
	return nil, fmt.Errorf("history: no snapshot at version %d for session %q", versionID, sessionID)
}

// GetSessionHistory returns up to limit most recent events for
// sessionID, oldest first. limit <= 0 returns the full history.
func (m *MemoryHistoryService) GetSessionHistory(ctx context.Context, sessionID string, limit int64) ([]*HistoryEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sh, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	events := sh.events
	if limit > 0 && int64(len(events)) > limit {
		events = events[int64(len(events))-limit:]
	}
	out := make([]*HistoryEvent, len(events))
	copy(out, events)
	return out, nil
}

// ReconstructSnapshot rebuilds the content at targetVersionID by
// starting from the nearest preceding snapshot and replaying operation
// events up to the target, applying stored patches in patch mode.
func (m *MemoryHistoryService) ReconstructSnapshot(ctx context.Context, sessionID string, targetVersionID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sh, ok := m.sessions[sessionID]
	if !ok {
		return "", fmt.Errorf("history: unknown session %q", sessionID)
	}

	var content string
	var found bool
	for _, e := range sh.events {
		switch e.EventType {
		case "snapshot":
			content = e.Content
		case "operation":
			if patch, ok := e.Metadata["patch"].(string); ok {
				result := m.patches.ApplyPatch(content, patch)
				content = result.Content
			} else if e.Content != "" {
				content = e.Content
			}
		}
		if e.VersionID == targetVersionID {
			found = true
			break
		}
	}
	if !found {
		return "", fmt.Errorf("history: no version %d for session %q", targetVersionID, sessionID)
	}
	return content, nil
}

// RevertOperation undoes a single patch-mode operation event, returning
// the session content as it was immediately before that version was
// applied. Only meaningful in patch mode; snapshot events and
// full-content operation events have nothing to roll back since their
// Content field already holds every earlier version.
func (m *MemoryHistoryService) RevertOperation(ctx context.Context, sessionID string, versionID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sh, ok := m.sessions[sessionID]
	if !ok {
		return "", fmt.Errorf("history: unknown session %q", sessionID)
	}

	var before string
	for _, e := range sh.events {
		if e.VersionID == versionID {
			if e.EventType != "operation" {
				return "", fmt.Errorf("history: version %d of session %q is not a revertible operation", versionID, sessionID)
			}
			patch, ok := e.Metadata["patch"].(string)
			if !ok {
				return "", fmt.Errorf("history: version %d of session %q was not recorded in patch mode", versionID, sessionID)
			}
			rollback := m.patches.RollbackPatch(before, patch)
			after := m.patches.ApplyPatch(before, patch).Content
			result := m.patches.ApplyPatch(after, rollback)
			if !result.Success {
				return "", fmt.Errorf("history: failed to revert version %d of session %q", versionID, sessionID)
			}
			return result.Content, nil
		}
		if e.EventType == "snapshot" {
			before = e.Content
		} else if patch, ok := e.Metadata["patch"].(string); ok {
			r := m.patches.ApplyPatch(before, patch)
			before = r.Content
		} else if e.Content != "" {
			before = e.Content
		}
	}
	return "", fmt.Errorf("history: no version %d for session %q", versionID, sessionID)
}

// ListSnapshots returns metadata for every snapshot event recorded for
// sessionID.
func (m *MemoryHistoryService) ListSnapshots(ctx context.Context, sessionID string) ([]*SnapshotInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sh, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	var infos []*SnapshotInfo
	for _, e := range sh.events {
		if e.EventType != "snapshot" {
			continue
		}
		infos = append(infos, &SnapshotInfo{
			SnapshotVersion:  e.VersionID,
			LastSnapshotTime: e.CreatedAt,
		})
	}
	return infos, nil
}

// Close releases resources held by the service. MemoryHistoryService
// holds none beyond its in-memory maps.
func (m *MemoryHistoryService) Close() error { return nil }
