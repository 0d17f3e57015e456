package rules

import (
	"errors"
	"fmt"
	"sync"
)

// ErrResolutionDepth is returned when a resolution begins while the
// maximum number of resolutions is already in progress.
var ErrResolutionDepth = errors.New("resolution depth exceeded")

// ResolutionContext tracks which trigger or activation is currently
// resolving.
type ResolutionContext struct {
	mu             sync.RWMutex
	resolvingStack []string
	maxDepth       int
}

// NewResolutionContext creates a context allowing maxDepth nested
// resolutions; 1 forbids nesting entirely.
func NewResolutionContext(maxDepth int) *ResolutionContext {
	if maxDepth <= 0 {
		maxDepth = 1
	}
	return &ResolutionContext{
		resolvingStack: make([]string, 0, maxDepth),
		maxDepth:       maxDepth,
	}
}

// BeginResolution marks the start of resolving itemID.
func (rc *ResolutionContext) BeginResolution(itemID string) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.resolvingStack) >= rc.maxDepth {
		return fmt.Errorf("%w: %s while %s resolves", ErrResolutionDepth, itemID, rc.resolvingStack[len(rc.resolvingStack)-1])
	}
	rc.resolvingStack = append(rc.resolvingStack, itemID)
	return nil
}

// EndResolution marks the end of resolving itemID.
func (rc *ResolutionContext) EndResolution(itemID string) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.resolvingStack) == 0 {
		return fmt.Errorf("no item currently resolving")
	}
	current := rc.resolvingStack[len(rc.resolvingStack)-1]
	if current != itemID {
		return fmt.Errorf("resolution mismatch: expected %s, got %s", current, itemID)
	}
	rc.resolvingStack = rc.resolvingStack[:len(rc.resolvingStack)-1]
	return nil
}

// IsResolving returns true if something is currently resolving.
func (rc *ResolutionContext) IsResolving() bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.resolvingStack) > 0
}

// CurrentID returns the innermost resolving item, or "".
func (rc *ResolutionContext) CurrentID() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if len(rc.resolvingStack) == 0 {
		return ""
	}
	return rc.resolvingStack[len(rc.resolvingStack)-1]
}

// Depth returns the current nesting depth.
func (rc *ResolutionContext) Depth() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.resolvingStack)
}
