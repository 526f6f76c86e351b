package transport

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// PatchManager wraps diff-match-patch for MemoryHistoryService's patch
// storage mode: instead of keeping every version's full content, it
// keeps only the patch from the previous operation event's content,
// replayed forward by ReconstructSnapshot.
type PatchManager struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewPatchManager creates a new patch manager.
func NewPatchManager() *PatchManager {
	return &PatchManager{
		dmp: diffmatchpatch.New(),
	}
}

// PatchResult represents the result of computing a patch between two texts.
type PatchResult struct {
	Patch      string // Patch in text format (compact)
	PatchSize  int    // Size of patch in bytes
	OldSize    int    // Size of old text in bytes
	NewSize    int    // Size of new text in bytes
	SavedBytes int    // Bytes saved by using patch instead of full content
}

// ApplyPatchResult represents the result of applying a patch.
type ApplyPatchResult struct {
	Content     string // Reconstructed content
	Success     bool   // Whether patch application succeeded
	PatchesApplied int  // Number of patches applied
}

// ComputePatch computes a patch from oldText to newText.
// Returns a PatchResult containing the patch in compact text format.
func (pm *PatchManager) ComputePatch(oldText, newText string) *PatchResult {
	// 1. Compute diffs between the texts
	// The third parameter (checklines) is false: a plain character diff
	diffs := pm.dmp.DiffMain(oldText, newText, false)

	// 2. Create patch from diffs
	patch := pm.dmp.PatchMake(oldText, diffs)

	// 3. Convert to text format for compact storage
	patchText := pm.dmp.PatchToText(patch)

	oldSize := len(oldText)
	newSize := len(newText)
	patchSize := len(patchText)

	return &PatchResult{
		Patch:      patchText,
		PatchSize:  patchSize,
		OldSize:    oldSize,
		NewSize:    newSize,
		SavedBytes: newSize - patchSize,
	}
}

// ApplyPatch applies a patch to oldText to reconstruct newText.
// Returns ApplyPatchResult with the reconstructed content.
func (pm *PatchManager) ApplyPatch(oldText, patchText string) *ApplyPatchResult {
	// 1. Parse patch from text format
	patches, _ := pm.dmp.PatchFromText(patchText)

	// 2. Apply patches to old text
	newText, applied := pm.dmp.PatchApply(patches, oldText)

	// Count successfully applied patches
	appliedCount := 0
	for _, success := range applied {
		if success {
			appliedCount++
		}
	}

	// Check if all patches were applied successfully
	allSuccess := appliedCount == len(applied)

	return &ApplyPatchResult{
		Content:        newText,
		Success:        allSuccess,
		PatchesApplied: appliedCount,
	}
}

// RollbackPatch computes a patch that undoes a previously applied patch:
// given the text before the patch and the patch itself, it replays the
// patch forward to find the after-text, then diffs backward. Used by
// MemoryHistoryService when a client asks to revert a single version
// in the middle of a patch chain rather than jumping to a snapshot.
func (pm *PatchManager) RollbackPatch(beforeText, appliedPatchText string) string {
	result := pm.ApplyPatch(beforeText, appliedPatchText)
	if !result.Success {
		return ""
	}
	reverse := pm.ComputePatch(result.Content, beforeText)
	return reverse.Patch
}
