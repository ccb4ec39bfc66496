// Package checkpoint keeps a journal of the current or most recent sync run.
//
// The queue worksheet stays the source of truth for what still needs work;
// the journal only records progress so an operator can see how far a run got
// and which items could not be committed. It tracks:
//   - Batches processed and per-outcome counts
//   - Identifiers whose status commit failed
//   - Whether the run finished or was interrupted
//
// Journals are stored in platform-specific data directories:
//   - Linux: ~/.local/share/profilesync/checkpoints/
//   - macOS: ~/Library/Application Support/profilesync/checkpoints/
//   - Windows: %APPDATA%/profilesync/checkpoints/
//
// Files are saved atomically and carry a version for future compatibility.
package checkpoint
