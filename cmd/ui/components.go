package ui

import (
	"fmt"
	"strings"
)

// BlobState describes the outcome for one blob during checkout, gc, or
// verify.
type BlobState int

const (
	// StateRestored: the blob is present locally and was (or already is)
	// checked out in the working tree.
	StateRestored BlobState = iota
	// StateOrphan: the path holds an unexpanded placeholder because its
	// blob isn't in the local store yet.
	StateOrphan
	// StateCorrupt: the stored blob's content no longer hashes back to
	// its own digest.
	StateCorrupt
	// StateRemoved: gc deleted this blob because nothing references it.
	StateRemoved
)

// FormatBlobLine formats one digest/path pair with the icon and color
// matching its state.
func FormatBlobLine(state BlobState, digest, path string) string {
	short := digest
	if len(short) > 10 {
		short = short[:10]
	}
	switch state {
	case StateRestored:
		return fmt.Sprintf("  %s  %s  %s", Green(IconRestored), Cyan(short), path)
	case StateOrphan:
		return fmt.Sprintf("  %s  %s  %s", Yellow(IconOrphan), Cyan(short), path)
	case StateCorrupt:
		return fmt.Sprintf("  %s  %s  %s", Red(IconCorrupt), Cyan(short), path)
	case StateRemoved:
		return fmt.Sprintf("  %s  %s", Red(IconDeleted), Cyan(short))
	default:
		return path
	}
}

// SuccessMessage creates a success message with a checkmark icon.
func SuccessMessage(message string, details ...string) string {
	parts := []string{Green(IconCheckmark), Green(message)}
	for _, detail := range details {
		parts = append(parts, Blue(detail))
	}
	return strings.Join(parts, " ")
}

// ErrorMessage formats an error message in red.
func ErrorMessage(message string) string {
	return Red(message)
}

// WarningMessage formats a warning message in yellow.
func WarningMessage(message string) string {
	return Yellow(message)
}

// InfoMessage formats an info message in blue.
func InfoMessage(message string) string {
	return Blue(message)
}

// GCSummary formats a gc report: objects removed and bytes reclaimed.
func GCSummary(removed int, bytesFreed int64) string {
	var content strings.Builder
	content.WriteString(fmt.Sprintf("%s objects removed\n", Yellow(fmt.Sprintf("%d", removed))))
	content.WriteString(fmt.Sprintf("%s bytes freed", Cyan(fmt.Sprintf("%d", bytesFreed))))
	return ReportBox(content.String())
}

// VerifySummary formats a verify report: how many stored blobs were
// corrupt out of how many checked.
func VerifySummary(checked, corrupt int) string {
	if corrupt == 0 {
		return SuccessMessage(fmt.Sprintf("all %d objects verified", checked))
	}
	return ErrorMessage(fmt.Sprintf("%d of %d objects failed verification", corrupt, checked))
}

// FindLine formats one Find result row as a plain .gitattributes line:
// the path with "filter=fat -text", followed by a comment holding the
// max size seen and how many distinct sizes were observed across history.
func FindLine(path string, maxSize int64, count int) string {
	return fmt.Sprintf("%s filter=fat -text # %d %d", path, maxSize, count)
}
