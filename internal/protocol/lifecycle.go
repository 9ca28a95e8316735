package protocol

import "github.com/fkhayef/grpprotocol/internal/apperr"

// Status is the lifecycle state of a protocol
type Status string

const (
	StatusDraft    Status = "draft"
	StatusReady    Status = "ready"
	StatusExported Status = "exported"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusReady, StatusExported:
		return true
	}
	return false
}

// Trigger names what causes a status change
type Trigger int

const (
	// TriggerEdit is a regular field update by the user
	TriggerEdit Trigger = iota
	// TriggerExport is a successful PDF generation
	TriggerExport
	// TriggerUpload is a direct upload of the exported file
	TriggerUpload
)

var (
	ErrProtocolLocked    = apperr.Locked("Das Protokoll wurde bereits exportiert und kann nicht mehr bearbeitet werden.")
	ErrInvalidTransition = apperr.Validation("Dieser Statuswechsel ist nicht erlaubt.")
)

// AssertMutable fails with ErrProtocolLocked once p is exported
func AssertMutable(p *Protocol) error {
	if p.Status == StatusExported {
		return ErrProtocolLocked
	}
	return nil
}

// CanTransition reports whether trigger may move a protocol from one status
// to another. Edits switch between draft and ready. Only an export or an
// upload reaches exported, and exported is left by nothing.
func CanTransition(from, to Status, by Trigger) bool {
	switch by {
	case TriggerEdit:
		if from == StatusExported {
			return false
		}
		return to == StatusDraft || to == StatusReady
	case TriggerExport, TriggerUpload:
		return to == StatusExported
	}
	return false
}
