// Package classify turns raw program log batches into typed events. It is a
// best-effort heuristic over human-readable log text, not a binary-protocol
// decoder: candidates are matched by substring and a length floor, never by
// checksum or account decoding (unless strict validation is enabled).
package classify

import (
	"strings"

	"github.com/mr-tron/base58"
)

// MintCreationMarker identifies a mint-creation instruction in log text.
// As a substring it also matches InitializeMint2 lines, which is intended.
const MintCreationMarker = "Instruction: InitializeMint"

// MinAddressLen is the heuristic floor for address-like tokens: anything
// shorter cannot be a base58-encoded 32-byte key.
const MinAddressLen = 32

// InstructionKind enumerates the SPL token instructions the classifier
// recognizes by name.
type InstructionKind int

const (
	KindUnknown InstructionKind = iota
	KindInitializeMint2
	KindInitializeMint
	KindInitializeAccount3
	KindInitializeAccount2
	KindInitializeAccount
	KindInitializeMultisig2
	KindInitializeMultisig
	KindTransferChecked
	KindTransfer
	KindApproveChecked
	KindApprove
	KindRevoke
	KindSetAuthority
	KindMintToChecked
	KindMintTo
	KindBurnChecked
	KindBurn
	KindCloseAccount
	KindFreezeAccount
	KindThawAccount
	KindSyncNative
)

// instructionMarkers maps log markers to kinds. Scanned in declaration
// order, so the suffixed variants must come before their prefixes
// (InitializeMint2 before InitializeMint, TransferChecked before Transfer).
var instructionMarkers = []struct {
	kind   InstructionKind
	marker string
}{
	{KindInitializeMint2, "InitializeMint2"},
	{KindInitializeMint, "InitializeMint"},
	{KindInitializeAccount3, "InitializeAccount3"},
	{KindInitializeAccount2, "InitializeAccount2"},
	{KindInitializeAccount, "InitializeAccount"},
	{KindInitializeMultisig2, "InitializeMultisig2"},
	{KindInitializeMultisig, "InitializeMultisig"},
	{KindTransferChecked, "TransferChecked"},
	{KindTransfer, "Transfer"},
	{KindApproveChecked, "ApproveChecked"},
	{KindApprove, "Approve"},
	{KindRevoke, "Revoke"},
	{KindSetAuthority, "SetAuthority"},
	{KindMintToChecked, "MintToChecked"},
	{KindMintTo, "MintTo"},
	{KindBurnChecked, "BurnChecked"},
	{KindBurn, "Burn"},
	{KindCloseAccount, "CloseAccount"},
	{KindFreezeAccount, "FreezeAccount"},
	{KindThawAccount, "ThawAccount"},
	{KindSyncNative, "SyncNative"},
}

var kindNames = map[InstructionKind]string{
	KindUnknown:             "Unknown",
	KindInitializeMint2:     "InitializeMint2",
	KindInitializeMint:      "InitializeMint",
	KindInitializeAccount3:  "InitializeAccount3",
	KindInitializeAccount2:  "InitializeAccount2",
	KindInitializeAccount:   "InitializeAccount",
	KindInitializeMultisig2: "InitializeMultisig2",
	KindInitializeMultisig:  "InitializeMultisig",
	KindTransferChecked:     "TransferChecked",
	KindTransfer:            "Transfer",
	KindApproveChecked:      "ApproveChecked",
	KindApprove:             "Approve",
	KindRevoke:              "Revoke",
	KindSetAuthority:        "SetAuthority",
	KindMintToChecked:       "MintToChecked",
	KindMintTo:              "MintTo",
	KindBurnChecked:         "BurnChecked",
	KindBurn:                "Burn",
	KindCloseAccount:        "CloseAccount",
	KindFreezeAccount:       "FreezeAccount",
	KindThawAccount:         "ThawAccount",
	KindSyncNative:          "SyncNative",
}

func (k InstructionKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// EventKind tags classification outcomes.
type EventKind int

const (
	// EventNone means no recognized instruction was present.
	EventNone EventKind = iota

	// EventInstruction is a recognized named instruction with no further
	// business logic attached; callers only log it.
	EventInstruction

	// EventMintCreated is a mint-creation instruction. Mint may be empty
	// when address extraction failed, which is a legitimate partial
	// result, distinguishable from EventNone.
	EventMintCreated
)

// Event is the result of classifying one log batch.
type Event struct {
	Kind        EventKind
	Instruction InstructionKind // set for EventInstruction
	Mint        string          // set for EventMintCreated, "" if unparseable
}

// LogBatch is one ordered set of log lines emitted at a slot. Read-only;
// the classifier owns it for the duration of one Classify call.
type LogBatch struct {
	Slot  int64
	Lines []string
}

// Classifier implements the log-text instruction classifier.
type Classifier struct {
	strict bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithStrictValidation makes extraction reject candidates that do not
// base58-decode to 32 bytes. Off by default: the heuristic length floor is
// the source behavior.
func WithStrictValidation() Option {
	return func(c *Classifier) {
		c.strict = true
	}
}

// New creates a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify inspects one batch of log lines and returns the event it
// represents. Pure: no I/O, no logging.
func (c *Classifier) Classify(batch LogBatch) Event {
	for i, line := range batch.Lines {
		if strings.Contains(line, MintCreationMarker) {
			return Event{
				Kind: EventMintCreated,
				Mint: c.extractMint(line, batch.Lines[i+1:]),
			}
		}
	}

	// Generic dispatch: first table entry with a matching line wins.
	for _, entry := range instructionMarkers {
		for _, line := range batch.Lines {
			if strings.Contains(line, entry.marker) {
				return Event{Kind: EventInstruction, Instruction: entry.kind}
			}
		}
	}

	return Event{Kind: EventNone}
}

// extractMint tries the two ordered extraction strategies: the token after
// "Mint" on the creation line itself, then the token after "Mint:" on any
// subsequent line of the batch. Returns "" when neither yields a candidate
// passing the length floor.
func (c *Classifier) extractMint(line string, rest []string) string {
	if addr := c.candidateAfter(line, "Mint"); addr != "" {
		return addr
	}

	for _, next := range rest {
		if strings.Contains(next, "Mint:") {
			if addr := c.candidateAfter(next, "Mint:"); addr != "" {
				return addr
			}
		}
	}

	return ""
}

// candidateAfter returns the first whitespace-delimited token following an
// occurrence of sep in line that passes the address checks. Scanning every
// occurrence matters because the creation line itself contains "Mint" inside
// the instruction name.
func (c *Classifier) candidateAfter(line, sep string) string {
	rest := line
	for {
		_, after, found := strings.Cut(rest, sep)
		if !found {
			return ""
		}

		if fields := strings.Fields(after); len(fields) > 0 {
			candidate := fields[0]
			if len(candidate) >= MinAddressLen &&
				(!c.strict || isValidAddress(candidate)) {
				return candidate
			}
		}
		rest = after
	}
}

// isValidAddress checks that a candidate base58-decodes to a 32-byte key.
func isValidAddress(candidate string) bool {
	decoded, err := base58.Decode(candidate)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}
