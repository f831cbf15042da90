package webrtcdirect

import (
	"fmt"
	"time"
)

// DialState is a step of an outbound dial.
//
// States are reached strictly in declaration order,
// except that [DialFailed] may follow any non-terminal state.
type DialState uint8

const (
	DialInit DialState = iota
	DialCertificateReady
	DialOfferCreated
	DialAnswerSynthesized
	DialRemoteDescriptionSet
	DialDataChannelOpen
	DialSecureChannelEstablished

	// Terminal success.
	DialUpgraded

	// Terminal failure.
	DialFailed
)

func (s DialState) String() string {
	switch s {
	case DialInit:
		return "init"
	case DialCertificateReady:
		return "certificate_ready"
	case DialOfferCreated:
		return "offer_created"
	case DialAnswerSynthesized:
		return "answer_synthesized"
	case DialRemoteDescriptionSet:
		return "remote_description_set"
	case DialDataChannelOpen:
		return "data_channel_open"
	case DialSecureChannelEstablished:
		return "secure_channel_established"
	case DialUpgraded:
		return "upgraded"
	case DialFailed:
		return "failed"
	default:
		return fmt.Sprintf("DialState(%d)", uint8(s))
	}
}

// Terminal reports whether s ends a dial.
func (s DialState) Terminal() bool {
	return s == DialUpgraded || s == DialFailed
}

// StateTransition records when a dial reached a state.
type StateTransition struct {
	State DialState
	At    time.Time
}
