package transport

import (
	"fmt"
	"strings"

	"github.com/spec-kit/support-relay/internal/domain"
)

// InboundKind tags the payload of an inbound event.
type InboundKind string

const (
	InboundContent    InboundKind = "content"
	InboundNavigation InboundKind = "navigation"
	InboundCategory   InboundKind = "category"
	InboundDelegation InboundKind = "delegation"
	InboundCommand    InboundKind = "command"
)

// Navigation is a control signal sent from a keyboard or button.
type Navigation string

const (
	NavHome             Navigation = "home"
	NavBack             Navigation = "back"
	NavEndSubmission    Navigation = "end_submission"
	NavCancelSubmission Navigation = "cancel_submission"
	NavEndConversation  Navigation = "end_conversation"
)

// Valid reports whether n is a known signal.
func (n Navigation) Valid() bool {
	switch n {
	case NavHome, NavBack, NavEndSubmission, NavCancelSubmission, NavEndConversation:
		return true
	}
	return false
}

// DelegationChoice is the payload of a delegation selection.
type DelegationChoice struct {
	TicketID string
	AdminID  domain.Identity
}

const (
	delegationPrefix = "delegate:"
	categoryPrefix   = "category:"
	navigationPrefix = "nav:"
)

// CategoryData encodes a category selection as choice data.
func CategoryData(category string) string {
	return categoryPrefix + category
}

// NavigationData encodes a navigation signal as choice data.
func NavigationData(n Navigation) string {
	return navigationPrefix + string(n)
}

// DecodeChoice turns choice data sent back by a participant into an inbound
// event. It reports false for data it does not recognize.
func DecodeChoice(sender domain.Identity, hint, data string) (Inbound, bool) {
	in := Inbound{Sender: sender, SenderHint: hint}
	switch {
	case strings.HasPrefix(data, delegationPrefix):
		choice, ok := ParseDelegationData(data)
		if !ok {
			return Inbound{}, false
		}
		in.Kind = InboundDelegation
		in.Delegation = choice
	case strings.HasPrefix(data, categoryPrefix):
		in.Kind = InboundCategory
		in.Category = strings.TrimPrefix(data, categoryPrefix)
		if in.Category == "" {
			return Inbound{}, false
		}
	case strings.HasPrefix(data, navigationPrefix):
		in.Kind = InboundNavigation
		in.Navigation = Navigation(strings.TrimPrefix(data, navigationPrefix))
		if !in.Navigation.Valid() {
			return Inbound{}, false
		}
	default:
		return Inbound{}, false
	}
	return in, true
}

// DelegationData encodes a delegation choice as opaque choice data.
func DelegationData(admin domain.Identity, ticketID string) string {
	return delegationPrefix + admin.String() + ":" + ticketID
}

// ParseDelegationData decodes data produced by DelegationData.
func ParseDelegationData(data string) (DelegationChoice, bool) {
	rest, ok := strings.CutPrefix(data, delegationPrefix)
	if !ok {
		return DelegationChoice{}, false
	}
	admin, ticketID, ok := strings.Cut(rest, ":")
	if !ok || admin == "" || ticketID == "" {
		return DelegationChoice{}, false
	}
	return DelegationChoice{TicketID: ticketID, AdminID: domain.Identity(admin)}, true
}

// Inbound is one event received from a chat participant.
type Inbound struct {
	Sender     domain.Identity
	SenderHint string
	Kind       InboundKind

	Item       domain.ContentItem
	Navigation Navigation
	Category   string
	Delegation DelegationChoice
	Command    string
	Args       []string
}

// InboundFrame is the JSON envelope participants send over the gateway and
// the HTTP events endpoint.
type InboundFrame struct {
	Type    string        `json:"type"`
	Content *ContentFrame `json:"content,omitempty"`
	Data    string        `json:"data,omitempty"`
	Command string        `json:"command,omitempty"`
	Args    []string      `json:"args,omitempty"`
}

// Inbound decodes the frame on behalf of sender.
func (f InboundFrame) Inbound(sender domain.Identity, hint string) (Inbound, error) {
	switch f.Type {
	case "content":
		if f.Content == nil {
			return Inbound{}, fmt.Errorf("content frame without content")
		}
		item, err := f.Content.Decode()
		if err != nil {
			return Inbound{}, err
		}
		return Inbound{Sender: sender, SenderHint: hint, Kind: InboundContent, Item: item}, nil
	case "choice":
		in, ok := DecodeChoice(sender, hint, f.Data)
		if !ok {
			return Inbound{}, fmt.Errorf("unrecognized choice %q", f.Data)
		}
		return in, nil
	case "command":
		name := strings.TrimPrefix(strings.TrimSpace(f.Command), "/")
		if name == "" {
			return Inbound{}, fmt.Errorf("command frame without command")
		}
		return Inbound{Sender: sender, SenderHint: hint, Kind: InboundCommand, Command: name, Args: f.Args}, nil
	default:
		return Inbound{}, fmt.Errorf("unknown frame type %q", f.Type)
	}
}

// OutboundFrame is the JSON envelope delivered to participants.
type OutboundFrame struct {
	Type     string        `json:"type"`
	Content  *ContentFrame `json:"content,omitempty"`
	Text     string        `json:"text,omitempty"`
	Emphasis bool          `json:"emphasis,omitempty"`
	Choices  []Choice      `json:"choices,omitempty"`
}

// ContentOutbound wraps a relayed content item.
func ContentOutbound(item domain.ContentItem) OutboundFrame {
	frame := EncodeContent(item)
	return OutboundFrame{Type: "content", Content: &frame}
}

// NoticeOutbound wraps a bot-authored text.
func NoticeOutbound(text string, opts ...TextOption) OutboundFrame {
	o := ApplyTextOptions(opts...)
	return OutboundFrame{Type: "notice", Text: text, Emphasis: o.Emphasis, Choices: o.Choices}
}
