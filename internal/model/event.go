package model

import (
	"fmt"
	"strconv"
	"time"
)

// EventKind identifies the streaming-platform event variants. The kind is
// fixed at construction time and selects the point conversion rule.
type EventKind string

const (
	KindTip            EventKind = "tip"
	KindChatMessage    EventKind = "chatMessage"
	KindPrivateMessage EventKind = "privateMessage"
	KindUserJoin       EventKind = "userJoin"
	KindUserLeave      EventKind = "userLeave"
	KindMediaPurchase  EventKind = "mediaPurchase"
)

// Measurement names used by the point conversion rules.
const (
	MeasurementEvents          = "stream_events"
	MeasurementPrivateMessages = "private_messages"
)

// Gender is the self-reported gender of a platform user.
type Gender string

const (
	GenderMale    Gender = "m"
	GenderFemale  Gender = "f"
	GenderTrans   Gender = "t"
	GenderCouple  Gender = "c"
	GenderUnknown Gender = "unknown"
)

// User carries the viewer identity attached to room events.
type User struct {
	Username           string
	Gender             Gender
	IsMod              bool
	IsFan              bool
	HasTokens          bool
	TippedRecently     bool
	TippedALotRecently bool
	TippedTonsRecently bool
}

// ConversionError reports an event that cannot be projected into a point
// because a required attribute is missing or invalid.
type ConversionError struct {
	Kind  EventKind
	Field string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s event to point: missing or invalid %s", e.Kind, e.Field)
}

// Event is a typed room event that can be projected into a storable point.
// ToPoint is pure: the same event always yields the same point, and no
// partial point is ever returned alongside an error.
type Event interface {
	Kind() EventKind
	EventTime() time.Time
	ToPoint() (Point, error)
}

// EventBase carries the attributes shared by every event variant.
type EventBase struct {
	Time        time.Time
	Room        string
	Broadcaster string
}

func (b EventBase) EventTime() time.Time { return b.Time }

func (b EventBase) require(kind EventKind) error {
	if b.Time.IsZero() {
		return &ConversionError{Kind: kind, Field: "timestamp"}
	}
	return nil
}

// TipEvent is a token tip sent to the broadcaster.
type TipEvent struct {
	EventBase
	User        User
	Tokens      int
	Message     string
	IsAnonymous bool
}

func (e TipEvent) Kind() EventKind { return KindTip }

func (e TipEvent) ToPoint() (Point, error) {
	if err := e.require(KindTip); err != nil {
		return Point{}, err
	}
	if e.User.Username == "" {
		return Point{}, &ConversionError{Kind: KindTip, Field: "username"}
	}
	if e.Tokens < 0 {
		return Point{}, &ConversionError{Kind: KindTip, Field: "tokens"}
	}
	return Point{
		Measurement: MeasurementEvents,
		Tags: map[string]string{
			"username":     e.User.Username,
			"broadcaster":  e.Broadcaster,
			"room":         e.Room,
			"method":       string(KindTip),
			"gender":       string(e.User.Gender),
			"is_anonymous": strconv.FormatBool(e.IsAnonymous),
		},
		Fields: map[string]any{
			"object.tip.tokens":       e.Tokens,
			"object.tip.message":      e.Message,
			"object.tip.is_anonymous": e.IsAnonymous,
			"user.is_mod":             e.User.IsMod,
			"user.has_tokens":         e.User.HasTokens,
		},
		Time: e.Time,
	}, nil
}

// ChatMessageEvent is a public chat message in the room.
type ChatMessageEvent struct {
	EventBase
	User    User
	Message string
	Color   string
	Font    string
}

func (e ChatMessageEvent) Kind() EventKind { return KindChatMessage }

func (e ChatMessageEvent) ToPoint() (Point, error) {
	if err := e.require(KindChatMessage); err != nil {
		return Point{}, err
	}
	if e.User.Username == "" {
		return Point{}, &ConversionError{Kind: KindChatMessage, Field: "username"}
	}
	return Point{
		Measurement: MeasurementEvents,
		Tags: map[string]string{
			"username":    e.User.Username,
			"broadcaster": e.Broadcaster,
			"room":        e.Room,
			"method":      string(KindChatMessage),
			"gender":      string(e.User.Gender),
		},
		Fields: map[string]any{
			"object.message.message": e.Message,
			"object.message.color":   e.Color,
			"object.message.font":    e.Font,
			"user.is_mod":            e.User.IsMod,
			"user.has_tokens":        e.User.HasTokens,
		},
		Time: e.Time,
	}, nil
}

// PrivateMessageEvent is a direct message between two users. It lands in its
// own measurement so inbox reads never scan room traffic.
type PrivateMessageEvent struct {
	EventBase
	FromUser string
	ToUser   string
	Message  string
	Tokens   int
}

func (e PrivateMessageEvent) Kind() EventKind { return KindPrivateMessage }

func (e PrivateMessageEvent) ToPoint() (Point, error) {
	if err := e.require(KindPrivateMessage); err != nil {
		return Point{}, err
	}
	if e.FromUser == "" {
		return Point{}, &ConversionError{Kind: KindPrivateMessage, Field: "from_user"}
	}
	if e.ToUser == "" {
		return Point{}, &ConversionError{Kind: KindPrivateMessage, Field: "to_user"}
	}
	return Point{
		Measurement: MeasurementPrivateMessages,
		Tags: map[string]string{
			"from_user":   e.FromUser,
			"to_user":     e.ToUser,
			"broadcaster": e.Broadcaster,
			"room":        e.Room,
		},
		Fields: map[string]any{
			"message": e.Message,
			"tokens":  e.Tokens,
		},
		Time: e.Time,
	}, nil
}

// UserJoinEvent records a viewer entering the room.
type UserJoinEvent struct {
	EventBase
	User User
}

func (e UserJoinEvent) Kind() EventKind { return KindUserJoin }

func (e UserJoinEvent) ToPoint() (Point, error) {
	return presencePoint(e.EventBase, e.User, KindUserJoin)
}

// UserLeaveEvent records a viewer leaving the room.
type UserLeaveEvent struct {
	EventBase
	User User
}

func (e UserLeaveEvent) Kind() EventKind { return KindUserLeave }

func (e UserLeaveEvent) ToPoint() (Point, error) {
	return presencePoint(e.EventBase, e.User, KindUserLeave)
}

// presencePoint is the shared conversion for join/leave events, which carry
// identical attributes and differ only in method.
func presencePoint(base EventBase, user User, kind EventKind) (Point, error) {
	if err := base.require(kind); err != nil {
		return Point{}, err
	}
	if user.Username == "" {
		return Point{}, &ConversionError{Kind: kind, Field: "username"}
	}
	return Point{
		Measurement: MeasurementEvents,
		Tags: map[string]string{
			"username":    user.Username,
			"broadcaster": base.Broadcaster,
			"room":        base.Room,
			"method":      string(kind),
			"gender":      string(user.Gender),
		},
		Fields: map[string]any{
			"user.is_mod":     user.IsMod,
			"user.has_tokens": user.HasTokens,
			"user.is_fan":     user.IsFan,
		},
		Time: base.Time,
	}, nil
}

// MediaPurchaseEvent records a viewer buying a photo set or video.
type MediaPurchaseEvent struct {
	EventBase
	User      User
	MediaType string
	MediaName string
	Tokens    int
}

func (e MediaPurchaseEvent) Kind() EventKind { return KindMediaPurchase }

func (e MediaPurchaseEvent) ToPoint() (Point, error) {
	if err := e.require(KindMediaPurchase); err != nil {
		return Point{}, err
	}
	if e.User.Username == "" {
		return Point{}, &ConversionError{Kind: KindMediaPurchase, Field: "username"}
	}
	if e.Tokens < 0 {
		return Point{}, &ConversionError{Kind: KindMediaPurchase, Field: "tokens"}
	}
	return Point{
		Measurement: MeasurementEvents,
		Tags: map[string]string{
			"username":    e.User.Username,
			"broadcaster": e.Broadcaster,
			"room":        e.Room,
			"method":      string(KindMediaPurchase),
			"media_type":  e.MediaType,
		},
		Fields: map[string]any{
			"object.media.name":   e.MediaName,
			"object.media.tokens": e.Tokens,
			"user.is_mod":         e.User.IsMod,
			"user.has_tokens":     e.User.HasTokens,
		},
		Time: e.Time,
	}, nil
}
