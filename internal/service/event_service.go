package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"stream-analytics-service/internal/model"
)

// ValidationError represents caller-supplied input outside its allowed
// shape or range. It is raised to the caller, never captured into a
// response.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// EventService turns wire payloads into typed events and hands them to the
// ingestion worker.
type EventService interface {
	BuildEvent(req model.EventRequest) (model.Event, error)
	ProcessEvent(ctx context.Context, event model.Event)
	Stats() map[string]int64
}

type eventService struct {
	worker BatchEventWorker
	now    func() time.Time

	tipsProcessed      atomic.Int64
	messagesProcessed  atomic.Int64
	privatesProcessed  atomic.Int64
	purchasesProcessed atomic.Int64
	presencesProcessed atomic.Int64
}

// NewEventService constructs an eventService.
func NewEventService(worker BatchEventWorker) EventService {
	return &eventService{
		worker: worker,
		now:    time.Now,
	}
}

// BuildEvent validates and constructs a typed event from an incoming
// payload. It requires up front every attribute the point conversion needs,
// so nothing unconvertible ever reaches the write queue.
func (s *eventService) BuildEvent(req model.EventRequest) (model.Event, error) {
	base := model.EventBase{
		Time:        s.eventTime(req.Timestamp),
		Room:        req.Room,
		Broadcaster: req.Broadcaster,
	}
	if base.Broadcaster == "" {
		base.Broadcaster = req.Room
	}

	switch model.EventKind(req.Method) {
	case model.KindTip:
		return s.buildTip(req, base)
	case model.KindChatMessage:
		return s.buildChatMessage(req, base)
	case model.KindPrivateMessage:
		return s.buildPrivateMessage(req, base)
	case model.KindUserJoin:
		user, err := requireUser(req.User)
		if err != nil {
			return nil, err
		}
		return model.UserJoinEvent{EventBase: base, User: user}, nil
	case model.KindUserLeave:
		user, err := requireUser(req.User)
		if err != nil {
			return nil, err
		}
		return model.UserLeaveEvent{EventBase: base, User: user}, nil
	case model.KindMediaPurchase:
		return s.buildMediaPurchase(req, base)
	default:
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported event method: %q", req.Method)}
	}
}

// ProcessEvent enqueues a built event for batched persistence and bumps the
// processing counters.
func (s *eventService) ProcessEvent(ctx context.Context, event model.Event) {
	switch event.Kind() {
	case model.KindTip:
		s.tipsProcessed.Add(1)
	case model.KindChatMessage:
		s.messagesProcessed.Add(1)
	case model.KindPrivateMessage:
		s.privatesProcessed.Add(1)
	case model.KindMediaPurchase:
		s.purchasesProcessed.Add(1)
	case model.KindUserJoin, model.KindUserLeave:
		s.presencesProcessed.Add(1)
	}
	s.worker.Enqueue(event)
}

// Stats reports processing counters since startup.
func (s *eventService) Stats() map[string]int64 {
	return map[string]int64{
		"tips_processed":             s.tipsProcessed.Load(),
		"messages_processed":         s.messagesProcessed.Load(),
		"private_messages_processed": s.privatesProcessed.Load(),
		"media_purchases_processed":  s.purchasesProcessed.Load(),
		"presence_events_processed":  s.presencesProcessed.Load(),
	}
}

func (s *eventService) buildTip(req model.EventRequest, base model.EventBase) (model.Event, error) {
	user, err := requireUser(req.User)
	if err != nil {
		return nil, err
	}
	tip := subMap(req.Object, "tip")
	tokens := intField(tip, "tokens")
	if tokens < 0 {
		return nil, &ValidationError{Message: "tip tokens cannot be negative"}
	}
	return model.TipEvent{
		EventBase:   base,
		User:        user,
		Tokens:      tokens,
		Message:     stringField(tip, "message"),
		IsAnonymous: boolField(tip, "is_anonymous"),
	}, nil
}

func (s *eventService) buildChatMessage(req model.EventRequest, base model.EventBase) (model.Event, error) {
	user, err := requireUser(req.User)
	if err != nil {
		return nil, err
	}
	message := subMap(req.Object, "message")
	return model.ChatMessageEvent{
		EventBase: base,
		User:      user,
		Message:   stringField(message, "message"),
		Color:     stringField(message, "color"),
		Font:      stringField(message, "font"),
	}, nil
}

func (s *eventService) buildPrivateMessage(req model.EventRequest, base model.EventBase) (model.Event, error) {
	if req.FromUser == "" {
		return nil, &ValidationError{Message: "from_user is required"}
	}
	if req.ToUser == "" {
		return nil, &ValidationError{Message: "to_user is required"}
	}
	if req.Tokens < 0 {
		return nil, &ValidationError{Message: "tokens cannot be negative"}
	}
	return model.PrivateMessageEvent{
		EventBase: base,
		FromUser:  req.FromUser,
		ToUser:    req.ToUser,
		Message:   req.Message,
		Tokens:    req.Tokens,
	}, nil
}

func (s *eventService) buildMediaPurchase(req model.EventRequest, base model.EventBase) (model.Event, error) {
	user, err := requireUser(req.User)
	if err != nil {
		return nil, err
	}
	media := subMap(req.Object, "media")
	tokens := intField(media, "tokens")
	if tokens < 0 {
		return nil, &ValidationError{Message: "media tokens cannot be negative"}
	}
	return model.MediaPurchaseEvent{
		EventBase: base,
		User:      user,
		MediaType: stringField(media, "type"),
		MediaName: stringField(media, "name"),
		Tokens:    tokens,
	}, nil
}

// eventTime defaults a zero wire timestamp to the current instant, matching
// feeds that omit it.
func (s *eventService) eventTime(unix int64) time.Time {
	if unix == 0 {
		return s.now().UTC()
	}
	return time.Unix(unix, 0).UTC()
}

func requireUser(payload map[string]any) (model.User, error) {
	user := userFromPayload(payload)
	if user.Username == "" {
		return model.User{}, &ValidationError{Message: "user.username is required"}
	}
	return user, nil
}

func userFromPayload(payload map[string]any) model.User {
	gender := model.Gender(stringField(payload, "gender"))
	switch gender {
	case model.GenderMale, model.GenderFemale, model.GenderTrans, model.GenderCouple:
	default:
		gender = model.GenderUnknown
	}
	return model.User{
		Username:           stringField(payload, "username"),
		Gender:             gender,
		IsMod:              boolField(payload, "is_mod"),
		IsFan:              boolField(payload, "is_fan"),
		HasTokens:          boolField(payload, "has_tokens"),
		TippedRecently:     boolField(payload, "tipped_recently"),
		TippedALotRecently: boolField(payload, "tipped_alot_recently"),
		TippedTonsRecently: boolField(payload, "tipped_tons_recently"),
	}
}

func subMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	sub, _ := m[key].(map[string]any)
	return sub
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

// intField reads a numeric payload value; JSON numbers decode as float64.
func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
