package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	authrepo "taskflow-backend/internal/auth/repository"
	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/lifecycle"
	"taskflow-backend/internal/task/planner"
	"taskflow-backend/pkg/clock"
	"taskflow-backend/pkg/fcm"
)

const (
	EventStatusChanged = "task.status_changed"
	EventPlanAccepted  = "planner.plan_accepted"

	deliveryTimeout = 10 * time.Second
)

// Publisher delivers serialized events to the event stream
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// PushSender sends a notification to devices and reports the tokens that failed
type PushSender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// TaskEvent is the payload published for every committed task event
type TaskEvent struct {
	Type                string               `json:"type"`
	UserID              string               `json:"user_id"`
	TaskID              string               `json:"task_id,omitempty"`
	Title               string               `json:"title,omitempty"`
	From                domain.TaskStatus    `json:"from,omitempty"`
	To                  domain.TaskStatus    `json:"to,omitempty"`
	ReflectionTriggered bool                 `json:"reflection_triggered,omitempty"`
	Reopened            bool                 `json:"reopened,omitempty"`
	Assignments         []planner.Assignment `json:"assignments,omitempty"`
	OccurredAt          time.Time            `json:"occurred_at"`
}

// Service fans task events out to Pub/Sub and FCM. Either side may be nil.
// Delivery runs in the background; failures are logged and never reach
// the caller.
type Service struct {
	publisher Publisher
	push      PushSender
	fcmRepo   authrepo.FCMTokenRepository
	clock     clock.Clock

	inflight sync.WaitGroup
}

func NewService(publisher Publisher, push PushSender, fcmRepo authrepo.FCMTokenRepository, clk clock.Clock) *Service {
	return &Service{
		publisher: publisher,
		push:      push,
		fcmRepo:   fcmRepo,
		clock:     clk,
	}
}

func (s *Service) StatusChanged(ctx context.Context, task *domain.Task, change lifecycle.Result) {
	task = task.Clone()
	event := TaskEvent{
		Type:                EventStatusChanged,
		UserID:              task.UserID,
		TaskID:              task.ID,
		Title:               task.Title,
		From:                change.PreviousStatus,
		To:                  task.Status,
		ReflectionTriggered: change.ReflectionTriggered,
		Reopened:            change.Reopened,
		OccurredAt:          s.clock.Now(),
	}

	s.deliver(ctx, func(ctx context.Context) {
		s.publish(ctx, event)
		if change.ReflectionTriggered {
			s.sendReflectionPrompt(ctx, task)
		}
	})
}

func (s *Service) PlanAccepted(ctx context.Context, userID string, assignments []planner.Assignment) {
	event := TaskEvent{
		Type:        EventPlanAccepted,
		UserID:      userID,
		Assignments: append([]planner.Assignment(nil), assignments...),
		OccurredAt:  s.clock.Now(),
	}

	s.deliver(ctx, func(ctx context.Context) {
		s.publish(ctx, event)
	})
}

// deliver runs send off the request path. The request context is detached
// so a finished response does not cancel delivery.
func (s *Service) deliver(ctx context.Context, send func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		defer cancel()
		send(ctx)
	}()
}

// Wait blocks until every started delivery has finished
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) publish(ctx context.Context, event TaskEvent) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Notification] Failed to encode %s event: %v", event.Type, err)
		return
	}
	attrs := map[string]string{
		"type":    event.Type,
		"user_id": event.UserID,
	}
	if err := s.publisher.Publish(ctx, data, attrs); err != nil {
		log.Printf("[Notification] Failed to publish %s for user %s: %v", event.Type, event.UserID, err)
	}
}

// sendReflectionPrompt asks the owner to reflect on a task that was
// completed with a checklist
func (s *Service) sendReflectionPrompt(ctx context.Context, task *domain.Task) {
	if s.push == nil || s.fcmRepo == nil {
		return
	}

	tokens, err := s.fcmRepo.GetTokensByUserID(task.UserID)
	if err != nil {
		log.Printf("[FCM] Error getting FCM tokens for user %s: %v", task.UserID, err)
		return
	}
	if len(tokens) == 0 {
		log.Printf("[FCM] No tokens found for user %s, skipping reflection prompt", task.UserID)
		return
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	failedTokens, err := s.push.SendToDevices(ctx, tokenStrings, reflectionPrompt(task))
	if err != nil {
		log.Printf("[FCM] Error sending reflection prompt: %v", err)
		return
	}

	failed := make(map[string]bool, len(failedTokens))
	if len(failedTokens) > 0 {
		log.Printf("[FCM] Cleaning up %d failed tokens", len(failedTokens))
		for _, token := range failedTokens {
			failed[token] = true
			if err := s.fcmRepo.DeleteToken(token); err != nil {
				log.Printf("[FCM] Failed to delete token: %v", err)
			}
		}
	}

	delivered := make([]string, 0, len(tokenStrings))
	for _, token := range tokenStrings {
		if !failed[token] {
			delivered = append(delivered, token)
		}
	}
	if err := s.fcmRepo.MarkNotified(delivered, s.clock.Now()); err != nil {
		log.Printf("[FCM] Failed to stamp delivered tokens: %v", err)
	}
}

func reflectionPrompt(task *domain.Task) fcm.NotificationData {
	open := 0
	for _, st := range task.Subtasks {
		if !st.IsDone {
			open++
		}
	}

	title := truncate(task.Title, 80)
	body := "All subtasks done. How did it go?"
	if open > 0 {
		body = fmt.Sprintf("%d of %d subtasks left open. Reflect or create a follow-up?", open, len(task.Subtasks))
	}
	clickAction := fmt.Sprintf("/tasks/%s/reflection", task.ID)

	return fcm.NotificationData{
		Title: "Completed: " + title,
		Body:  body,
		Data: map[string]string{
			"type":         "reflection_prompt",
			"task_id":      task.ID,
			"open_count":   fmt.Sprintf("%d", open),
			"click_action": clickAction,
		},
		ClickAction: clickAction,
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
