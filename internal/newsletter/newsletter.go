// Package newsletter keeps the waitlist.
package newsletter

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/s/peripatos/internal/logger"
	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/storage"
	"github.com/s/peripatos/internal/validation"
)

const collection = "subscribers"

const welcomeSubject = "Welcome to the Peripatos waitlist"

type Service struct {
	store  storage.Store
	mailer Mailer
	log    *logger.Logger
}

func NewService(store storage.Store, mailer Mailer, log *logger.Logger) *Service {
	return &Service{store: store, mailer: mailer, log: log.With("component", "newsletter")}
}

type SubscribeInput struct {
	Email          string `json:"email" validate:"required,email"`
	Name           string `json:"name" validate:"max=100"`
	ReceiveUpdates bool   `json:"receiveUpdates"`
}

// Subscribe adds an email to the waitlist. Subscribing again updates the
// existing entry; only the first subscription is welcomed by mail.
func (s *Service) Subscribe(ctx context.Context, in SubscribeInput) (*models.Subscriber, bool, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, false, err
	}

	existing, err := s.store.List(ctx, collection, storage.Query{
		Where: []storage.Filter{{Field: "email", Value: in.Email}},
	})
	if err != nil {
		return nil, false, fmt.Errorf("find subscriber: %w", err)
	}

	fields := storage.Fields{"email": in.Email, "name": in.Name, "receiveUpdates": in.ReceiveUpdates}
	if len(existing) > 0 {
		path := existing[0].Path
		if err := s.store.Update(ctx, path, fields); err != nil {
			return nil, false, fmt.Errorf("update subscriber: %w", err)
		}
		sub, err := s.get(ctx, path)
		return sub, false, err
	}

	fields["createdAt"] = storage.ServerTimestamp
	id, err := s.store.Create(ctx, collection, fields)
	if err != nil {
		s.log.Error("failed to store subscriber", "email", in.Email, "error", err)
		return nil, false, fmt.Errorf("create subscriber: %w", err)
	}
	sub, err := s.get(ctx, storage.Join(collection, id))
	if err != nil {
		return nil, true, err
	}

	if err := s.mailer.Send(ctx, welcome(sub)); err != nil {
		s.log.Warn("welcome mail failed", "email", sub.Email, "error", err)
	}
	s.log.Info("subscribed", "subscriber_id", id, "email", sub.Email)
	return sub, true, nil
}

func (s *Service) get(ctx context.Context, path string) (*models.Subscriber, error) {
	doc, err := s.store.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	var sub models.Subscriber
	if err := storage.DecodeDocument(doc, &sub); err != nil {
		return nil, fmt.Errorf("decode subscriber: %w", err)
	}
	return &sub, nil
}

func welcome(sub *models.Subscriber) Message {
	greeting := "Hello"
	if sub.Name != "" {
		greeting = "Hello " + sub.Name
	}
	text := greeting + ",\n\nThanks for joining the Peripatos waitlist. You will get early access to upcoming releases."
	if sub.ReceiveUpdates {
		text += " We will also keep you posted on what we are building."
	}
	return Message{
		ToName:    sub.Name,
		ToAddress: sub.Email,
		Subject:   welcomeSubject,
		Text:      text,
		HTML:      "<p>" + strings.ReplaceAll(html.EscapeString(text), "\n\n", "</p><p>") + "</p>",
	}
}
