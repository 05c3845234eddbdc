package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"dramclub/internal/model"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, note model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return n.err
}

func (n *fakeNotifier) calls() []model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.Notification(nil), n.sent...)
}

var errBoom = errors.New("boom")
