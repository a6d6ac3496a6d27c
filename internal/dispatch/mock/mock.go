// Package mock provides a test double for the dispatch service.
package mock

import (
	"context"
	"sync"

	"github.com/parlatore/parlatore/internal/chat"
	"github.com/parlatore/parlatore/internal/dispatch"
)

// Service is a mock implementation of [dispatch.Service] for testing.
// Configure the exported result fields, then inspect the recorded calls.
// Zero value is usable.
type Service struct {
	mu sync.Mutex

	// ProcessResult is returned from ProcessAudio when ProcessError is nil.
	ProcessResult *dispatch.ProcessResult
	ProcessError  error

	// ProcessDelay, when non-nil, is received from before ProcessAudio
	// returns. Lets tests hold a dispatch in flight.
	ProcessDelay <-chan struct{}

	// ProcessIgnoreContext makes a pending ProcessAudio wait for
	// ProcessDelay even after ctx is cancelled, like a backend that is slow
	// to notice a dropped connection.
	ProcessIgnoreContext bool

	HomeworkResult string
	HomeworkError  error

	ChatNameResult string
	ChatNameError  error

	VerifyResult bool
	VerifyError  error

	// ProcessCalls records every ProcessAudio invocation in order.
	ProcessCalls  []ProcessCall
	HomeworkCalls []chat.Conversation
	ChatNameCalls []chat.Conversation
	VerifyCalls   []VerifyCall
}

var _ dispatch.Service = (*Service)(nil)

// ProcessCall captures the arguments of one ProcessAudio invocation.
type ProcessCall struct {
	WAV          []byte
	Conversation chat.Conversation
	Settings     dispatch.Settings
}

// VerifyCall captures the arguments of one VerifyAPIKey invocation.
type VerifyCall struct {
	Key   string
	Model string
}

// ProcessAudio implements [dispatch.Service].
func (s *Service) ProcessAudio(ctx context.Context, wav []byte, conv chat.Conversation, settings dispatch.Settings) (*dispatch.ProcessResult, error) {
	s.mu.Lock()
	s.ProcessCalls = append(s.ProcessCalls, ProcessCall{WAV: wav, Conversation: conv, Settings: settings})
	delay := s.ProcessDelay
	ignoreCtx := s.ProcessIgnoreContext
	result, err := s.ProcessResult, s.ProcessError
	s.mu.Unlock()

	if delay != nil {
		if ignoreCtx {
			<-delay
		} else {
			select {
			case <-delay:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateHomework implements [dispatch.Service].
func (s *Service) GenerateHomework(ctx context.Context, conv chat.Conversation, settings dispatch.Settings) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HomeworkCalls = append(s.HomeworkCalls, conv)
	return s.HomeworkResult, s.HomeworkError
}

// GenerateChatName implements [dispatch.Service].
func (s *Service) GenerateChatName(ctx context.Context, conv chat.Conversation, settings dispatch.Settings) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ChatNameCalls = append(s.ChatNameCalls, conv)
	return s.ChatNameResult, s.ChatNameError
}

// VerifyAPIKey implements [dispatch.Service].
func (s *Service) VerifyAPIKey(ctx context.Context, key, model string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.VerifyCalls = append(s.VerifyCalls, VerifyCall{Key: key, Model: model})
	return s.VerifyResult, s.VerifyError
}

// CallCountProcess returns the number of ProcessAudio calls so far.
func (s *Service) CallCountProcess() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ProcessCalls)
}
