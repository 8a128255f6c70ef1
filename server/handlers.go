package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/aymanh23/searchv2/pipeline"
	"github.com/aymanh23/searchv2/protocol"
)

func (c *Conn) registerHandlers() {
	c.handlers[protocol.TypeStartIntake] = c.handleStartIntake
	c.handlers[protocol.TypeAnswer] = c.handleAnswer
	c.handlers[protocol.TypeStatus] = c.handleStatus
	c.handlers[protocol.TypeCancel] = c.handleCancel
}

// handleStartIntake opens a session and runs the first extraction exchange.
// The response lands once the pipeline either suspends on a question,
// completes, or fails; pipeline events stream while it runs. The pipeline
// itself runs on a background context so a mid-exchange disconnect still
// leaves a finished record in the store.
func (c *Conn) handleStartIntake(env *protocol.Envelope) (*protocol.Envelope, error) {
	var payload protocol.StartIntakePayload
	if err := protocol.DecodePayload(env, &payload); err != nil {
		return nil, fmt.Errorf("decode start_intake: %w", err)
	}
	if payload.Description == "" {
		return protocol.NewError(env.RequestID, "invalid_request", "description is required")
	}

	update, err := c.registry.Start(context.Background(), c.userID, payload.Description)
	if err != nil {
		return protocol.NewError(env.RequestID, "pipeline_error", err.Error())
	}
	return protocol.NewResponse(env.RequestID, protocol.TypeIntakeUpdate, UpdateToPayload(update))
}

func (c *Conn) handleAnswer(env *protocol.Envelope) (*protocol.Envelope, error) {
	var payload protocol.AnswerPayload
	if err := protocol.DecodePayload(env, &payload); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	if payload.SessionID == "" {
		return protocol.NewError(env.RequestID, "invalid_request", "session_id is required")
	}
	if payload.Answer == "" {
		return protocol.NewError(env.RequestID, "invalid_request", "answer is required")
	}

	update, err := c.registry.Answer(context.Background(), c.userID, payload.SessionID, payload.Answer)
	if err != nil {
		if errors.Is(err, pipeline.ErrSessionNotFound) {
			return protocol.NewError(env.RequestID, "not_found", err.Error())
		}
		return protocol.NewError(env.RequestID, "pipeline_error", err.Error())
	}
	return protocol.NewResponse(env.RequestID, protocol.TypeIntakeUpdate, UpdateToPayload(update))
}

func (c *Conn) handleStatus(env *protocol.Envelope) (*protocol.Envelope, error) {
	var payload protocol.StatusPayload
	if err := protocol.DecodePayload(env, &payload); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}

	update, err := c.registry.Status(c.userID, payload.SessionID)
	if err != nil {
		if errors.Is(err, pipeline.ErrSessionNotFound) {
			return protocol.NewError(env.RequestID, "not_found", err.Error())
		}
		return nil, err
	}
	return protocol.NewResponse(env.RequestID, protocol.TypeIntakeUpdate, UpdateToPayload(update))
}

func (c *Conn) handleCancel(env *protocol.Envelope) (*protocol.Envelope, error) {
	var payload protocol.CancelPayload
	if err := protocol.DecodePayload(env, &payload); err != nil {
		return nil, fmt.Errorf("decode cancel: %w", err)
	}

	if err := c.registry.Cancel(c.userID, payload.SessionID); err != nil {
		if errors.Is(err, pipeline.ErrSessionNotFound) {
			return protocol.NewError(env.RequestID, "not_found", err.Error())
		}
		return nil, err
	}
	return protocol.NewResponse(env.RequestID, protocol.TypeCancelAck, &protocol.CancelAckPayload{
		SessionID: payload.SessionID,
		Cancelled: true,
	})
}
