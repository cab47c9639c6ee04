package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/intent"
	"dispatch/internal/utils"
)

const defaultParseTimeout = 15 * time.Second

// CommandRequest is a free-form operator message.
type CommandRequest struct {
	Text    string                 `json:"text"`
	Context domain.OperatorContext `json:"context"`
	UserID  int64                  `json:"-"`
}

// Command parses text with parser and runs the result through Request. A
// parser failure asks the operator to rephrase rather than failing.
func (s ActionService) Command(ctx context.Context, parser intent.Parser, req CommandRequest) ActionResponse {
	if strings.TrimSpace(req.Text) == "" {
		return ActionResponse{
			OK:      true,
			Status:  StatusNeedsClarification,
			Error:   domain.KindMissingParameter,
			Message: "command text is required",
		}
	}
	if parser == nil {
		return ActionResponse{Status: StatusFailed, Error: domain.KindInternal, Message: intent.ErrNoParser.Error()}
	}

	timeout := s.ParseTimeout
	if timeout <= 0 {
		timeout = defaultParseTimeout
	}
	parseCtx, cancel := context.WithTimeout(ctx, timeout)
	in, err := parser.Parse(parseCtx, req.Text, req.Context)
	cancel()
	if err != nil {
		utils.LogError(s.RequestID, "actions", "command", err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ActionResponse{Status: StatusFailed, Error: domain.KindInternal, Message: "command parsing timed out"}
		}
		return ActionResponse{
			OK:      true,
			Status:  StatusNeedsClarification,
			Error:   domain.KindInvalidParameter,
			Message: "could not understand the command, please rephrase",
		}
	}

	// zero on ActionRequest means a structured request; from a parser it
	// means no confidence at all
	conf := in.Confidence
	if conf <= 0 {
		conf = 0.01
	}
	return s.Request(ctx, ActionRequest{
		Action:      in.Action,
		TargetHints: in.TargetHints,
		Parameters:  RawParams(in.Parameters),
		Context:     req.Context,
		Confidence:  conf,
		UserID:      req.UserID,
	})
}
