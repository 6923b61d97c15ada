package intake

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medintake/internal/engine"
)

// ReportSender dispatches the finished report to the clinician-facing
// channel. Defined here to decouple from the report implementation.
type ReportSender interface {
	SendClinicianReport(ctx context.Context, c Conversation) error
}

// Transcriber converts uploaded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, fileName string) (string, error)
}

// TurnResponse is what the host returns for one processed patient turn.
type TurnResponse struct {
	Response string          `json:"response"`
	Complete bool            `json:"complete"`
	Category engine.Category `json:"category,omitempty"`
	UserText string          `json:"user_text,omitempty"`
}

// Status summarizes where a conversation stands.
type Status struct {
	MessageCount    int             `json:"message_count"`
	PatientTurns    int             `json:"patient_turns"`
	IsComplete      bool            `json:"is_complete"`
	CurrentCategory engine.Category `json:"current_category,omitempty"`
}

type Service interface {
	CreateConversation(ctx context.Context, patientID uuid.UUID) (*Conversation, string, error)
	ProcessMessage(ctx context.Context, conversationID uuid.UUID, text string) (*TurnResponse, error)
	ProcessAudio(ctx context.Context, conversationID uuid.UUID, audio []byte, fileName string) (*TurnResponse, error)
	GetStatus(ctx context.Context, conversationID uuid.UUID) (*Status, error)
}

type service struct {
	repo        Repository
	orch        *engine.Orchestrator
	reports     ReportSender
	transcriber Transcriber
	log         zerolog.Logger
}

func NewService(repo Repository, orch *engine.Orchestrator, reports ReportSender, transcriber Transcriber, log zerolog.Logger) Service {
	return &service{
		repo:        repo,
		orch:        orch,
		reports:     reports,
		transcriber: transcriber,
		log:         log,
	}
}

func (s *service) CreateConversation(ctx context.Context, patientID uuid.UUID) (*Conversation, string, error) {
	c := &Conversation{
		ID:        uuid.New(),
		PatientID: patientID,
		History:   engine.History{}.Append(engine.RoleClinicianAgent, engine.OpeningQuestion),
		Engine:    *engine.NewState(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, "", err
	}
	return c, engine.OpeningQuestion, nil
}

// ProcessMessage runs one engine turn for the conversation and persists the
// outcome. Turns for one conversation are serialized by the load-save cycle
// on its row; concurrent conversations are independent.
func (s *service) ProcessMessage(ctx context.Context, conversationID uuid.UUID, text string) (*TurnResponse, error) {
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	history, outcome, err := s.orch.ProcessTurn(ctx, conv.History, text, &conv.Engine)
	if err != nil {
		return nil, err
	}
	conv.History = history
	if outcome.Complete {
		conv.IsComplete = true
	}
	if outcome.Report {
		conv.Report = outcome.Response
	}

	if err := s.repo.Save(ctx, conv); err != nil {
		return nil, err
	}

	if outcome.Report {
		// Dispatch to the clinician off the request path, detached from the
		// request context, as the PDF and webhook round-trip can be slow.
		go func(c Conversation) {
			bgCtx := context.Background()
			if err := s.reports.SendClinicianReport(bgCtx, c); err != nil {
				s.log.Error().Err(err).
					Str("conversation_id", c.ID.String()).
					Msg("clinician report dispatch failed")
			}
		}(*conv)
	}

	return &TurnResponse{
		Response: outcome.Response,
		Complete: outcome.Complete,
		Category: outcome.Category,
	}, nil
}

func (s *service) ProcessAudio(ctx context.Context, conversationID uuid.UUID, audio []byte, fileName string) (*TurnResponse, error) {
	text, err := s.transcriber.Transcribe(ctx, audio, fileName)
	if err != nil {
		return nil, err
	}
	if text == "" {
		// Silence or no speech detected; not a turn.
		return &TurnResponse{}, nil
	}

	resp, err := s.ProcessMessage(ctx, conversationID, text)
	if err != nil {
		return nil, err
	}
	resp.UserText = text
	return resp, nil
}

func (s *service) GetStatus(ctx context.Context, conversationID uuid.UUID) (*Status, error) {
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return &Status{
		MessageCount:    len(conv.History),
		PatientTurns:    conv.History.PatientTurns(),
		IsComplete:      conv.IsComplete,
		CurrentCategory: conv.Engine.LastCategory,
	}, nil
}
