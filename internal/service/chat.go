package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"perfreport/internal/domain"
	"perfreport/internal/report"
	"perfreport/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultChatReportName = "Chat Generated Report"

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Name      string `json:"name,omitempty"`
}

type ChatResult struct {
	SessionID string           `json:"session_id"`
	Upload    domain.Upload    `json:"upload"`
	Report    domain.Report    `json:"report"`
	Rows      []map[string]any `json:"report_data"`
}

// ChatReport asks the report agent to build a report from a prompt, validates
// the returned rows and stores them as a CHAT_REPORT batch. The period is
// borrowed from the newest CRM batch.
func (s *Service) ChatReport(ctx context.Context, req ChatRequest) (ChatResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return ChatResult{}, invalidf("message is required")
	}
	if s.agent == nil {
		return ChatResult{}, ErrAgentDisabled
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = DefaultChatReportName
	}

	crm, err := s.store.LatestUpload(ctx, domain.UploadTypeCRM)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ChatResult{}, invalidf("a CRM upload is required before chat reports")
		}
		return ChatResult{}, err
	}

	reply, err := s.agent.Chat(ctx, s.reportAgentID, sessionID, message)
	if err != nil {
		return ChatResult{}, fmt.Errorf("chat report: %w", err)
	}
	parsed, err := report.ParseSnapshotText(reply)
	if err != nil {
		return ChatResult{}, err
	}
	rows, err := report.ValidateSnapshot(parsed)
	if err != nil {
		return ChatResult{}, err
	}
	snapshot, err := json.Marshal(rows)
	if err != nil {
		return ChatResult{}, fmt.Errorf("encode chat report: %w", err)
	}

	upload, stored, err := s.store.CreateChatReport(ctx, domain.UploadInput{
		FileName: fmt.Sprintf("%s - %s", name, time.Now().Format(time.RFC3339)),
		Name:     name,
		Month:    crm.Month,
		Year:     crm.Year,
	}, snapshot)
	if err != nil {
		return ChatResult{}, err
	}
	s.log.Info("chat report stored",
		zap.String("session_id", sessionID),
		zap.Int64("report_id", stored.ReportID),
		zap.Int("rows", len(rows)),
	)
	return ChatResult{SessionID: sessionID, Upload: upload, Report: stored, Rows: rows}, nil
}

type CompareRequest struct {
	OldReport []map[string]any `json:"old_report"`
	NewReport []map[string]any `json:"new_report"`
	Query     string           `json:"query"`
	SessionID string           `json:"session_id,omitempty"`
}

// CompareReports asks the comparison agent about the differences between two
// reports. The comparison is recorded before the call and finished with
// either the answer or the failure, which is also returned as an error.
func (s *Service) CompareReports(ctx context.Context, req CompareRequest) (domain.Comparison, error) {
	if err := validateCompareRequest(req); err != nil {
		return domain.Comparison{}, err
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	message, err := compareMessage(req)
	if err != nil {
		return domain.Comparison{}, err
	}
	return s.runComparison(ctx, sessionID, req, message)
}

// FollowUp asks a further question within an existing comparison session,
// replaying the session's answered questions as context.
func (s *Service) FollowUp(ctx context.Context, req CompareRequest) (domain.Comparison, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return domain.Comparison{}, invalidf("session_id is required")
	}
	if err := validateCompareRequest(req); err != nil {
		return domain.Comparison{}, err
	}
	history, err := s.store.ComparisonHistory(ctx, sessionID)
	if err != nil {
		return domain.Comparison{}, err
	}
	return s.runComparison(ctx, sessionID, req, followUpMessage(history, req.Query))
}

func (s *Service) runComparison(ctx context.Context, sessionID string, req CompareRequest, message string) (domain.Comparison, error) {
	if s.agent == nil {
		return domain.Comparison{}, ErrAgentDisabled
	}
	pending, err := s.store.CreateComparison(ctx, repository.ComparisonInput{
		ComparisonID:  uuid.NewString(),
		SessionID:     sessionID,
		QueryText:     strings.TrimSpace(req.Query),
		OldReportSize: len(req.OldReport),
		NewReportSize: len(req.NewReport),
	})
	if err != nil {
		return domain.Comparison{}, err
	}
	log := s.log.With(zap.String("comparison_id", pending.ComparisonID), zap.String("session_id", sessionID))

	reply, chatErr := s.agent.Chat(ctx, s.compareAgentID, sessionID, message)
	if chatErr != nil {
		errMessage := chatErr.Error()
		log.Warn("comparison failed", zap.Error(chatErr))
		// The request context may already be done; the failure still has to land.
		finished, err := s.store.FinishComparison(context.WithoutCancel(ctx), pending.ComparisonID, domain.ComparisonError, nil, &errMessage)
		if err != nil {
			return pending, fmt.Errorf("record comparison failure: %w", err)
		}
		return *finished, fmt.Errorf("compare reports: %w", chatErr)
	}

	finished, err := s.store.FinishComparison(ctx, pending.ComparisonID, domain.ComparisonSuccess, &reply, nil)
	if err != nil {
		return pending, err
	}
	log.Info("comparison finished")
	return *finished, nil
}

func validateCompareRequest(req CompareRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return invalidf("query is required")
	}
	return nil
}

func compareMessage(req CompareRequest) (string, error) {
	oldJSON, err := marshalUnescaped(nonNilMaps(req.OldReport))
	if err != nil {
		return "", fmt.Errorf("encode old report: %w", err)
	}
	newJSON, err := marshalUnescaped(nonNilMaps(req.NewReport))
	if err != nil {
		return "", fmt.Errorf("encode new report: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "I need to analyze two sales reports. Here's my query: %s\n\n", strings.TrimSpace(req.Query))
	fmt.Fprintf(&b, "First report (older):\n%s\n\n", oldJSON)
	fmt.Fprintf(&b, "Second report (newer):\n%s\n\n", newJSON)
	b.WriteString("Please analyze the differences between these reports, focusing on changes in projects, revenue, rankings, and trends.")
	return b.String(), nil
}

// followUpMessage replays only comparisons that produced an answer.
func followUpMessage(history []domain.Comparison, query string) string {
	var turns []string
	for _, c := range history {
		if c.Result == nil || *c.Result == "" {
			continue
		}
		turns = append(turns, fmt.Sprintf("Q: %s\nA: %s", c.QueryText, *c.Result))
	}
	var b strings.Builder
	b.WriteString("Conversation History:\n")
	b.WriteString(strings.Join(turns, "\n"))
	fmt.Fprintf(&b, "\nFollow-up question about the reports: %s\n\n", strings.TrimSpace(query))
	b.WriteString("Please analyze the reports again with this specific focus.")
	return b.String()
}

// marshalUnescaped keeps Japanese text and symbols readable in prompts.
func marshalUnescaped(v any) (string, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func nonNilMaps(rows []map[string]any) []map[string]any {
	if rows == nil {
		return []map[string]any{}
	}
	return rows
}

func (s *Service) GetComparison(ctx context.Context, id string) (*domain.Comparison, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return nil, repository.ErrNotFound
	}
	return s.store.GetComparison(ctx, id)
}

// ListComparisons lists comparisons newest first; an empty session id lists
// all sessions.
func (s *Service) ListComparisons(ctx context.Context, sessionID string, limit, offset int) ([]domain.Comparison, error) {
	return s.store.ListComparisons(ctx, strings.TrimSpace(sessionID), repository.ListFilter{Limit: limit, Offset: offset})
}
