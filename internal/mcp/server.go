package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/alden/internal/models"
	"github.com/joescharf/alden/internal/state"
	"github.com/joescharf/alden/internal/transform"
)

// Server exposes the application state store as MCP tools.
type Server struct {
	app     *state.Store
	version string
}

// NewServer creates the MCP server wrapper around an application store.
func NewServer(app *state.Store, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{app: app, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("alden", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.statusTool())
	srv.AddTool(s.startSessionTool())
	srv.AddTool(s.endSessionTool())
	srv.AddTool(s.listSessionsTool())
	srv.AddTool(s.listMindfulTool())
	srv.AddTool(s.completeMindfulTool())
	srv.AddTool(s.listConversationsTool())
	srv.AddTool(s.sendMessageTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// optionalInt returns the integer argument key, or nil when it is absent.
func optionalInt(request mcp.CallToolRequest, key string) *int {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	v := request.GetInt(key, 0)
	return &v
}

func optionalString(request mcp.CallToolRequest, key string) *string {
	v := request.GetString(key, "")
	if v == "" {
		return nil
	}
	return &v
}

// lastError reports the error recorded by a load action, if any.
func (s *Server) lastError() error {
	if msg := s.app.Snapshot().Error; msg != "" {
		return errors.New(msg)
	}
	return nil
}

type sessionOut struct {
	ID         string  `json:"id"`
	Subject    string  `json:"subject"`
	Goal       string  `json:"goal,omitempty"`
	Technique  string  `json:"technique"`
	Duration   int     `json:"duration"`
	StartTime  string  `json:"start_time"`
	EndTime    *string `json:"end_time,omitempty"`
	Completed  bool    `json:"completed"`
	FocusScore *int    `json:"focus_score,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

func toSessionOut(ss models.StudySession) sessionOut {
	w := transform.StudySessionToWire(ss)
	return sessionOut{
		ID:         w.ID,
		Subject:    w.Subject,
		Goal:       w.Goal,
		Technique:  w.Technique,
		Duration:   w.Duration,
		StartTime:  w.StartTime,
		EndTime:    w.EndTime,
		Completed:  w.Completed,
		FocusScore: w.FocusScore,
		Notes:      w.Notes,
	}
}

// alden_status
func (s *Server) statusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("alden_status",
		mcp.WithDescription("Get today's study progress, the active study session (if any), and counts of conversations, documents and completed mindfulness sessions."),
	)
	return tool, s.handleStatus
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.app.ClearError()
	if err := s.app.InitializeApp(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load state: %v", err)), nil
	}
	snap := s.app.Snapshot()
	if snap.Error != "" {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load state: %s", snap.Error)), nil
	}

	result := map[string]any{
		"progress": map[string]any{
			"daily_goal":                 snap.Progress.DailyGoal,
			"today_study_time":           snap.Progress.TodayStudyTime,
			"goal_met":                   snap.Progress.GoalMet(),
			"current_streak":             snap.Progress.CurrentStreak,
			"total_study_time":           snap.Progress.TotalStudyTime,
			"total_mindful_time":         snap.Progress.TotalMindfulTime,
			"sessions_today":             snap.Progress.SessionsToday,
			"mindful_sessions_completed": snap.Progress.MindfulSessionsCompleted,
		},
		"conversations":       len(snap.Conversations),
		"documents":           len(snap.Documents),
		"completed_mindful":   len(snap.CompletedMindfulSessions),
		"active_session":      nil,
		"active_conversation": snap.ActiveConversation,
	}
	if snap.ActiveSession != nil {
		result["active_session"] = toSessionOut(*snap.ActiveSession)
	}
	return jsonResult(result)
}

// alden_start_session
func (s *Server) startSessionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("alden_start_session",
		mcp.WithDescription("Start a study session. Fails if a session is already active."),
		mcp.WithString("subject", mcp.Required(), mcp.Description("What is being studied")),
		mcp.WithString("goal", mcp.Description("Goal for the session")),
		mcp.WithString("technique", mcp.Description("Study technique: pomodoro, deep_work, active_recall (default: pomodoro)")),
		mcp.WithNumber("duration", mcp.Description("Planned duration in minutes (default: 25)")),
	)
	return tool, s.handleStartSession
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subject, err := request.RequireString("subject")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: subject"), nil
	}

	s.app.CheckActiveSession(ctx)
	sess, err := s.app.StartStudySession(ctx, state.StudySessionInput{
		Subject:   subject,
		Goal:      request.GetString("goal", ""),
		Technique: models.Technique(request.GetString("technique", string(models.TechniquePomodoro))),
		Duration:  request.GetInt("duration", 25),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to start session: %v", err)), nil
	}
	return jsonResult(toSessionOut(*sess))
}

// alden_end_session
func (s *Server) endSessionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("alden_end_session",
		mcp.WithDescription("End the active study session with an optional focus score and notes."),
		mcp.WithNumber("focus_score", mcp.Description("Self-rated focus from 1 to 10")),
		mcp.WithString("notes", mcp.Description("Reflection notes")),
	)
	return tool, s.handleEndSession
}

func (s *Server) handleEndSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.app.CheckActiveSession(ctx)
	sess, err := s.app.EndStudySession(ctx, state.EndStudySessionInput{
		FocusScore: optionalInt(request, "focus_score"),
		Notes:      optionalString(request, "notes"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to end session: %v", err)), nil
	}
	return jsonResult(toSessionOut(*sess))
}

// alden_list_sessions
func (s *Server) listSessionsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("alden_list_sessions",
		mcp.WithDescription("List study sessions, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of sessions to return (default: all)")),
	)
	return tool, s.handleListSessions
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.app.ClearError()
	s.app.LoadStudySessions(ctx)
	if err := s.lastError(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}

	sessions := s.app.Snapshot().StudySessions
	if limit := request.GetInt("limit", 0); limit > 0 && limit < len(sessions) {
		sessions = sessions[:limit]
	}
	out := make([]sessionOut, len(sessions))
	for i, ss := range sessions {
		out[i] = toSessionOut(ss)
	}
	return jsonResult(out)
}

type mindfulOut struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Rating      *int   `json:"rating,omitempty"`
}

// alden_list_mindful
func (s *Server) listMindfulTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("alden_list_mindful",
		mcp.WithDescription("List mindfulness exercises, including prebuilt ones that have not been done yet."),
	)
	return tool, s.handleListMindful
}

func (s *Server) handleListMindful(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.app.ClearError()
	s.app.LoadMindfulSessions(ctx)
	if err := s.lastError(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list mindful sessions: %v", err)), nil
	}

	sessions := s.app.Snapshot().MindfulSessions
	out := make([]mindfulOut, len(sessions))
	for i, m := range sessions {
		out[i] = mindfulOut{
			ID:          m.ID,
			Title:       m.Title,
			Category:    string(m.Category),
			Duration:    m.Duration,
			Description: m.Description,
			Completed:   m.Completed,
			Rating:      m.Rating,
		}
	}
	return jsonResult(out)
}

// alden_complete_mindful
func (s *Server) completeMindfulTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("alden_complete_mindful",
		mcp.WithDescription("Mark a mindfulness exercise as completed. Use an id from alden_list_mindful."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Mindfulness session id")),
		mcp.WithNumber("rating", mcp.Description("Rating from 1 to 5")),
	)
	return tool, s.handleCompleteMindful
}

func (s *Server) handleCompleteMindful(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	if _, ok := s.app.Snapshot().MindfulSession(id); !ok {
		s.app.LoadMindfulSessions(ctx)
	}
	m, err := s.app.CompleteMindfulSession(ctx, id, optionalInt(request, "rating"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to complete mindful session: %v", err)), nil
	}
	return jsonResult(mindfulOut{
		ID:          m.ID,
		Title:       m.Title,
		Category:    string(m.Category),
		Duration:    m.Duration,
		Description: m.Description,
		Completed:   m.Completed,
		Rating:      m.Rating,
	})
}

type messageOut struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type conversationOut struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Subject     *string      `json:"subject,omitempty"`
	LastMessage string       `json:"last_message"`
	Messages    int          `json:"messages"`
	Transcript  []messageOut `json:"transcript,omitempty"`
}

func toConversationOut(c models.Conversation, transcript bool) conversationOut {
	out := conversationOut{
		ID:          c.ID,
		Title:       c.Title,
		Subject:     c.Subject,
		LastMessage: transform.FormatTime(c.LastMessage),
		Messages:    len(c.Messages),
	}
	if transcript {
		for _, m := range c.Messages {
			out.Transcript = append(out.Transcript, messageOut{
				Type:      string(m.Type),
				Content:   m.Content,
				Timestamp: transform.FormatTime(m.Timestamp),
			})
		}
	}
	return out
}

// alden_list_conversations
func (s *Server) listConversationsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("alden_list_conversations",
		mcp.WithDescription("List conversations with the study assistant, most recent first."),
	)
	return tool, s.handleListConversations
}

func (s *Server) handleListConversations(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.app.ClearError()
	s.app.LoadConversations(ctx)
	if err := s.lastError(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list conversations: %v", err)), nil
	}

	convs := s.app.Snapshot().Conversations
	out := make([]conversationOut, len(convs))
	for i, c := range convs {
		out[i] = toConversationOut(c, false)
	}
	return jsonResult(out)
}

// alden_send_message
func (s *Server) sendMessageTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("alden_send_message",
		mcp.WithDescription("Send a message to the study assistant and return the conversation transcript including the reply. Starts a new conversation when conversation_id is omitted."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Message text")),
		mcp.WithString("conversation_id", mcp.Description("Existing conversation id")),
		mcp.WithString("title", mcp.Description("Title for a new conversation")),
	)
	return tool, s.handleSendMessage
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: message"), nil
	}

	id := request.GetString("conversation_id", "")
	if id == "" {
		id, err = s.app.CreateConversation(ctx, request.GetString("title", ""), nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create conversation: %v", err)), nil
		}
	} else if _, ok := s.app.Snapshot().Conversation(id); !ok {
		s.app.LoadConversations(ctx)
	}

	if err := s.app.SendMessage(ctx, id, msg); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to send message: %v", err)), nil
	}
	s.app.Wait()

	conv, ok := s.app.Snapshot().Conversation(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("conversation not found: %s", id)), nil
	}
	return jsonResult(toConversationOut(conv, true))
}
