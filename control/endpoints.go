package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/ghframe/bus"
	"github.com/hazyhaar/ghframe/frame"
)

type gotoRequest struct {
	Target string `json:"target"`
}

type menuRequest struct {
	Command string
}

type searchRequest struct {
	Query string
}

type idRequest struct {
	ID string
}

type accepted struct {
	Accepted bool   `json:"accepted"`
	Target   string `json:"target,omitempty"`
	Command  string `json:"command,omitempty"`
}

func decodeNone(*http.Request) (any, error) { return nil, nil }

func decodeGoto(r *http.Request) (any, error) {
	var req gotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if req.Target == "" {
		return nil, fmt.Errorf("target is required")
	}
	return &req, nil
}

func decodeMenu(r *http.Request) (any, error) {
	return &menuRequest{Command: chi.URLParam(r, "command")}, nil
}

func decodeSearch(r *http.Request) (any, error) {
	return &searchRequest{Query: r.URL.Query().Get("q")}, nil
}

func decodeID(r *http.Request) (any, error) {
	return &idRequest{ID: chi.URLParam(r, "id")}, nil
}

func (s *Server) gotoEndpoint(ctx context.Context, req any) (any, error) {
	target := req.(*gotoRequest).Target
	if err := s.cfg.Bus.Trigger(ctx, bus.FrameGoto, target); err != nil {
		return nil, err
	}
	return accepted{Accepted: true, Target: target}, nil
}

func (s *Server) menuEndpoint(ctx context.Context, req any) (any, error) {
	cmd := req.(*menuRequest).Command
	if frame.ParseMenu(cmd) == frame.MenuUnknown {
		return nil, fmt.Errorf("%w: unknown menu command %q", errBadRequest, cmd)
	}
	if err := s.cfg.Bus.Trigger(ctx, bus.Menu, cmd); err != nil {
		return nil, err
	}
	return accepted{Accepted: true, Command: cmd}, nil
}

func (s *Server) stateEndpoint(context.Context, any) (any, error) {
	if s.cfg.Status == nil {
		return frame.Status{}, nil
	}
	return s.cfg.Status(), nil
}

func (s *Server) listEndpoint(ctx context.Context, _ any) (any, error) {
	return s.cfg.History.Get(ctx)
}

func (s *Server) findEndpoint(ctx context.Context, req any) (any, error) {
	return s.cfg.History.Find(ctx, req.(*searchRequest).Query)
}

func (s *Server) getEndpoint(ctx context.Context, req any) (any, error) {
	return s.cfg.History.GetByID(ctx, req.(*idRequest).ID)
}
