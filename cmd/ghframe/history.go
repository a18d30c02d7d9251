package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/ghframe/history"
)

func (o *options) openHistory() (*history.Store, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.Database)
}

func newHistoryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the visit history",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List visited pages, most recently added first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.openHistory()
			if err != nil {
				return err
			}
			defer s.Close()
			records, err := s.Get(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, records)
		},
	}

	find := &cobra.Command{
		Use:   "find [words...]",
		Short: "Find visited pages whose id, number or name contains every word",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openHistory()
			if err != nil {
				return err
			}
			defer s.Close()
			records, err := s.Find(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd, records)
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one visited page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openHistory()
			if err != nil {
				return err
			}
			defer s.Close()
			r, err := s.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if r == nil {
				return fmt.Errorf("history: %s not found", args[0])
			}
			return printJSON(cmd, r)
		},
	}

	cmd.AddCommand(list, find, get)
	return cmd
}

func newMCPCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the history tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.openHistory()
			if err != nil {
				return err
			}
			defer s.Close()

			srv := mcp.NewServer(&mcp.Implementation{Name: "ghframe", Version: "0.1.0"}, nil)
			s.RegisterMCP(srv, opts.logger())
			return srv.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
