package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

var (
	scopeFlag     string
	actorFlag     string
	sessionFlag   string
	operationFlag string
	limitFlag     int
	argsFlag      string
	liveFlag      bool
)

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List the operations currently published to the model",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(a *app) error {
			ops, err := a.toolset.List(cmd.Context(), entities.ToolScope(strings.ToLower(scopeFlag)))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ops)
		})
	},
}

var routeCmd = &cobra.Command{
	Use:   "route <message>",
	Short: "Classify a message and print the routing decision",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			decision := a.turns.Route(cmd.Context(), []entities.Message{
				{Role: entities.RoleUser, Content: strings.Join(args, " ")},
			})
			return printJSON(cmd.OutOrStdout(), decision)
		})
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recent audit records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(a *app) error {
			records, err := a.audit.List(cmd.Context(), entities.AuditFilter{
				ActorID:   actorFlag,
				SessionID: sessionFlag,
				Operation: operationFlag,
				Limit:     limitFlag,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), records)
		})
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <operation>",
	Short: "Run one operation (dry-run unless --live)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arguments, err := parseArgs(argsFlag)
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app) error {
			session := sessionFlag
			if session == "" {
				session = "cli-" + uuid.NewString()
			}
			result := a.executor.Execute(cmd.Context(), entities.TurnContext{
				ActorID:   actorFlag,
				SessionID: session,
				DryRun:    !liveFlag,
			}, entities.OperationRequest{Name: args[0], Arguments: arguments})

			out := map[string]interface{}{"result": result}
			if actions := a.dispatcher.Drain(session); len(actions) > 0 {
				out["client_actions"] = actions
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !result.Success {
				return errors.New("operation did not succeed")
			}
			return nil
		})
	},
}

func init() {
	operationsCmd.Flags().StringVar(&scopeFlag, "scope", string(entities.ScopeAll), "Tool scope (all, data, ui)")

	auditCmd.Flags().StringVar(&actorFlag, "actor", "", "Filter by actor id")
	auditCmd.Flags().StringVar(&sessionFlag, "session", "", "Filter by session id")
	auditCmd.Flags().StringVar(&operationFlag, "operation", "", "Filter by operation name")
	auditCmd.Flags().IntVar(&limitFlag, "limit", 20, "Maximum number of records")

	execCmd.Flags().StringVar(&actorFlag, "actor", "", "Acting account id")
	execCmd.Flags().StringVar(&sessionFlag, "session", "", "Session id")
	execCmd.Flags().StringVar(&argsFlag, "args", "{}", "Operation arguments as a JSON object")
	execCmd.Flags().BoolVar(&liveFlag, "live", false, "Apply changes instead of a dry run")

	rootCmd.AddCommand(operationsCmd, routeCmd, auditCmd, execCmd)
}

// withApp wires the copilot for a single command
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func parseArgs(raw string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("--args must be a JSON object: %w", err)
	}
	return args, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
