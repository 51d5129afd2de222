// Command agentctl is agentd's operator CLI: run one agent turn against
// the local Runtime, execute a single skill call, or manage the
// provider fleet, all without standing up the HTTP/gRPC servers.
// Grounded on the teacher's cmd/cli/main.go: cobra root command plus
// subcommands, a quiet console logger, config loaded the same way the
// daemon loads it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/duskcore/agentd/internal/application"
	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/infrastructure/config"
	"github.com/duskcore/agentd/internal/infrastructure/logger"
	"github.com/duskcore/agentd/internal/router"
)

const cliVersion = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "agentctl",
		Short:   "agentctl — operator CLI for the agentd runtime",
		Version: cliVersion,
	}

	rootCmd.AddCommand(newRunCmd(), newSkillCmd(), newProvidersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadCLIApp() (*application.App, error) {
	log, err := logger.New(logger.Config{Level: "warn", Format: "console", OutputPath: "stderr"})
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return application.NewCLI(cfg, log)
}

func newRunCmd() *cobra.Command {
	var workspaceID, model, specFile string
	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run one Agent Runtime turn against a prompt",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadCLIApp()
			if err != nil {
				return err
			}
			prompt := strings.Join(args, " ")
			if prompt == "" {
				return fmt.Errorf("a prompt is required")
			}

			spec, err := config.LoadAgentSpec(specFile)
			if err != nil {
				return err
			}
			if model != "" {
				spec.DefaultModel = model
			}
			spec.MemoryConfig.WorkspaceID = workspaceID

			events := make(chan entity.AgentEvent, 16)
			done := make(chan *struct {
				FinalContent string
				TotalSteps   int
			}, 1)

			go func() {
				result := app.AgentLoop().Run(context.Background(), spec, nil, prompt, nil, nil, events)
				done <- &struct {
					FinalContent string
					TotalSteps   int
				}{result.FinalContent, result.TotalSteps}
			}()

			for event := range events {
				switch event.Type {
				case entity.EventChunk:
					fmt.Print(event.Data.Content)
				case entity.EventToolCall:
					if event.Data.ToolCall != nil {
						fmt.Fprintf(os.Stderr, "\n[tool] %s\n", event.Data.ToolCall.Name)
					}
				case entity.EventError:
					fmt.Fprintf(os.Stderr, "\n[error] %s\n", event.Data.Error)
				}
			}
			result := <-done
			fmt.Printf("\n\n-- %d step(s) --\n", result.TotalSteps)
			return nil
		},
	}
	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "default", "workspace id for memory scoping")
	cmd.Flags().StringVarP(&model, "model", "m", "", "override the default model")
	cmd.Flags().StringVar(&specFile, "spec-file", ".agentd/agent.yaml", "workspace agent spec override (YAML)")
	return cmd
}

func newSkillCmd() *cobra.Command {
	var workspaceID string
	var paramsJSON string
	cmd := &cobra.Command{
		Use:   "skill [name]",
		Short: "Dispatch a single skill call through the Airlock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadCLIApp()
			if err != nil {
				return err
			}
			params := map[string]interface{}{}
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("invalid --params JSON: %w", err)
				}
			}
			call := entity.ToolCallInfo{ID: uuid.NewString(), Name: args[0], Arguments: params}
			result := app.ToolExecutor().Dispatch(context.Background(), workspaceID, call, nil, nil)
			out, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "default", "workspace id")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "JSON object of skill parameters")
	return cmd
}

func newProvidersCmd() *cobra.Command {
	parent := &cobra.Command{
		Use:   "providers",
		Short: "List or register providers against the local Router",
	}

	parent.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the providers configured for this process",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadCLIApp()
			if err != nil {
				return err
			}
			reports := app.Router().ListProviders(context.Background())
			out, _ := json.MarshalIndent(reports, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	})

	var typ, baseURL, apiKey string
	var models []string
	registerCmd := &cobra.Command{
		Use:   "register [id]",
		Short: "Register a provider against the local Router (in-process only, not persisted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadCLIApp()
			if err != nil {
				return err
			}
			cfg := router.ProviderConfig{ID: args[0], Type: typ, BaseURL: baseURL, APIKey: apiKey, Models: models}
			log := app.Logger()
			provider, err := router.CreateProvider(cfg, log)
			if err != nil {
				return err
			}
			app.Router().AddProvider(provider)
			fmt.Printf("registered provider %q (type=%s)\n", cfg.ID, cfg.Type)
			return nil
		},
	}
	registerCmd.Flags().StringVar(&typ, "type", "openai", "provider type")
	registerCmd.Flags().StringVar(&baseURL, "base-url", "", "provider base URL")
	registerCmd.Flags().StringVar(&apiKey, "api-key", "", "provider API key")
	registerCmd.Flags().StringSliceVar(&models, "models", nil, "comma-separated model list")
	parent.AddCommand(registerCmd)

	return parent
}
