package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/asklens/asklens/internal/chat"
	"github.com/asklens/asklens/internal/executor"
	"github.com/asklens/asklens/internal/metrics"
	"github.com/asklens/asklens/internal/output"
	"github.com/asklens/asklens/internal/planner"
	"github.com/asklens/asklens/internal/pool"
	"github.com/asklens/asklens/internal/prompt"
	"github.com/asklens/asklens/internal/ratelimit"
	"github.com/asklens/asklens/internal/schema"
	"github.com/asklens/asklens/internal/source"
)

var (
	askConversation int64
	askExtended     bool
	askFollowup     bool
)

var askCmd = &cobra.Command{
	Use:          "ask <question>",
	Short:        "Ask a question about your connected data",
	SilenceUsage: true,
	Args:         cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		log := buildLogger()
		defer log.Sync()

		store := source.NewConfigStore(log)
		var entries []source.ConfigEntry
		if err := viper.UnmarshalKey("sources", &entries); err != nil {
			return fmt.Errorf("reading sources config: %w", err)
		}
		if err := store.Load(entries); err != nil {
			return err
		}

		model, err := buildModel()
		if err != nil {
			return err
		}

		pools := pool.NewRegistry(log)
		defer pools.CloseAll()

		// A process-local registry: nothing scrapes a one-shot CLI, but the
		// instruments stay in place for an embedding server.
		mets := metrics.New(prometheus.NewRegistry())

		prompts := prompt.NewService(model, log)
		orch := chat.New(chat.Config{
			Limiter:  ratelimit.New(ratelimit.SystemClock{}),
			Resolver: source.NewResolver(store, schema.NewIntrospector(pools, log)),
			Prompts:  prompts,
			Planner:  planner.New(prompts, log),
			Executor: executor.New(pools, store, log, mets),
			Log:      log,
			Metrics:  mets,
		})

		resp, err := orch.Chat(context.Background(), chat.Request{
			UserID:               1,
			Tier:                 viper.GetString("tier"),
			Message:              question,
			ConversationID:       askConversation,
			ExtendedResponses:    askExtended,
			IsSuggestionFollowup: askFollowup,
		})
		if err != nil {
			return err
		}

		renderer := output.NewRenderer(viper.GetString("format"), os.Stdout)
		renderer.RenderAnswer(&resp)
		return nil
	},
}

// buildModel constructs the chat model from config. The key is never read
// from a flag so it cannot leak into shell history.
func buildModel() (llms.Model, error) {
	key := viper.GetString("model.api_key")
	if key == "" {
		key = os.Getenv("ASKLENS_MODEL_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("no model API key: set model.api_key in the config or ASKLENS_MODEL_API_KEY")
	}

	opts := []openai.Option{openai.WithToken(key)}
	if name := viper.GetString("model.name"); name != "" {
		opts = append(opts, openai.WithModel(name))
	}
	if base := viper.GetString("model.base_url"); base != "" {
		opts = append(opts, openai.WithBaseURL(base))
	}
	return openai.New(opts...)
}

func buildLogger() *zap.Logger {
	if viper.GetBool("verbose") {
		log, err := zap.NewDevelopment()
		if err == nil {
			return log
		}
	}
	return zap.NewNop()
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().Int64Var(&askConversation, "conversation", 0, "conversation id for transcript grouping")
	askCmd.Flags().BoolVar(&askExtended, "extended", false, "request a longer answer (enterprise tier)")
	askCmd.Flags().BoolVar(&askFollowup, "followup", false, "mark this as a suggested follow-up (not counted against the hourly limit)")
}
