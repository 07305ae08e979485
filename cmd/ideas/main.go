package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"ideas-feedback/internal/config"
	"ideas-feedback/internal/digest"
	"ideas-feedback/internal/generator"
	"ideas-feedback/internal/logger"
	"ideas-feedback/internal/mailer"
	"ideas-feedback/internal/repository"
	"ideas-feedback/internal/token"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config
	log zerolog.Logger

	recipients []string
	linkTTL    time.Duration

	rootCmd = &cobra.Command{
		Use:           "ideas",
		Short:         "Generate daily ideas and mail signed feedback links",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			log = logger.New(cfg.LogLevel, "ideas-cli")
			return nil
		},
	}

	digestCmd = &cobra.Command{
		Use:   "digest",
		Short: "Generate one idea per category and email them with feedback links",
		RunE:  runDigest,
	}

	generateCmd = &cobra.Command{
		Use:   "generate <category>",
		Short: "Generate and store a single idea",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}

	linkCmd = &cobra.Command{
		Use:   "link <idea-id>",
		Short: "Print a signed feedback link for a stored idea",
		Args:  cobra.ExactArgs(1),
		RunE:  runLink,
	}

	categoriesCmd = &cobra.Command{
		Use:   "categories",
		Short: "List the configured idea categories",
		Args:  cobra.NoArgs,
		RunE:  runCategories,
	}
)

func init() {
	digestCmd.Flags().StringArrayVar(&recipients, "to", nil, "recipient address (repeatable)")
	_ = digestCmd.MarkFlagRequired("to")
	linkCmd.Flags().DurationVar(&linkTTL, "ttl", 0, "link lifetime, 0 uses TOKEN_TTL")

	rootCmd.AddCommand(digestCmd, generateCmd, linkCmd, categoriesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runDigest(cmd *cobra.Command, _ []string) error {
	return withDigest(cmd.Context(), true, func(ctx context.Context, d *digest.Digest) error {
		res, err := d.Run(ctx, recipients)
		if res != nil {
			for _, idea := range res.Ideas {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", idea.ID, res.Links[idea.ID])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d/%d\n", res.Sent, len(recipients))
		}
		return err
	})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	return withDigest(cmd.Context(), true, func(ctx context.Context, d *digest.Digest) error {
		idea, err := d.GenerateIdea(ctx, args[0])
		if err != nil {
			return err
		}
		link, err := d.Link(idea.ID, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n\n%s\n", idea.ID, idea.Content, link)
		return nil
	})
}

func runLink(cmd *cobra.Command, args []string) error {
	return withDigest(cmd.Context(), false, func(ctx context.Context, d *digest.Digest) error {
		link, err := d.LinkExisting(ctx, args[0], linkTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	})
}

func runCategories(cmd *cobra.Command, _ []string) error {
	catalog, err := generator.DefaultCatalog()
	if err != nil {
		return err
	}
	keys := catalog.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		c, _ := catalog.Get(k)
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", c.Key, c.Name)
	}
	return nil
}

// withDigest opens the store and wires the digest for the duration of fn.
// The OpenAI client is only built when generate is set.
func withDigest(parent context.Context, generate bool, fn func(context.Context, *digest.Digest) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := repository.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open idea store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := closeStore(closeCtx); err != nil {
			log.Warn().Err(err).Msg("closing idea store failed")
		}
	}()

	codec, err := token.NewCodec([]byte(cfg.SigningSecret), token.WithDefaultTTL(cfg.TokenTTL))
	if err != nil {
		return err
	}
	catalog, err := generator.DefaultCatalog()
	if err != nil {
		return err
	}
	var gen generator.Generator
	if generate {
		if gen, err = generator.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, log); err != nil {
			return err
		}
	}

	d := digest.New(digest.Config{
		Store:     store,
		Generator: gen,
		Catalog:   catalog,
		Codec:     codec,
		Mailer:    mailer.New(cfg.ResendAPIKey, cfg.FromEmail, cfg.MailRatePerSecond, log),
		Logger:    log,
		BaseURL:   cfg.BaseURL,
		TokenTTL:  cfg.TokenTTL,
	})
	return fn(ctx, d)
}
