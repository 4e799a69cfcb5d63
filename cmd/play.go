package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jay060412/stepcode/internal/app"
	"github.com/jay060412/stepcode/internal/content"
	"github.com/jay060412/stepcode/internal/llm"
	"github.com/jay060412/stepcode/internal/profile"
	"github.com/jay060412/stepcode/internal/remoterun"
	"github.com/jay060412/stepcode/internal/runner"
	"github.com/jay060412/stepcode/internal/store"
	"github.com/jay060412/stepcode/internal/tutor"
)

// localProfileID is the single local learner. Multi-user identity lives
// behind the Authenticator contract, not here.
const localProfileID = "local"

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start learning",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	catalog, err := content.Load()
	if err != nil {
		return fmt.Errorf("load curriculum: %w", err)
	}

	// Identity goes through the validating auth surface. The offline
	// adapter is always signed in as the device learner; a networked
	// adapter slots in here when accounts sync.
	auth := profile.NewAuth(profile.NewLocalAuthenticator(localProfileID))
	sess, err := auth.CurrentSession(ctx)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}

	repo := st.ProfileRepo()
	prof, err := loadOrCreateProfile(ctx, repo, sess.LearnerID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	opts := app.Options{
		Catalog: catalog,
		Profile: &prof,
		Repo:    repo,
		Runner:  runner.New(runner.LangStep),
	}

	if url := os.Getenv("STEPCODE_RUN_SERVICE_URL"); url != "" {
		opts.Remote = remoterun.NewClient(url)
	}

	// Model provider is optional; without it the tutor answers with its
	// unavailable sentinel and non-Step runs depend on the compile service.
	provider, err := llm.NewProviderFromEnv(ctx, st.RequestLog())
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "AI features will be unavailable.")
	} else {
		opts.Provider = provider
	}
	opts.Tutor = tutor.New(opts.Provider)

	return app.Run(opts)
}

func loadOrCreateProfile(ctx context.Context, repo profile.Repo, learnerID string) (profile.Profile, error) {
	prof, err := repo.Get(ctx, learnerID)
	if err == nil {
		return prof, nil
	}
	if !errors.Is(err, store.ErrProfileNotFound) {
		return profile.Profile{}, err
	}
	prof = profile.Profile{ID: learnerID, Name: "Learner"}
	if err := repo.Insert(ctx, prof); err != nil {
		return profile.Profile{}, err
	}
	return repo.Get(ctx, learnerID)
}
