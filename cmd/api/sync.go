// AngelaMos | 2026
// sync.go

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/perumahan-api/internal/identity"
)

var (
	syncPerPage     int
	syncReprovision bool
	syncUserID      string
)

var syncUsersCmd = &cobra.Command{
	Use:   "sync-users",
	Short: "Mirror every identity provider account into the local users table",
	Long: `sync-users pages through the identity provider admin API and
mirrors each account locally. Newly mirrored users receive their
default module grants and division memberships.

With --reprovision, users that were already mirrored are provisioned
again. Existing grant rows are never overwritten. --user limits the
run to a single account.`,
	RunE: runSyncUsers,
}

func init() {
	syncUsersCmd.Flags().IntVar(&syncPerPage, "per-page", 100, "accounts fetched per page")
	syncUsersCmd.Flags().BoolVar(&syncReprovision, "reprovision", false, "provision users that already exist locally")
	syncUsersCmd.Flags().StringVar(&syncUserID, "user", "", "sync only this identity provider user id")
	rootCmd.AddCommand(syncUsersCmd)
}

type syncSummary struct {
	seen, mirrored, provisioned, failed int
}

func runSyncUsers(cmd *cobra.Command, _ []string) error {
	if syncPerPage <= 0 {
		return fmt.Errorf("--per-page must be positive, got %d", syncPerPage)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	var sum syncSummary
	if syncUserID != "" {
		sum, err = syncOne(ctx, a, syncUserID)
	} else {
		sum, err = syncUsers(ctx, a)
	}
	a.logger.Info("user sync finished",
		"seen", sum.seen,
		"mirrored", sum.mirrored,
		"provisioned", sum.provisioned,
		"failed", sum.failed,
	)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(),
		"seen=%d mirrored=%d provisioned=%d failed=%d\n",
		sum.seen, sum.mirrored, sum.provisioned, sum.failed,
	)
	return err
}

// syncUsers keeps going past per-user failures; only a failed page fetch
// aborts the run.
func syncUsers(ctx context.Context, a *app) (syncSummary, error) {
	var sum syncSummary

	for page := 1; ; page++ {
		accounts, err := a.identity.AdminListUsers(ctx, page, syncPerPage)
		if err != nil {
			return sum, fmt.Errorf("list identity users page %d: %w", page, err)
		}

		for i := range accounts {
			syncAccount(ctx, a, &accounts[i], &sum)
		}

		if len(accounts) < syncPerPage {
			return sum, nil
		}
	}
}

func syncOne(ctx context.Context, a *app, id string) (syncSummary, error) {
	var sum syncSummary

	account, err := a.identity.AdminGetUser(ctx, id)
	if err != nil {
		return sum, fmt.Errorf("get identity user %s: %w", id, err)
	}

	syncAccount(ctx, a, account, &sum)
	return sum, nil
}

func syncAccount(ctx context.Context, a *app, account *identity.User, sum *syncSummary) {
	sum.seen++

	mirrored, inserted, err := a.users.SyncFromPrincipal(ctx, account.Principal())
	if err != nil {
		sum.failed++
		a.logger.WarnContext(ctx, "user mirror failed",
			"user_id", account.ID,
			"error", err,
		)
		return
	}
	if inserted {
		sum.mirrored++
	}
	if !inserted && !syncReprovision {
		return
	}

	if _, err := a.provisioner.OnUserFirstSeen(ctx, mirrored.ID, mirrored.Role); err != nil {
		sum.failed++
		a.logger.WarnContext(ctx, "user provisioning failed",
			"user_id", mirrored.ID,
			"error", err,
		)
		return
	}
	sum.provisioned++
}
