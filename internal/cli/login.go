package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/recallhq/recall/internal/cryptox"
	"github.com/recallhq/recall/internal/store"
)

// Login unlocks the vault. On the first login the account is enrolled
// locally; once unlocked, a transition is attempted so an online session
// migrates straight to the cloud store.
func (a *App) Login(ctx context.Context) {
	username, err := GetSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	defer cryptox.WipeBytes(password)

	if err := a.sess.Login(ctx, username, password); err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	fmt.Println("Unlocked.")

	a.transitionNotify(ctx)
}

// Logout locks the vault and falls back to the local store.
func (a *App) Logout(ctx context.Context) {
	a.sess.Logout()
	fmt.Println("Locked.")

	a.transitionNotify(ctx)
}

func (a *App) transitionNotify(ctx context.Context) {
	trCtx, cancel := context.WithTimeout(ctx, a.config.TransitionWait)
	defer cancel()

	if err := a.gw.Transition(trCtx); err != nil {
		if errors.Is(err, store.ErrMigrationFailed) {
			fmt.Println("Warning: cloud sync failed, working against the local store.")
		}
		a.logger.Warn(ctx, "mode transition failed", "error", err)
		return
	}
	fmt.Printf("Mode: %s\n", a.modes.Mode())
}
