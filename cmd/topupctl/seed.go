package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"cryptotopup/internal/app"
	apperrors "cryptotopup/internal/errors"
	"cryptotopup/internal/model"
	"cryptotopup/internal/repository"
)

// seedUser is one entry of a seed file.
type seedUser struct {
	TelegramID         int64  `json:"telegram_id"`
	Username           string `json:"username"`
	Language           string `json:"language"`
	ReferrerTelegramID int64  `json:"referrer_telegram_id"`
}

func seedCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create users from a JSON file or URL",
		Long: `Create users listed in a JSON array of
{"telegram_id", "username", "language", "referrer_telegram_id"} objects.
Users that already exist are left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == "" {
				return fmt.Errorf("--source is required")
			}
			data, err := loadSeed(source)
			if err != nil {
				return err
			}
			var users []seedUser
			if err := json.Unmarshal(data, &users); err != nil {
				return fmt.Errorf("failed to parse seed: %w", err)
			}

			return withApp(cmd, func(a *app.App) error {
				created, skipped, err := seedUsers(cmd.Context(), a.Repos.Users, users)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created=%d skipped=%d\n", created, skipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Seed file path or http(s) URL")

	return cmd
}

func loadSeed(source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.ReadFile(source)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(source)
	req.Header.SetMethod(fasthttp.MethodGet)
	if err := fasthttp.DoTimeout(req, resp, 30*time.Second); err != nil {
		return nil, fmt.Errorf("failed to fetch seed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("seed source returned status code: %d", resp.StatusCode())
	}
	return append([]byte(nil), resp.Body()...), nil
}

// seedUsers creates users that do not exist yet. Referrers are resolved by
// telegram id and must appear earlier in the list or already exist.
func seedUsers(ctx context.Context, repo repository.UserRepository, users []seedUser) (created, skipped int, err error) {
	for _, item := range users {
		if item.TelegramID == 0 {
			slog.Warn("skipping seed entry without telegram id", "username", item.Username)
			skipped++
			continue
		}

		_, err := repo.FindByTelegramID(ctx, item.TelegramID)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			return created, skipped, fmt.Errorf("error checking user %d: %w", item.TelegramID, err)
		}

		user := &model.User{
			TelegramID: item.TelegramID,
			Username:   item.Username,
			Language:   item.Language,
		}
		if item.ReferrerTelegramID != 0 {
			referrer, err := repo.FindByTelegramID(ctx, item.ReferrerTelegramID)
			switch {
			case err == nil:
				user.ReferredByID = &referrer.ID
			case errors.Is(err, apperrors.ErrUserNotFound):
				slog.Warn("referrer not found", "telegram_id", item.TelegramID, "referrer_telegram_id", item.ReferrerTelegramID)
			default:
				return created, skipped, err
			}
		}

		if err := repo.Create(ctx, user); err != nil {
			return created, skipped, fmt.Errorf("error creating user %d: %w", item.TelegramID, err)
		}
		created++
	}
	return created, skipped, nil
}
