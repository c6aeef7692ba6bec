package credential

import (
	"context"
	"fmt"
	"strings"
	"time"

	"screener/internal/auth/models"
)

// SeedFromEnv registers API_KEY_1, API_KEY_2, ... until the first gap.
// Each key may carry API_KEY_NAME_<n>, API_KEY_EMAIL_<n> and
// API_KEY_ACTIVE_<n>; activity defaults to true.
func SeedFromEnv(ctx context.Context, store *InMemoryCredentialStore, getenv func(string) string) (int, error) {
	now := time.Now()
	n := 0
	for i := 1; ; i++ {
		key := getenv(fmt.Sprintf("API_KEY_%d", i))
		if key == "" {
			break
		}
		name := getenv(fmt.Sprintf("API_KEY_NAME_%d", i))
		if name == "" {
			name = fmt.Sprintf("User %d", i)
		}
		email := getenv(fmt.Sprintf("API_KEY_EMAIL_%d", i))
		if email == "" {
			email = fmt.Sprintf("User%d@example.com", i)
		}
		active := true
		if v := getenv(fmt.Sprintf("API_KEY_ACTIVE_%d", i)); v != "" {
			active = strings.EqualFold(v, "true")
		}

		err := store.Save(ctx, &models.Credential{
			Digest:    models.Digest(key),
			Name:      name,
			Email:     email,
			Active:    active,
			CreatedAt: now,
		})
		if err != nil {
			return n, fmt.Errorf("seed API_KEY_%d: %w", i, err)
		}
		n++
	}
	return n, nil
}
